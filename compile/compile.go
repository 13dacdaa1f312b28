// Package compile turns HTML email source into a complete document which
// renders consistently across email clients.
package compile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"bec/css"
	"bec/inline"
	"bec/misc"
	"bec/scss"
)

// XHTML doctype gives the best compatibility across email clients.
const emailDoctype = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`

// StageFunc observes intermediate pipeline results, keyed by stage name.
type StageFunc func(stage, html string)

// Option configures a Compiler.
type Option func(*Compiler)

// WithEmailSCSS appends user SCSS to the stylesheet inlined into elements.
func WithEmailSCSS(src string) Option {
	return func(c *Compiler) { c.emailExtra = src }
}

// WithHeadSCSS appends user SCSS to the stylesheet embedded in the head.
func WithHeadSCSS(src string) Option {
	return func(c *Compiler) { c.headExtra = src }
}

// WithStageObserver registers a callback receiving a snapshot of the document
// after each pipeline stage.
func WithStageObserver(fn StageFunc) Option {
	return func(c *Compiler) { c.observer = fn }
}

// Compiler runs the full email compilation pipeline.
type Compiler struct {
	log     *zap.Logger
	scss    *scss.Compiler
	inliner *inline.Inliner
	parser  *css.Parser

	emailExtra string
	headExtra  string
	observer   StageFunc
}

// New creates email compiler. Nil logger is substituted with no-op one.
func New(log *zap.Logger, opts ...Option) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Compiler{
		log:     log.Named("compile"),
		scss:    scss.NewCompiler(log),
		inliner: inline.New(log),
		parser:  css.NewParser(log),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile transforms an HTML fragment into a complete email document.
func (c *Compiler) Compile(input string) (string, error) {
	doc, err := c.buildDocument(input)
	if err != nil {
		return "", err
	}
	c.snapshot("structure", doc)

	if err := c.inlineStyles(doc); err != nil {
		return "", err
	}
	c.snapshot("inline", doc)

	if err := c.configureDocument(doc); err != nil {
		return "", err
	}
	c.snapshot("configure", doc)

	return c.finalize(doc)
}

// buildDocument wraps input into the base document and rewrites framework
// constructs into table based markup.
func (c *Compiler) buildDocument(input string) (*html.Node, error) {
	complete, err := expandTemplate("base", input, "")
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(complete))
	if err != nil {
		return nil, fmt.Errorf("unable to parse input document: %w", err)
	}

	converters := []struct {
		name string
		fn   func(*html.Node) error
	}{
		{"body", c.convertBody},
		{"block", c.convertBlock},
		{"button", c.convertButton},
		{"badge", c.convertBadge},
		{"alert", c.convertAlert},
		{"card", c.convertCard},
		{"hr", c.convertHr},
		{"container", c.convertContainer},
		{"grid", c.convertGrid},
		{"stack", c.convertStack},
		{"color", c.convertColor},
		{"spacing", c.convertSpacing},
		{"margin", c.convertMargin},
		{"spacer", c.convertSpacer},
		{"align", c.convertAlign},
		{"padding", c.convertPadding},
		{"preview", c.convertPreview},
		{"table", c.convertTable},
	}
	for _, conv := range converters {
		if err := conv.fn(doc); err != nil {
			return nil, fmt.Errorf("unable to convert %s: %w", conv.name, err)
		}
	}
	return doc, nil
}

// inlineStyles compiles the email stylesheet and distributes it over style
// attributes.
func (c *Compiler) inlineStyles(doc *html.Node) error {
	cssText, err := c.scss.EmailCSS(c.emailExtra)
	if err != nil {
		return err
	}
	sheet, err := c.parser.Parse([]byte(cssText), "email stylesheet")
	if err != nil {
		return fmt.Errorf("unable to parse email stylesheet: %w", err)
	}
	return c.inliner.Apply(doc, sheet)
}

func (c *Compiler) configureDocument(doc *html.Node) error {
	if err := c.addHeadStyle(doc); err != nil {
		return err
	}
	c.addMissingMetaTags(doc)
	c.addVersionComment(doc)
	return nil
}

var metaTags = []struct {
	attr, value string
	code        html.Node
}{
	{"http-equiv", "x-ua-compatible", html.Node{
		Attr: []html.Attribute{{Key: "http-equiv", Val: "x-ua-compatible"}, {Key: "content", Val: "ie=edge"}},
	}},
	{"name", "x-apple-disable-message-reformatting", html.Node{
		Attr: []html.Attribute{{Key: "name", Val: "x-apple-disable-message-reformatting"}},
	}},
	{"name", "viewport", html.Node{
		Attr: []html.Attribute{{Key: "name", Val: "viewport"}, {Key: "content", Val: "width=device-width, initial-scale=1"}},
	}},
	{"name", "format-detection", html.Node{
		Attr: []html.Attribute{{Key: "name", Val: "format-detection"}, {Key: "content", Val: "telephone=no, date=no, address=no, email=no"}},
	}},
}

// addMissingMetaTags front-inserts client compatibility meta tags the source
// did not provide itself.
func (c *Compiler) addMissingMetaTags(doc *html.Node) {
	head := findByTag(doc, atom.Head)

	for i := len(metaTags) - 1; i >= 0; i-- {
		tag := metaTags[i]

		present := false
		for _, n := range elementChildren(head) {
			if n.DataAtom == atom.Meta && getAttr(n, tag.attr) == tag.value {
				present = true
				break
			}
		}
		if present {
			continue
		}

		meta := &html.Node{
			Type:     html.ElementNode,
			Data:     "meta",
			DataAtom: atom.Meta,
			Attr:     append([]html.Attribute(nil), tag.code.Attr...),
		}
		head.InsertBefore(meta, head.FirstChild)
	}
}

func (c *Compiler) addVersionComment(doc *html.Node) {
	head := findByTag(doc, atom.Head)
	comment := &html.Node{
		Type: html.CommentNode,
		Data: fmt.Sprintf(" Compiled with %s version: %s ", misc.GetAppName(), misc.GetVersion()),
	}
	head.InsertBefore(comment, head.FirstChild)
}

// finalize serializes the document with the email compatibility doctype,
// escaping everything outside of ASCII.
func (c *Compiler) finalize(doc *html.Node) (string, error) {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			doc.RemoveChild(n)
			break
		}
	}

	var sb strings.Builder
	sb.WriteString(emailDoctype)
	sb.WriteString("\n")
	if err := html.Render(&sb, doc); err != nil {
		return "", fmt.Errorf("unable to render document: %w", err)
	}
	return escapeNonASCII(sb.String()), nil
}

// escapeNonASCII replaces every rune outside of ASCII with a numeric
// character reference so the result survives 7-bit transports.
func escapeNonASCII(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r > 0x7f {
			fmt.Fprintf(&sb, "&#%d;", r)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (c *Compiler) snapshot(stage string, doc *html.Node) {
	if c.observer == nil {
		return
	}
	text, err := renderNode(doc)
	if err != nil {
		c.log.Warn("Unable to snapshot pipeline stage", zap.String("stage", stage), zap.Error(err))
		return
	}
	c.observer(stage, text)
}
