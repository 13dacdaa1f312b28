package inline

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"bec/css"
)

// ParseError is returned when input HTML or CSS is malformed beyond what the
// underlying parsers can recover from. Processing aborts, no partial output
// is produced.
type ParseError struct {
	What string // "html" or "css"
	Err  error
}

func (e *ParseError) Error() string {
	return "unable to parse " + e.What + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Inliner applies stylesheet rules to a document as per-element style
// attributes and synthesizes legacy presentation attributes. Safe to reuse
// across documents, no state is carried between calls.
type Inliner struct {
	log    *zap.Logger
	parser *css.Parser
}

// New creates a new Inliner.
func New(log *zap.Logger) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inliner{
		log:    log.Named("inliner"),
		parser: css.NewParser(log),
	}
}

// Inline resolves css against html and returns the document with style
// attributes written out per element and presentation attributes added where
// configured. The input string is never mutated; output is the serialized
// working tree. Deterministic: identical inputs produce identical output.
func (in *Inliner) Inline(htmlText, cssText string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return "", &ParseError{What: "html", Err: err}
	}
	sheet, err := in.parser.Parse([]byte(cssText), "inline-css")
	if err != nil {
		return "", &ParseError{What: "css", Err: err}
	}
	if err := in.Apply(doc, sheet); err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Apply is the tree-level entry point for callers that already hold a parsed
// document: it mutates doc in place.
func (in *Inliner) Apply(doc *html.Node, sheet *css.Stylesheet) error {
	rules, total := in.compileRules(sheet)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !skipElements[n.Data] {
			in.processElement(n, rules, total)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nil
}

// elements that never receive inline styles
var skipElements = map[string]bool{
	"html": true, "head": true, "title": true, "meta": true,
	"link": true, "style": true, "script": true, "base": true,
}

// compiledRule is one selector ready for matching, with the declarations it
// contributes and their global source-order base.
type compiledRule struct {
	sel   cascadia.Sel
	spec  Specificity
	decls []css.Declaration
	base  int
}

// compileRules turns the stylesheet's plain rules into matchers. Rules inside
// @media blocks, selectors cascadia rejects and selectors depending on
// dynamic state cannot be inlined and are skipped. Returns the matchers and
// the total declaration count, which inline-style declarations are ordered
// after.
func (in *Inliner) compileRules(sheet *css.Stylesheet) ([]compiledRule, int) {
	var out []compiledRule
	order := 0
	skippedMedia := 0

	for _, item := range sheet.Items {
		if item.MediaBlock != nil {
			skippedMedia += len(item.MediaBlock.Rules)
			continue
		}
		if item.Rule == nil {
			continue
		}
		for _, selText := range item.Rule.Selectors {
			if hasDynamicPseudo(selText) {
				in.log.Debug("Selector cannot be inlined", zap.String("selector", selText))
				continue
			}
			sel, err := cascadia.Parse(selText)
			if err != nil {
				in.log.Debug("Unsupported selector", zap.String("selector", selText), zap.Error(err))
				continue
			}
			out = append(out, compiledRule{
				sel:   sel,
				spec:  specificityOf(sel),
				decls: item.Rule.Declarations,
				base:  order,
			})
			order += len(item.Rule.Declarations)
		}
	}

	if skippedMedia > 0 {
		in.log.Debug("Rules in @media blocks are not inlined", zap.Int("rules", skippedMedia))
	}
	return out, order
}

// hasDynamicPseudo reports whether a selector depends on user interaction or
// rendering state and therefore has no static per-element answer.
func hasDynamicPseudo(sel string) bool {
	if strings.Contains(sel, "::") {
		return true
	}
	lower := strings.ToLower(sel)
	for _, p := range []string{
		":hover", ":focus", ":active", ":visited", ":link", ":target",
		":before", ":after", ":placeholder", ":selection",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// processElement runs the per-element pipeline: collect matched declarations
// plus the existing style attribute, resolve the cascade, expand shorthands,
// write the style attribute back and synthesize presentation attributes.
func (in *Inliner) processElement(n *html.Node, rules []compiledRule, inlineBase int) {
	var decls []Declaration
	for _, r := range rules {
		if !r.sel.Match(n) {
			continue
		}
		for i, d := range r.decls {
			decls = append(decls, Declaration{
				Property:    d.Property,
				Value:       d.Value,
				Important:   d.Important,
				Specificity: r.spec,
				Order:       r.base + i,
			})
		}
	}

	styleAt := -1
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, "style") {
			styleAt = i
			break
		}
	}
	if styleAt >= 0 {
		inlineDecls, err := in.parser.ParseDeclarations([]byte(n.Attr[styleAt].Val))
		if err != nil {
			// keep whatever parsed, the attribute is rewritten from it
			in.log.Debug("Malformed style attribute", zap.String("tag", n.Data), zap.Error(err))
		}
		for i, d := range inlineDecls {
			decls = append(decls, Declaration{
				Property:  d.Property,
				Value:     d.Value,
				Important: d.Important,
				Inline:    true,
				Order:     inlineBase + i,
			})
		}
	}

	if len(decls) == 0 {
		return
	}

	resolved := Resolve(expandAll(Resolve(decls)))

	style := renderStyle(resolved)
	if styleAt >= 0 {
		n.Attr[styleAt].Val = style
	} else {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: style})
	}

	existing := make(map[string]struct{}, len(n.Attr))
	for _, a := range n.Attr {
		existing[strings.ToLower(a.Key)] = struct{}{}
	}
	for _, a := range Synthesize(n.Data, resolved, existing) {
		n.Attr = append(n.Attr, html.Attribute{Key: a.Name, Val: a.Value})
	}
}

// expandAll replaces every shorthand winner with its longhand declarations,
// carried at the shorthand's importance, origin, specificity and order so a
// second cascade pass settles conflicts against directly declared longhands.
func expandAll(decls []Declaration) []Declaration {
	out := make([]Declaration, 0, len(decls))
	for _, d := range decls {
		exps, err := Expand(d.Property, d.Value)
		if err != nil || len(exps) == 0 {
			// not a shorthand, or a value the grammar cannot split losslessly
			out = append(out, d)
			continue
		}
		for _, e := range exps {
			longhand := d
			longhand.Property = e.Property
			longhand.Value = e.Value
			out = append(out, longhand)
		}
	}
	return out
}

// renderStyle serializes resolved declarations to a style attribute value.
func renderStyle(decls []Declaration) string {
	var sb strings.Builder
	for i, d := range decls {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(d.Property)
		sb.WriteString(": ")
		sb.WriteString(d.Value)
		if d.Important {
			sb.WriteString(" !important")
		}
	}
	return sb.String()
}
