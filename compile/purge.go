package compile

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"bec/css"
	"bec/scss"
)

// addHeadStyle compiles the head stylesheet, purges selectors nothing in the
// document matches and appends the result to the document head.
func (c *Compiler) addHeadStyle(doc *html.Node) error {
	cssText, err := c.scss.HeadCSS(c.headExtra)
	if err != nil {
		return err
	}
	purged, err := c.purgeCSS(doc, cssText)
	if err != nil {
		return err
	}

	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: purged})

	head := findByTag(doc, atom.Head)
	head.AppendChild(style)
	return nil
}

// purgeCSS drops rules past the purge marker whose selectors match nothing in
// the document. Rules before the marker are always kept. Selectors which
// cannot be parsed are kept, pseudo classes in them never match static
// content otherwise.
func (c *Compiler) purgeCSS(doc *html.Node, cssText string) (string, error) {
	def, custom, found := strings.Cut(cssText, scss.PurgeMarker)
	if !found {
		return cssText, nil
	}

	sheet, err := c.parser.Parse([]byte(custom), "head stylesheet")
	if err != nil {
		return "", fmt.Errorf("unable to parse head stylesheet: %w", err)
	}

	kept := &css.Stylesheet{}
	dropped := 0
	for _, item := range sheet.Items {
		switch {
		case item.Rule != nil:
			if c.selectorsMatch(doc, item.Rule.Selectors) {
				kept.Items = append(kept.Items, item)
			} else {
				dropped++
			}
		case item.MediaBlock != nil:
			media := &css.MediaBlock{Query: item.MediaBlock.Query}
			for _, rule := range item.MediaBlock.Rules {
				if c.selectorsMatch(doc, rule.Selectors) {
					media.Rules = append(media.Rules, rule)
				} else {
					dropped++
				}
			}
			if len(media.Rules) > 0 {
				kept.Items = append(kept.Items, css.StylesheetItem{MediaBlock: media})
			}
		default:
			kept.Items = append(kept.Items, item)
		}
	}
	c.log.Debug("Purged head stylesheet", zap.Int("dropped", dropped))

	return def + kept.String(), nil
}

func (c *Compiler) selectorsMatch(doc *html.Node, selectors []string) bool {
	for _, s := range selectors {
		sel, err := cascadia.Parse(s)
		if err != nil {
			return true
		}
		if cascadia.Query(doc, sel) != nil {
			return true
		}
	}
	return false
}
