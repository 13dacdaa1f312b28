package compile

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func renderNode(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", fmt.Errorf("unable to render node: %w", err)
	}
	return sb.String(), nil
}

// innerHTML serializes all children of a node, text included.
func innerHTML(n *html.Node) (string, error) {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("unable to render node: %w", err)
		}
	}
	return sb.String(), nil
}

// parseFragments parses an HTML fragment as if it appeared inside an element
// with the given tag. Returned nodes are detached.
func parseFragments(fragment string, ctx atom.Atom) ([]*html.Node, error) {
	ctxNode := &html.Node{
		Type:     html.ElementNode,
		Data:     ctx.String(),
		DataAtom: ctx,
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return nil, fmt.Errorf("unable to parse fragment: %w", err)
	}
	return nodes, nil
}

// parseElement parses a fragment expected to hold a single element and
// returns that element.
func parseElement(fragment string, ctx atom.Atom) (*html.Node, error) {
	nodes, err := parseFragments(fragment, ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("fragment has no element: %q", fragment)
}

func replaceNode(old *html.Node, repl ...*html.Node) {
	parent := old.Parent
	for _, n := range repl {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func elementChildren(n *html.Node) []*html.Node {
	var res []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			res = append(res, c)
		}
	}
	return res
}

// walkElements visits every element in the tree depth-first. Visitor must not
// detach the node it is called with.
func walkElements(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, visit)
	}
}

// collectElements returns matching elements in document order. Safe to use
// when the visitor replaces collected nodes afterwards.
func collectElements(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var res []*html.Node
	walkElements(root, func(n *html.Node) {
		if match(n) {
			res = append(res, n)
		}
	})
	return res
}

func mustSelector(s string) cascadia.SelectorGroup {
	sel, err := cascadia.ParseGroup(s)
	if err != nil {
		panic(fmt.Sprintf("bad selector %q: %v", s, err))
	}
	return sel
}

// matcher is satisfied by cascadia selectors.
type matcher interface {
	Match(*html.Node) bool
}

func selectAll(root *html.Node, sel matcher) []*html.Node {
	return collectElements(root, func(n *html.Node) bool { return sel.Match(n) })
}

func findByTag(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walkElements(root, func(n *html.Node) {
		if found == nil && n.DataAtom == a {
			found = n
		}
	})
	return found
}

func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func classList(n *html.Node) []string {
	return strings.Fields(getAttr(n, "class"))
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

// joinClasses glues class fragments together skipping empty ones.
func joinClasses(parts ...string) string {
	var res []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return strings.Join(res, " ")
}
