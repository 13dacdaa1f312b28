package compile

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	selBlock          = mustSelector("block, .to-table")
	selButton         = mustSelector(".btn")
	selBadge          = mustSelector(".badge")
	selAlert          = mustSelector(".alert")
	selCard           = mustSelector(".card")
	selCardBody       = mustSelector(".card-body")
	selHr             = mustSelector("hr")
	selContainer      = mustSelector(".container")
	selContainerFluid = mustSelector(".container-fluid")
	selRow            = mustSelector(".row")
	selStackRow       = mustSelector(".stack-row")
	selStackCol       = mustSelector(".stack-col")
)

var (
	reMarginTop    = regexp.MustCompile(`^m[ty]-((?:lg-)?\d+)$`)
	reMarginBottom = regexp.MustCompile(`^m[by]-((?:lg-)?\d+)$`)
	reMarginAny    = regexp.MustCompile(`^m[tby]-(?:lg-)?\d+$`)
	rePadding      = regexp.MustCompile(`^p[trblxy]?-(?:lg-)?\d+$`)
	reSpacer       = regexp.MustCompile(`^s-(?:lg-)?\d+$`)
	reSpaceY       = regexp.MustCompile(`^space-y-((?:lg-)?\d+)$`)
)

func hasClassMatch(n *html.Node, re *regexp.Regexp) bool {
	for _, c := range classList(n) {
		if re.MatchString(c) {
			return true
		}
	}
	return false
}

func firstClassMatch(n *html.Node, re *regexp.Regexp) []string {
	for _, c := range classList(n) {
		if m := re.FindStringSubmatch(c); m != nil {
			return m
		}
	}
	return nil
}

// wrapInTemplate replaces a node with the expansion of a fragment template.
func wrapInTemplate(node *html.Node, tmpl, contents, classes string) (*html.Node, error) {
	fragment, err := expandTemplate(tmpl, contents, classes)
	if err != nil {
		return nil, err
	}
	el, err := parseElement(fragment, atom.Body)
	if err != nil {
		return nil, err
	}
	replaceNode(node, el)
	return el, nil
}

// convertBody wraps all body content in a full width table so body level
// classes survive clients which strip the body tag.
func (c *Compiler) convertBody(doc *html.Node) error {
	body := findByTag(doc, atom.Body)
	classes := joinClasses(getAttr(body, "class"), "body")

	contents, err := innerHTML(body)
	if err != nil {
		return err
	}
	fragment, err := expandTemplate("body", contents, classes)
	if err != nil {
		return err
	}
	el, err := parseElement(fragment, atom.Body)
	if err != nil {
		return err
	}

	removeChildren(body)
	body.AppendChild(el)
	return nil
}

// convertBlock turns <block> elements and .to-table nodes into tables.
func (c *Compiler) convertBlock(doc *html.Node) error {
	for _, node := range selectAll(doc, selBlock) {
		classes := classList(node)
		if !hasClass(node, "to-table") {
			classes = append(classes, "to-table")
		}
		contents, err := innerHTML(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "table", contents, strings.Join(classes, " ")); err != nil {
			return err
		}
	}
	return nil
}

// convertButton wraps .btn elements in a table carrying the button classes.
func (c *Compiler) convertButton(doc *html.Node) error {
	return c.wrapKeepingNode(doc, selButton, "table")
}

func (c *Compiler) convertBadge(doc *html.Node) error {
	return c.wrapKeepingNode(doc, selBadge, "table-left")
}

func (c *Compiler) convertAlert(doc *html.Node) error {
	return c.wrapKeepingNode(doc, selAlert, "table")
}

// wrapKeepingNode moves the node's classes to a wrapping table while the node
// itself is kept inside the table cell.
func (c *Compiler) wrapKeepingNode(doc *html.Node, sel matcher, tmpl string) error {
	for _, node := range selectAll(doc, sel) {
		classes := getAttr(node, "class")
		removeAttr(node, "class")

		contents, err := renderNode(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, tmpl, contents, classes); err != nil {
			return err
		}
	}
	return nil
}

// convertCard replaces .card and .card-body nodes with tables holding their
// contents, classes moved to the table.
func (c *Compiler) convertCard(doc *html.Node) error {
	for _, sel := range []matcher{selCard, selCardBody} {
		for _, node := range selectAll(doc, sel) {
			classes := getAttr(node, "class")
			contents, err := innerHTML(node)
			if err != nil {
				return err
			}
			if _, err := wrapInTemplate(node, "table", contents, classes); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertHr renders horizontal rules as empty tables with a default vertical
// margin unless the rule already carries one.
func (c *Compiler) convertHr(doc *html.Node) error {
	for _, node := range selectAll(doc, selHr) {
		defaultMargin := "my-5"
		if hasClassMatch(node, reMarginAny) {
			defaultMargin = ""
		}
		classes := joinClasses(defaultMargin, "hr", getAttr(node, "class"))
		if _, err := wrapInTemplate(node, "table", "", classes); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) convertContainer(doc *html.Node) error {
	for _, node := range selectAll(doc, selContainer) {
		contents, err := innerHTML(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "container", contents, getAttr(node, "class")); err != nil {
			return err
		}
	}
	for _, node := range selectAll(doc, selContainerFluid) {
		contents, err := innerHTML(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "table", contents, getAttr(node, "class")); err != nil {
			return err
		}
	}
	return nil
}

func isColClass(class string) bool {
	return class == "col" || strings.HasPrefix(class, "col-")
}

func hasColClass(n *html.Node) bool {
	for _, c := range classList(n) {
		if isColClass(c) {
			return true
		}
	}
	return false
}

func hasResponsiveColClass(n *html.Node) bool {
	for _, c := range classList(n) {
		if strings.HasPrefix(c, "col-lg-") {
			return true
		}
	}
	return false
}

// convertGrid rewrites .row nodes into a div holding a single row table.
// Column children become table cells. Rows holding col-lg- columns are marked
// responsive so the head stylesheet can stack them on small screens.
func (c *Compiler) convertGrid(doc *html.Node) error {
	for _, node := range selectAll(doc, selRow) {
		classes := classList(node)
		for _, child := range elementChildren(node) {
			if hasResponsiveColClass(child) && !hasClass(node, "row-responsive") {
				classes = append(classes, "row-responsive")
				break
			}
		}

		var cells strings.Builder
		for _, child := range elementChildren(node) {
			var cell string
			var err error
			if hasColClass(child) {
				contents, err2 := innerHTML(child)
				if err2 != nil {
					return err2
				}
				cell, err = expandTemplate("td", contents, getAttr(child, "class"))
			} else {
				contents, err2 := renderNode(child)
				if err2 != nil {
					return err2
				}
				cell, err = expandTemplate("td", contents, "")
			}
			if err != nil {
				return err
			}
			cells.WriteString(cell)
		}

		rowTable, err := expandTemplate("table-to-tr", cells.String(), "")
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "div", rowTable, strings.Join(classes, " ")); err != nil {
			return err
		}
	}
	return nil
}

// convertStack turns .stack-row children into cells of a single table row and
// .stack-col children into rows of a single column table.
func (c *Compiler) convertStack(doc *html.Node) error {
	stacks := []struct {
		sel        matcher
		childTmpl  string
		parentTmpl string
	}{
		{selStackRow, "td", "table-to-tr"},
		{selStackCol, "tr", "table-to-tbody"},
	}
	for _, s := range stacks {
		for _, node := range selectAll(doc, s.sel) {
			var parts strings.Builder
			for _, child := range elementChildren(node) {
				contents, err := renderNode(child)
				if err != nil {
					return err
				}
				part, err := expandTemplate(s.childTmpl, contents, "stack-cell")
				if err != nil {
					return err
				}
				parts.WriteString(part)
			}
			if _, err := wrapInTemplate(node, s.parentTmpl, parts.String(), getAttr(node, "class")); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertColor replaces background colored divs with tables since div
// background support is spotty in email clients.
func (c *Compiler) convertColor(doc *html.Node) error {
	nodes := collectElements(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Div {
			return false
		}
		for _, cl := range classList(n) {
			if strings.HasPrefix(cl, "bg-") {
				return true
			}
		}
		return false
	})
	for _, node := range nodes {
		classes := getAttr(node, "class")
		removeAttr(node, "class")
		contents, err := innerHTML(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "table", contents, joinClasses(classes, "w-full")); err != nil {
			return err
		}
	}
	return nil
}

// convertSpacing expands space-y-N utilities into mb-N on all direct children
// but the last one.
func (c *Compiler) convertSpacing(doc *html.Node) error {
	nodes := collectElements(doc, func(n *html.Node) bool {
		return hasClassMatch(n, reSpaceY)
	})
	for _, node := range nodes {
		spacer := firstClassMatch(node, reSpaceY)[1]

		kids := elementChildren(node)
		if node.DataAtom == atom.Table {
			if td := findByTag(node, atom.Td); td != nil {
				kids = elementChildren(td)
			}
		}
		if len(kids) < 2 {
			continue
		}
		for _, child := range kids[:len(kids)-1] {
			if !hasClassMatch(child, reMarginBottom) {
				setAttr(child, "class", joinClasses(getAttr(child, "class"), "mb-"+spacer))
			}
		}
	}
	return nil
}

// convertMargin replaces margin utilities with spacer divs around the node.
// Nodes are processed innermost first so nested margins survive the reparse.
func (c *Compiler) convertMargin(doc *html.Node) error {
	nodes := collectElements(doc, func(n *html.Node) bool {
		return hasClassMatch(n, reMarginAny)
	})
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]

		top := firstClassMatch(node, reMarginTop)
		bottom := firstClassMatch(node, reMarginBottom)

		var kept []string
		for _, cl := range classList(node) {
			if !reMarginAny.MatchString(cl) {
				kept = append(kept, cl)
			}
		}
		if len(kept) > 0 {
			setAttr(node, "class", strings.Join(kept, " "))
		} else {
			removeAttr(node, "class")
		}

		var sb strings.Builder
		if top != nil {
			div, err := expandTemplate("div", "", "s-"+top[1])
			if err != nil {
				return err
			}
			sb.WriteString(div)
		}
		rendered, err := renderNode(node)
		if err != nil {
			return err
		}
		sb.WriteString(rendered)
		if bottom != nil {
			div, err := expandTemplate("div", "", "s-"+bottom[1])
			if err != nil {
				return err
			}
			sb.WriteString(div)
		}

		frags, err := parseFragments(sb.String(), atom.Div)
		if err != nil {
			return err
		}
		replaceNode(node, frags...)
	}
	return nil
}

// convertSpacer renders s-N spacer divs as fixed height tables holding a
// non-breaking space.
func (c *Compiler) convertSpacer(doc *html.Node) error {
	nodes := collectElements(doc, func(n *html.Node) bool {
		return hasClassMatch(n, reSpacer)
	})
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		classes := joinClasses(getAttr(node, "class"), "w-full")
		if _, err := wrapInTemplate(node, "table", " ", classes); err != nil {
			return err
		}
	}
	return nil
}

// convertAlign maps ax-left/ax-center/ax-right onto the align attribute,
// wrapping nodes which cannot carry it themselves.
func (c *Compiler) convertAlign(doc *html.Node) error {
	for _, side := range []string{"left", "center", "right"} {
		class := "ax-" + side
		nodes := collectElements(doc, func(n *html.Node) bool {
			return hasClass(n, class)
		})
		for i := len(nodes) - 1; i >= 0; i-- {
			node := nodes[i]
			if node.DataAtom == atom.Table || node.DataAtom == atom.Td {
				setAttr(node, "align", side)
				continue
			}

			var kept []string
			for _, cl := range classList(node) {
				if cl != class {
					kept = append(kept, cl)
				}
			}
			if len(kept) > 0 {
				setAttr(node, "class", strings.Join(kept, " "))
			} else {
				removeAttr(node, "class")
			}

			contents, err := renderNode(node)
			if err != nil {
				return err
			}
			el, err := wrapInTemplate(node, "table", contents, class)
			if err != nil {
				return err
			}
			setAttr(el, "align", side)
		}
	}
	return nil
}

// convertPadding moves padding utilities from nodes which cannot reliably
// carry padding in email clients onto a wrapping table.
func (c *Compiler) convertPadding(doc *html.Node) error {
	nodes := collectElements(doc, func(n *html.Node) bool {
		switch n.DataAtom {
		case atom.Table, atom.Td, atom.A:
			return false
		}
		return hasClassMatch(n, rePadding)
	})
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]

		var padding, kept []string
		for _, cl := range classList(node) {
			if rePadding.MatchString(cl) {
				padding = append(padding, cl)
			} else {
				kept = append(kept, cl)
			}
		}
		if len(kept) > 0 {
			setAttr(node, "class", strings.Join(kept, " "))
		} else {
			removeAttr(node, "class")
		}

		contents, err := renderNode(node)
		if err != nil {
			return err
		}
		if _, err := wrapInTemplate(node, "table", contents, strings.Join(padding, " ")); err != nil {
			return err
		}
	}
	return nil
}

// previewPadLength is how far preview text is padded with invisible
// characters so clients do not show body text after it.
const previewPadLength = 278

// convertPreview moves <preview> text into a hidden div at the very top of
// the body.
func (c *Compiler) convertPreview(doc *html.Node) error {
	preview := collectElements(doc, func(n *html.Node) bool { return n.Data == "preview" })
	if len(preview) == 0 {
		return nil
	}
	node := preview[0]

	text := nodeText(node)
	if pad := previewPadLength - len([]rune(text)); pad > 0 {
		text += strings.Repeat("͏ ‌   ", pad)
	}

	div := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: "preview"}},
	}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: text})

	node.Parent.RemoveChild(node)

	body := findByTag(doc, atom.Body)
	body.InsertBefore(div, body.FirstChild)
	return nil
}

// convertTable forces zero border, padding and spacing on every table.
func (c *Compiler) convertTable(doc *html.Node) error {
	walkElements(doc, func(n *html.Node) {
		if n.DataAtom == atom.Table {
			setAttr(n, "border", "0")
			setAttr(n, "cellpadding", "0")
			setAttr(n, "cellspacing", "0")
		}
	})
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
