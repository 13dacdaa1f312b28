package inline

import (
	"fmt"
	"strings"
)

// Attribute is a synthesized HTML presentation attribute.
type Attribute struct {
	Name  string
	Value string
}

// AttributeRule maps one CSS property to a legacy presentation attribute for
// a set of element tags. Static configuration, validated at package init.
// Rule order is part of the configuration: the first rule producing a value
// for an attribute wins, later rules targeting the same attribute are skipped.
type AttributeRule struct {
	Property  string
	Attribute string
	Tags      []string                     // applicable lower-case tags, empty means any element
	Transform func(string) (string, bool) // CSS value -> attribute value
}

func (r AttributeRule) appliesTo(tag string) bool {
	if len(r.Tags) == 0 {
		return true
	}
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Synthesize computes presentation attributes for an element from its
// resolved declarations. Attributes the author already set are never
// overwritten: they are skipped entirely. The result is a pure addition set
// in deterministic (rule) order; existing is not mutated.
func Synthesize(tag string, resolved []Declaration, existing map[string]struct{}) []Attribute {
	if len(resolved) == 0 {
		return nil
	}
	tag = strings.ToLower(tag)

	byProperty := make(map[string]Declaration, len(resolved))
	for _, d := range resolved {
		byProperty[d.Property] = d
	}

	var out []Attribute
	assigned := make(map[string]struct{})
	for _, rule := range attributeTable {
		if _, done := assigned[rule.Attribute]; done {
			continue
		}
		if _, taken := existing[rule.Attribute]; taken {
			continue
		}
		if !rule.appliesTo(tag) {
			continue
		}
		d, ok := byProperty[rule.Property]
		if !ok {
			continue
		}
		value, ok := rule.Transform(d.Value)
		if !ok {
			continue
		}
		out = append(out, Attribute{Name: rule.Attribute, Value: value})
		assigned[rule.Attribute] = struct{}{}
	}
	return out
}

var attributeTable = mustValidateAttributes([]AttributeRule{
	{"background-color", "bgcolor", []string{"body", "table", "tr", "td", "th"}, colorValue},
	{"background-image", "background", []string{"body", "table", "td", "th"}, urlValue},
	{"width", "width", []string{"table", "td", "th", "img"}, sizeValue},
	{"height", "height", []string{"table", "tr", "td", "th", "img"}, sizeValue},
	{"text-align", "align", []string{"table", "tr", "td", "th"}, textAlignValue},
	{"float", "align", []string{"table", "img"}, floatValue},
	{"vertical-align", "valign", []string{"tr", "td", "th"}, valignValue},
})

// mustValidateAttributes checks the static attribute mapping table.
// Malformed configuration is a programmer error, fatal at start.
func mustValidateAttributes(table []AttributeRule) []AttributeRule {
	for _, r := range table {
		if r.Property == "" || r.Property != strings.ToLower(r.Property) {
			panic(fmt.Sprintf("attribute table: bad property name %q", r.Property))
		}
		if r.Attribute == "" || r.Attribute != strings.ToLower(r.Attribute) {
			panic(fmt.Sprintf("attribute table: bad attribute name %q", r.Attribute))
		}
		if r.Transform == nil {
			panic(fmt.Sprintf("attribute table: %q -> %q has no transform", r.Property, r.Attribute))
		}
		for _, t := range r.Tags {
			if t == "" || t != strings.ToLower(t) {
				panic(fmt.Sprintf("attribute table: %q -> %q has bad tag %q", r.Property, r.Attribute, t))
			}
		}
	}
	return table
}

// colorValue passes a color through as-is; email clients understand both hex
// and named colors in bgcolor.
func colorValue(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "transparent") {
		return "", false
	}
	return v, true
}

// sizeValue converts a CSS length to the unit-less HTML attribute form:
// pixel values lose the suffix, percentages are kept verbatim. Anything else
// has no attribute equivalent.
func sizeValue(v string) (string, bool) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasSuffix(v, "px"):
		n := strings.TrimSuffix(v, "px")
		if !isNumeric(n) {
			return "", false
		}
		return n, true
	case strings.HasSuffix(v, "%"):
		if !isNumeric(strings.TrimSuffix(v, "%")) {
			return "", false
		}
		return v, true
	case isNumeric(v):
		return v, true
	}
	return "", false
}

// isNumeric accepts plain non-negative CSS numbers. Lengths in any other
// unit (em, rem, vw, ...) are rejected whole, a leading digit is not enough.
func isNumeric(v string) bool {
	if v == "" {
		return false
	}
	dot := false
	for i := 0; i < len(v); i++ {
		switch {
		case v[i] >= '0' && v[i] <= '9':
		case v[i] == '.' && !dot && len(v) > 1:
			dot = true
		default:
			return false
		}
	}
	return true
}

func textAlignValue(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "left", "center", "right", "justify":
		return v, true
	}
	return "", false
}

func floatValue(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "left" || v == "right" {
		return v, true
	}
	return "", false
}

func valignValue(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "top", "middle", "bottom", "baseline":
		return v, true
	}
	return "", false
}

// urlValue extracts the target of a url(...) reference.
func urlValue(v string) (string, bool) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	if !strings.HasPrefix(lower, "url(") || !strings.HasSuffix(v, ")") {
		return "", false
	}
	inner := strings.TrimSpace(v[4 : len(v)-1])
	if len(inner) >= 2 &&
		((inner[0] == '"' && inner[len(inner)-1] == '"') ||
			(inner[0] == '\'' && inner[len(inner)-1] == '\'')) {
		inner = inner[1 : len(inner)-1]
	}
	if inner == "" {
		return "", false
	}
	return inner, true
}
