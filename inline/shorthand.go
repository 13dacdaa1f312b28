package inline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNotShorthand signals that a property has no shorthand rule and the
// caller must use the original declaration unchanged. Control flow only,
// never surfaced past the orchestrator.
var ErrNotShorthand = errors.New("not a shorthand property")

// Expansion is one longhand declaration produced from a shorthand value.
type Expansion struct {
	Property string
	Value    string
}

// ShorthandRule describes one shorthand property: the longhands it may
// produce and the policy splitting a value across them. Static configuration,
// validated at package init.
type ShorthandRule struct {
	Property  string
	Longhands []string
	split     func(r ShorthandRule, tokens []string) []Expansion
}

// Expand expands a shorthand declaration into its longhand declarations.
// Returns ErrNotShorthand when property has no shorthand rule. An empty
// result (without error) means the value did not fit the shorthand grammar
// well enough to expand losslessly and the caller keeps the original.
func Expand(property, value string) ([]Expansion, error) {
	rule, ok := shorthandIndex[strings.ToLower(property)]
	if !ok {
		return nil, ErrNotShorthand
	}
	tokens := splitValue(value)
	if len(tokens) == 0 {
		return nil, nil
	}
	return rule.split(rule, tokens), nil
}

// IsShorthand reports whether property has a shorthand rule.
func IsShorthand(property string) bool {
	_, ok := shorthandIndex[strings.ToLower(property)]
	return ok
}

var shorthandTable = []ShorthandRule{
	{"margin", []string{"margin-top", "margin-right", "margin-bottom", "margin-left"}, splitBox},
	{"padding", []string{"padding-top", "padding-right", "padding-bottom", "padding-left"}, splitBox},
	{"border", []string{"border-width", "border-style", "border-color"}, splitEdge},
	{"border-top", []string{"border-top-width", "border-top-style", "border-top-color"}, splitEdge},
	{"border-right", []string{"border-right-width", "border-right-style", "border-right-color"}, splitEdge},
	{"border-bottom", []string{"border-bottom-width", "border-bottom-style", "border-bottom-color"}, splitEdge},
	{"border-left", []string{"border-left-width", "border-left-style", "border-left-color"}, splitEdge},
	{"background", []string{"background-color", "background-image", "background-repeat", "background-position"}, splitBackground},
	{"font", []string{"font-style", "font-variant", "font-weight", "font-size", "line-height", "font-family"}, splitFont},
}

var shorthandIndex = mustIndexShorthands(shorthandTable)

// mustIndexShorthands validates the static shorthand table and builds the
// lookup map. Malformed configuration is a programmer error, fatal at start.
func mustIndexShorthands(table []ShorthandRule) map[string]ShorthandRule {
	index := make(map[string]ShorthandRule, len(table))
	for _, r := range table {
		if r.Property == "" || r.Property != strings.ToLower(r.Property) {
			panic(fmt.Sprintf("shorthand table: bad property name %q", r.Property))
		}
		if len(r.Longhands) == 0 {
			panic(fmt.Sprintf("shorthand table: %q has no longhands", r.Property))
		}
		for _, l := range r.Longhands {
			if l == "" || l == r.Property {
				panic(fmt.Sprintf("shorthand table: %q has bad longhand %q", r.Property, l))
			}
		}
		if r.split == nil {
			panic(fmt.Sprintf("shorthand table: %q has no split policy", r.Property))
		}
		if _, dup := index[r.Property]; dup {
			panic(fmt.Sprintf("shorthand table: duplicate entry for %q", r.Property))
		}
		index[r.Property] = r
	}
	return index
}

// splitBox is the positional 1-2-3-4 value grammar shared by margin and
// padding. All four longhands are always produced, values replicated per the
// CSS box model rules.
func splitBox(r ShorthandRule, tokens []string) []Expansion {
	var top, right, bottom, left string
	switch len(tokens) {
	case 1:
		top, right, bottom, left = tokens[0], tokens[0], tokens[0], tokens[0]
	case 2:
		top, bottom = tokens[0], tokens[0]
		right, left = tokens[1], tokens[1]
	case 3:
		top = tokens[0]
		right, left = tokens[1], tokens[1]
		bottom = tokens[2]
	case 4:
		top, right, bottom, left = tokens[0], tokens[1], tokens[2], tokens[3]
	default:
		return nil
	}
	return []Expansion{
		{r.Longhands[0], top},
		{r.Longhands[1], right},
		{r.Longhands[2], bottom},
		{r.Longhands[3], left},
	}
}

// splitEdge handles the keyword-classified <width> <style> <color> grammar of
// border and its per-side variants. Expansion is PARTIAL: only components
// actually present in the value are emitted, omitted ones are not filled with
// CSS defaults. "border: 0" therefore expands to the width longhand alone.
func splitEdge(r ShorthandRule, tokens []string) []Expansion {
	var width, style, color []string
	for _, t := range tokens {
		switch {
		case isBorderWidth(t):
			width = append(width, t)
		case isBorderStyle(t):
			style = append(style, t)
		default:
			color = append(color, t)
		}
	}

	var out []Expansion
	if len(width) > 0 {
		out = append(out, Expansion{r.Longhands[0], strings.Join(width, " ")})
	}
	if len(style) > 0 {
		out = append(out, Expansion{r.Longhands[1], strings.Join(style, " ")})
	}
	if len(color) > 0 {
		out = append(out, Expansion{r.Longhands[2], strings.Join(color, " ")})
	}
	return out
}

// splitBackground emits the background components it can classify. Values
// with components it cannot place (positions, multiple layers) are left
// unexpanded to not lose information.
func splitBackground(r ShorthandRule, tokens []string) []Expansion {
	var color, image, repeat string
	for _, t := range tokens {
		lower := strings.ToLower(t)
		switch {
		case strings.HasPrefix(lower, "url("):
			if image != "" {
				return nil
			}
			image = t
		case backgroundRepeats[lower]:
			if repeat != "" {
				return nil
			}
			repeat = lower
		case isColorValue(t):
			if color != "" {
				return nil
			}
			color = t
		default:
			return nil
		}
	}

	var out []Expansion
	if color != "" {
		out = append(out, Expansion{r.Longhands[0], color})
	}
	if image != "" {
		out = append(out, Expansion{r.Longhands[1], image})
	}
	if repeat != "" {
		out = append(out, Expansion{r.Longhands[2], repeat})
	}
	return out
}

// splitFont handles "[style||variant||weight] size[/line-height] family...".
// A value without a recognizable size token is left unexpanded.
func splitFont(r ShorthandRule, tokens []string) []Expansion {
	sizeAt := -1
	for i, t := range tokens {
		if startsNumeric(t) {
			sizeAt = i
			break
		}
	}
	if sizeAt < 0 || sizeAt == len(tokens)-1 {
		// no size, or size without family: not the full font grammar
		return nil
	}

	var out []Expansion
	for _, t := range tokens[:sizeAt] {
		lower := strings.ToLower(t)
		switch {
		case lower == "italic" || lower == "oblique":
			out = append(out, Expansion{"font-style", lower})
		case lower == "small-caps":
			out = append(out, Expansion{"font-variant", lower})
		case fontWeights[lower]:
			out = append(out, Expansion{"font-weight", lower})
		case lower == "normal":
			// initial value for style/variant/weight, nothing to emit
		default:
			return nil
		}
	}

	size := tokens[sizeAt]
	if before, after, found := strings.Cut(size, "/"); found {
		out = append(out, Expansion{"font-size", before})
		if after != "" {
			out = append(out, Expansion{"line-height", after})
		}
	} else {
		out = append(out, Expansion{"font-size", size})
	}

	family := strings.Join(tokens[sizeAt+1:], " ")
	// a line-height may be separated from the slash by spaces
	if strings.HasPrefix(family, "/") {
		lh, rest, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(family, "/")), " ")
		out = append(out, Expansion{"line-height", lh})
		family = strings.TrimSpace(rest)
	}
	if family == "" {
		return nil
	}
	out = append(out, Expansion{"font-family", family})
	return out
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true,
	"solid": true, "double": true, "groove": true, "ridge": true,
	"inset": true, "outset": true,
}

var backgroundRepeats = map[string]bool{
	"repeat": true, "repeat-x": true, "repeat-y": true, "no-repeat": true,
}

var fontWeights = map[string]bool{
	"bold": true, "bolder": true, "lighter": true,
	"100": true, "200": true, "300": true, "400": true, "500": true,
	"600": true, "700": true, "800": true, "900": true,
}

func isBorderStyle(token string) bool {
	return borderStyles[strings.ToLower(token)]
}

func isBorderWidth(token string) bool {
	lower := strings.ToLower(token)
	if lower == "thin" || lower == "medium" || lower == "thick" {
		return true
	}
	return startsNumeric(token)
}

func startsNumeric(token string) bool {
	if token == "" {
		return false
	}
	r := rune(token[0])
	return unicode.IsDigit(r) || r == '.' || r == '-' || r == '+'
}

// isColorValue recognizes the color spellings common in email CSS: hex,
// functional notations and keywords from the CSS named-color set.
func isColorValue(token string) bool {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "#") {
		return true
	}
	for _, fn := range []string{"rgb(", "rgba(", "hsl(", "hsla("} {
		if strings.HasPrefix(lower, fn) {
			return true
		}
	}
	if lower == "transparent" || lower == "currentcolor" {
		return true
	}
	return namedColors[lower]
}

var namedColors = map[string]bool{
	"black": true, "silver": true, "gray": true, "grey": true, "white": true,
	"maroon": true, "red": true, "purple": true, "fuchsia": true,
	"green": true, "lime": true, "olive": true, "yellow": true,
	"navy": true, "blue": true, "teal": true, "aqua": true,
	"orange": true, "brown": true, "pink": true, "gold": true,
	"indigo": true, "violet": true, "crimson": true, "coral": true,
	"salmon": true, "khaki": true, "plum": true, "orchid": true,
	"turquoise": true, "tan": true, "beige": true, "ivory": true,
	"lavender": true, "magenta": true, "cyan": true,
}

// splitValue tokenizes a CSS value on whitespace but keeps functional
// notations like rgba(0, 0, 0, 0.5) and quoted strings together.
func splitValue(value string) []string {
	var tokens []string
	var sb strings.Builder
	depth := 0
	var quote rune

	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}

	for _, r := range value {
		switch {
		case quote != 0:
			sb.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			sb.WriteRune(r)
		case r == '(':
			depth++
			sb.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			sb.WriteRune(r)
		case depth == 0 && unicode.IsSpace(r):
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return tokens
}
