// Package inline turns stylesheet rules into per-element style attributes and
// legacy presentation attributes, the way HTML email requires. It resolves
// the cascade for every element, expands shorthand properties and synthesizes
// attributes like bgcolor for clients that ignore CSS entirely.
package inline

import "github.com/andybalholm/cascadia"

// Specificity ranks competing selectors: id count, class count, type count.
// Comparison is lexicographic. Inline style is not encoded here, it is an
// origin (see Declaration.Inline) that outranks any selector specificity.
type Specificity [3]int

func specificityOf(sel cascadia.Sel) Specificity {
	return Specificity(sel.Specificity())
}

// Less reports whether s ranks strictly lower than other.
func (s Specificity) Less(other Specificity) bool {
	for i := range s {
		if s[i] != other[i] {
			return s[i] < other[i]
		}
	}
	return false
}

// Declaration is one effective property declaration competing for an element.
// Immutable once created.
type Declaration struct {
	Property    string
	Value       string
	Important   bool
	Inline      bool // originates from the element's style attribute
	Specificity Specificity
	Order       int // global source-order index, inline declarations ordered after all rules
}

// beats reports whether candidate c wins over incumbent d for the same
// property: importance first, then inline origin, then specificity, then
// source order (later wins). An external !important rule outranks
// non-important inline style; inline !important outranks external !important.
func (c Declaration) beats(d Declaration) bool {
	if c.Important != d.Important {
		return c.Important
	}
	if c.Inline != d.Inline {
		return c.Inline
	}
	if c.Specificity != d.Specificity {
		return d.Specificity.Less(c.Specificity)
	}
	return c.Order >= d.Order
}
