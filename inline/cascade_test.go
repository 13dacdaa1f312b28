package inline_test

import (
	"testing"

	"bec/inline"
)

func TestResolve_UniquenessInvariant(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Specificity: inline.Specificity{0, 1, 0}, Order: 0},
		{Property: "color", Value: "green", Specificity: inline.Specificity{0, 1, 0}, Order: 1},
		{Property: "color", Value: "blue", Specificity: inline.Specificity{0, 0, 1}, Order: 2},
		{Property: "width", Value: "100%", Order: 3},
	}

	resolved := inline.Resolve(decls)

	seen := make(map[string]bool)
	for _, d := range resolved {
		if seen[d.Property] {
			t.Fatalf("property %q resolved more than once", d.Property)
		}
		seen[d.Property] = true
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(resolved))
	}
}

func TestResolve_SpecificityBeatsOrder(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Specificity: inline.Specificity{0, 1, 0}, Order: 0},
		{Property: "color", Value: "green", Specificity: inline.Specificity{0, 0, 1}, Order: 1},
	}

	resolved := inline.Resolve(decls)
	if resolved[0].Value != "red" {
		t.Errorf("class selector must beat type selector regardless of order, got %q", resolved[0].Value)
	}
}

func TestResolve_LaterSourceOrderWins(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Specificity: inline.Specificity{0, 1, 0}, Order: 0},
		{Property: "color", Value: "green", Specificity: inline.Specificity{0, 1, 0}, Order: 1},
	}

	resolved := inline.Resolve(decls)
	if resolved[0].Value != "green" {
		t.Errorf("later declaration must win the tie, got %q", resolved[0].Value)
	}
}

func TestResolve_InlineBeatsAnySpecificity(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Specificity: inline.Specificity{9, 9, 9}, Order: 0},
		{Property: "color", Value: "blue", Inline: true, Order: 1},
	}

	resolved := inline.Resolve(decls)
	if resolved[0].Value != "blue" {
		t.Errorf("inline style must beat any external specificity, got %q", resolved[0].Value)
	}
}

func TestResolve_ExternalImportantBeatsInline(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Important: true, Specificity: inline.Specificity{0, 0, 1}, Order: 0},
		{Property: "color", Value: "blue", Inline: true, Order: 1},
	}

	resolved := inline.Resolve(decls)
	if resolved[0].Value != "red" {
		t.Errorf("external !important must beat non-important inline style, got %q", resolved[0].Value)
	}
}

func TestResolve_InlineImportantBeatsExternalImportant(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Important: true, Specificity: inline.Specificity{1, 0, 0}, Order: 0},
		{Property: "color", Value: "blue", Important: true, Inline: true, Order: 1},
	}

	resolved := inline.Resolve(decls)
	if resolved[0].Value != "blue" {
		t.Errorf("inline !important must beat external !important, got %q", resolved[0].Value)
	}
}

func TestResolve_Pure(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "color", Value: "red", Order: 1},
		{Property: "color", Value: "green", Order: 0},
	}
	before := make([]inline.Declaration, len(decls))
	copy(before, decls)

	inline.Resolve(decls)

	for i := range decls {
		if decls[i] != before[i] {
			t.Fatal("Resolve must not mutate its input")
		}
	}
}

func TestResolve_OutputOrderDeterministic(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "width", Value: "100%", Order: 2},
		{Property: "color", Value: "red", Order: 0},
		{Property: "height", Value: "10px", Order: 1},
	}

	first := inline.Resolve(decls)
	second := inline.Resolve(decls)

	if len(first) != len(second) {
		t.Fatal("resolve output length differs between runs")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("resolve output differs between runs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	if first[0].Property != "color" || first[1].Property != "height" || first[2].Property != "width" {
		t.Errorf("winners must be ordered by source position, got %+v", first)
	}
}
