package inline_test

import (
	"testing"

	"bec/inline"
)

func attrsOf(t *testing.T, tag string, decls []inline.Declaration, existing ...string) map[string]string {
	t.Helper()
	ex := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		ex[e] = struct{}{}
	}
	out := inline.Synthesize(tag, decls, ex)
	m := make(map[string]string, len(out))
	for _, a := range out {
		if _, dup := m[a.Name]; dup {
			t.Fatalf("attribute %q synthesized twice", a.Name)
		}
		m[a.Name] = a.Value
	}
	return m
}

func TestSynthesize_Bgcolor(t *testing.T) {
	m := attrsOf(t, "td", []inline.Declaration{{Property: "background-color", Value: "#ff0000"}})
	if m["bgcolor"] != "#ff0000" {
		t.Errorf("bgcolor = %q", m["bgcolor"])
	}
}

func TestSynthesize_NeverOverwritesExisting(t *testing.T) {
	m := attrsOf(t, "td",
		[]inline.Declaration{{Property: "background-color", Value: "red"}},
		"bgcolor")
	if _, ok := m["bgcolor"]; ok {
		t.Error("existing bgcolor attribute must not be overwritten")
	}
}

func TestSynthesize_TagApplicability(t *testing.T) {
	m := attrsOf(t, "span", []inline.Declaration{{Property: "background-color", Value: "red"}})
	if len(m) != 0 {
		t.Errorf("span must not receive bgcolor, got %v", m)
	}
}

func TestSynthesize_WidthHeightUnits(t *testing.T) {
	decls := []inline.Declaration{
		{Property: "width", Value: "600px"},
		{Property: "height", Value: "50%"},
	}
	m := attrsOf(t, "table", decls)
	if m["width"] != "600" {
		t.Errorf("width = %q, want px suffix stripped", m["width"])
	}
	if m["height"] != "50%" {
		t.Errorf("height = %q, want percentage kept", m["height"])
	}

	for _, v := range []string{"10em", "2rem", "50vw", "1.5.5", "px", "%"} {
		m = attrsOf(t, "td", []inline.Declaration{{Property: "width", Value: v}})
		if _, ok := m["width"]; ok {
			t.Errorf("width %q has no attribute equivalent", v)
		}
	}

	m = attrsOf(t, "td", []inline.Declaration{{Property: "width", Value: "2.5%"}})
	if m["width"] != "2.5%" {
		t.Errorf("width = %q, want fractional percentage kept", m["width"])
	}
}

func TestSynthesize_FirstMatchingRuleWins(t *testing.T) {
	// both text-align and float target align on tables; the text-align rule
	// is configured first and must win
	decls := []inline.Declaration{
		{Property: "float", Value: "right"},
		{Property: "text-align", Value: "center"},
	}
	m := attrsOf(t, "table", decls)
	if m["align"] != "center" {
		t.Errorf("align = %q, want text-align rule to win by configuration order", m["align"])
	}

	// on images only float applies
	m = attrsOf(t, "img", decls)
	if m["align"] != "right" {
		t.Errorf("img align = %q, want float value", m["align"])
	}
}

func TestSynthesize_BackgroundImage(t *testing.T) {
	m := attrsOf(t, "td", []inline.Declaration{{Property: "background-image", Value: `url("https://example.com/bg.png")`}})
	if m["background"] != "https://example.com/bg.png" {
		t.Errorf("background = %q", m["background"])
	}
}

func TestSynthesize_Valign(t *testing.T) {
	m := attrsOf(t, "td", []inline.Declaration{{Property: "vertical-align", Value: "Middle"}})
	if m["valign"] != "middle" {
		t.Errorf("valign = %q", m["valign"])
	}

	m = attrsOf(t, "td", []inline.Declaration{{Property: "vertical-align", Value: "super"}})
	if _, ok := m["valign"]; ok {
		t.Error("vertical-align: super has no valign equivalent")
	}
}

func TestSynthesize_TransparentSkipped(t *testing.T) {
	m := attrsOf(t, "td", []inline.Declaration{{Property: "background-color", Value: "transparent"}})
	if _, ok := m["bgcolor"]; ok {
		t.Error("transparent must not synthesize bgcolor")
	}
}
