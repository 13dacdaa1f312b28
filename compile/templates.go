package compile

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
)

//go:embed templates/*.html
var templateFS embed.FS

// templateValues holds variables available during fragment template expansion.
type templateValues struct {
	Contents string
	Classes  string
}

var fragmentTemplates = mustParseTemplates()

func mustParseTemplates() *template.Template {
	tmpl, err := template.New("fragments").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		panic(fmt.Sprintf("bad embedded templates: %v", err))
	}
	return tmpl
}

// expandTemplate renders one of the embedded HTML fragment templates.
func expandTemplate(name, contents, classes string) (string, error) {
	buf := new(bytes.Buffer)
	if err := fragmentTemplates.ExecuteTemplate(buf, name+".html", &templateValues{Contents: contents, Classes: classes}); err != nil {
		return "", fmt.Errorf("unable to expand template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// templateNames returns names of all embedded fragment templates, for tests.
func templateNames() []string {
	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil
	}
	for i, e := range entries {
		entries[i] = strings.TrimSuffix(strings.TrimPrefix(e, "templates/"), ".html")
	}
	return entries
}
