package convert

import (
	"bytes"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"bec/config"
	"bec/state"
)

// nameTemplateValues holds variables available to the output name template.
type nameTemplateValues struct {
	Context    string
	SourceFile string
	SourceDir  string
}

// buildOutputPath returns constructed output file path/name based on various
// input parameters. It uses either default naming scheme or user-defined
// template and takes into account whether to preserve source directory
// structure on the output. Cleans up path and if requested transliterates it.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildFileName(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)), env)

	if env.Cfg.Document.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expanded := expandOutputNameTemplate(src, env)
	if expanded == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	// expansion may introduce subdirectories, keep them but clean each segment
	segments := strings.Split(filepath.ToSlash(expanded), "/")
	for i, seg := range segments {
		if i == len(segments)-1 {
			segments[i] = buildFileName(seg, env)
		} else {
			segments[i] = config.CleanFileName(seg)
		}
	}
	return filepath.Join(append([]string{outDir}, segments...)...)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildFileName(base string, env *state.LocalEnv) string {
	if env.Cfg.Document.FileNameTransliterate {
		base = slug.Make(base)
	}
	return config.CleanFileName(base) + ".html"
}

func expandOutputNameTemplate(src string, env *state.LocalEnv) string {
	tmpl, err := template.New(string(config.OutputNameTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(env.Cfg.Document.OutputNameTemplate)
	if err != nil {
		env.Log.Warn("Unable to parse output name template", zap.Error(err))
		return ""
	}

	values := &nameTemplateValues{
		Context:    string(config.OutputNameTemplateFieldName),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		SourceDir:  filepath.ToSlash(filepath.Dir(src)),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(buf.String())
}
