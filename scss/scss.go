// Package scss compiles SCSS sources to CSS using libsass.
package scss

import (
	"bytes"
	"fmt"
	"strings"

	libsass "github.com/wellington/go-libsass"
	"go.uber.org/zap"
)

// Output styles accepted by Compiler.
const (
	StyleNested     = "nested"
	StyleExpanded   = "expanded"
	StyleCompact    = "compact"
	StyleCompressed = "compressed"
)

var outputStyles = map[string]int{
	StyleNested:     libsass.NESTED_STYLE,
	StyleExpanded:   libsass.EXPANDED_STYLE,
	StyleCompact:    libsass.COMPACT_STYLE,
	StyleCompressed: libsass.COMPRESSED_STYLE,
}

// Compiler turns SCSS text into CSS text.
type Compiler struct {
	log          *zap.Logger
	includePaths []string
}

// NewCompiler creates SCSS compiler. Nil logger is substituted with no-op one.
func NewCompiler(log *zap.Logger, includePaths ...string) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{
		log:          log.Named("scss"),
		includePaths: includePaths,
	}
}

// Compile renders src to CSS using requested output style.
func (c *Compiler) Compile(src, style string) (string, error) {
	st, ok := outputStyles[style]
	if !ok {
		return "", fmt.Errorf("unknown scss output style %q", style)
	}

	var out bytes.Buffer
	opts := []libsass.FuncOpt{
		libsass.OutputStyle(st),
	}
	if len(c.includePaths) > 0 {
		opts = append(opts, libsass.IncludePaths(c.includePaths))
	}

	comp, err := libsass.New(&out, strings.NewReader(src), opts...)
	if err != nil {
		return "", fmt.Errorf("unable to create scss compiler: %w", err)
	}
	if err := comp.Run(); err != nil {
		return "", fmt.Errorf("unable to compile scss: %w", err)
	}

	c.log.Debug("Compiled scss", zap.String("style", style), zap.Int("in", len(src)), zap.Int("out", out.Len()))
	return out.String(), nil
}
