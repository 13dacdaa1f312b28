//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// path separators are handled in CleanFileName itself, nothing else is reserved
const extraInvalidNameRunes = ""

// EnableColorOutput checks if colorized output is possible.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
