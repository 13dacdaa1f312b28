package config

import (
	"os"
	"strings"
)

// CleanFileName drops characters the target filesystem cannot take, trims
// leading dots so results never hide, and guards against the empty name.
// Platform specific characters come from extraInvalidNameRunes.
func CleanFileName(in string) string {
	invalid := extraInvalidNameRunes + string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if strings.ContainsRune(invalid, sym) {
			return -1
		}
		return sym
	}, in), ".")
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
