package scss

import (
	_ "embed"
)

// PurgeMarker separates CSS which is always kept in the document head from
// CSS which could be purged when no element in the document matches it.
const PurgeMarker = "/*! allow_purge_after */"

//go:embed assets/bootstrap-email.scss
var emailSCSS string

//go:embed assets/bootstrap-head.scss
var headSCSS string

// EmailCSS compiles the stylesheet used for inlining. Additional SCSS from
// configuration is appended to the embedded source so user rules can rely on
// framework variables and come later in the cascade.
func (c *Compiler) EmailCSS(extra string) (string, error) {
	src := emailSCSS
	if len(extra) > 0 {
		src += "\n" + extra
	}
	return c.Compile(src, StyleExpanded)
}

// HeadCSS compiles the stylesheet embedded into the document head. Rules past
// PurgeMarker in the result are subject to purging.
func (c *Compiler) HeadCSS(extra string) (string, error) {
	src := headSCSS
	if len(extra) > 0 {
		src += "\n" + extra
	}
	return c.Compile(src, StyleCompressed)
}
