package listing

import (
	"github.com/coregx/coregex"
)

const (
	// markerPrefix opens every compiler annotation line.
	markerPrefix = "****"
	// markerColumnShift converts the index of '$' in the raw listing line
	// into the source column: the listing prints markers two characters to
	// the right of the echoed text.
	markerColumnShift = 2
)

var (
	// $140 или $140,172,8
	codeMarkerRe = mustCompile(`\$[0-9]+(,[0-9]+)*`)
	// "  LINE 12" c любым отступом
	lineDirectiveRe = mustCompile(`^[ \t]*LINE[ \t]+[0-9]+`)
	// "<digits><ws><text>" inside a marker body
	markerCodeTextRe = mustCompile(`^[ \t]*[0-9]+[ \t]+[^ \t]`)
	// "<digits><ws><text>" starting at column 0 of a plain line
	lineCodeTextRe = mustCompile(`^[0-9]+[ \t]+[^ \t]`)
	// indented "<digits><ws>": the listing's echo of a numbered source line
	sourceEchoRe = mustCompile(`^[ \t]+[0-9]+[ \t]`)
	indentRe     = mustCompile(`^[ \t]+`)
	digitsRe     = mustCompile(`[0-9]+`)
	// leftover "<digits> " at the head of an assembled message
	leadingCodeRe = mustCompile(`^[0-9]+[ \t]*`)
)

func mustCompile(pattern string) *coregex.Regexp {
	re, err := coregex.Compile(pattern)
	if err != nil {
		panic("listing: bad pattern " + pattern + ": " + err.Error())
	}
	return re
}
