package diagfmt

import (
	"fmt"
	"io"

	"gamscheck/internal/diag"
	"gamscheck/internal/source"
)

// Short prints one line per diagnostic in the path:line:col form
// understood by editors and grep-style tooling.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode) error {
	for _, d := range bag.Items() {
		f := fs.Get(d.Primary.File)
		start, _ := fs.Resolve(d.Primary)
		if _, err := fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
			formatPath(f, fs, mode), start.Line, start.Col,
			d.Severity, d.Code.ID(), d.Message); err != nil {
			return err
		}
	}
	return nil
}
