package source

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
)

// LineRangeError reports a listing line that does not exist in the checked text.
type LineRangeError struct {
	Path  string
	Line  int
	Lines int
}

func (e *LineRangeError) Error() string {
	return fmt.Sprintf("%s: line %d out of range (file has %d lines)", e.Path, e.Line, e.Lines)
}

// LineCount returns the number of lines. Text after the last '\n' (even empty) is a line.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// LineBounds returns the byte range of a 1-based line, excluding its '\n'.
func (f *File) LineBounds(line int) (start, end int, err error) {
	if line < 1 || line > f.LineCount() {
		return 0, 0, &LineRangeError{Path: f.Path, Line: line, Lines: f.LineCount()}
	}
	if line > 1 {
		start = int(f.LineIdx[line-2]) + 1
	}
	if line-1 < len(f.LineIdx) {
		end = int(f.LineIdx[line-1])
	} else {
		end = len(f.Content)
	}
	return start, end, nil
}

// PointSpan maps a 1-based line and a 0-based character column onto a span
// covering a single character. Columns count runes; negative columns clamp to
// the line start and columns past the line end clamp to the line terminator.
// The span is empty only at the very end of the content.
func (f *File) PointSpan(line, column int) (Span, error) {
	start, end, err := f.LineBounds(line)
	if err != nil {
		return Span{}, err
	}
	off := start
	for n := 0; n < column && off < end; n++ {
		_, size := utf8.DecodeRune(f.Content[off:end])
		off += size
	}
	stop := off
	if off < len(f.Content) {
		_, size := utf8.DecodeRune(f.Content[off:])
		stop = off + size
	}
	s, err := safecast.Conv[uint32](off)
	if err != nil {
		return Span{}, err
	}
	e, err := safecast.Conv[uint32](stop)
	if err != nil {
		return Span{}, err
	}
	return Span{File: f.ID, Start: s, End: e}, nil
}
