package lsp

import (
	"unicode/utf16"
	"unicode/utf8"
)

// applyChanges applies didChange events in order. A change without a range
// replaces the whole text.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := max(offsetForPosition(text, change.Range.End), start)
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition maps a UTF-16 position to a byte offset in text,
// clamping past-the-end lines and columns.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	i := 0
	for line := 0; line < pos.Line; line++ {
		nl := indexByteFrom(text, i, '\n')
		if nl < 0 {
			return len(text)
		}
		i = nl + 1
	}
	units := 0
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := utf16.RuneLen(r)
		if need < 0 {
			need = 1
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}

func indexByteFrom(s string, from int, c byte) int {
	for j := from; j < len(s); j++ {
		if s[j] == c {
			return j
		}
	}
	return -1
}
