package listing

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns raw listing bytes into text. Valid UTF-8 is used as is;
// anything else is taken to be Windows-1252, which is what the compiler
// writes on hosts with a legacy code page.
func Decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n")
}

// Read decodes a whole listing from r.
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read listing: %w", err)
	}
	return Decode(data), nil
}

// ReadFile decodes the listing stored at path.
func ReadFile(path string) (string, error) {
	// #nosec G304 -- listing path is derived from the checked source
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Decode(data), nil
}
