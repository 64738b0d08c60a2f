package listing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUTF8(t *testing.T) {
	assert.Equal(t, "a\nä\n", Decode([]byte("\xEF\xBB\xBFa\r\nä\r\n")))
}

func TestDecodeWindows1252(t *testing.T) {
	// 0xE4 = 'ä' в cp1252, невалидно как UTF-8
	assert.Equal(t, "Menge ä\n", Decode([]byte("Menge \xE4\n")))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.lst")
	require.NoError(t, os.WriteFile(path, []byte("****   $140\r\n****  LINE 1\r\n140  Unknown symbol \xE4\r\n"), 0o600))

	text, err := ReadFile(path)
	require.NoError(t, err)
	recs := Parse(text)
	require.Len(t, recs, 1)
	assert.Equal(t, "Unknown symbol ä", recs[0].Message)

	_, err = ReadFile(filepath.Join(dir, "absent.lst"))
	assert.Error(t, err)

	text, err = Read(strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}
