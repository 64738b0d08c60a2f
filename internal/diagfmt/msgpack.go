package diagfmt

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"gamscheck/internal/diag"
	"gamscheck/internal/source"
)

// Msgpack writes the same document as JSON in MessagePack encoding.
func Msgpack(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}

// DecodeMsgpack reads a document written by Msgpack.
func DecodeMsgpack(r io.Reader) (DiagnosticsOutput, error) {
	var out DiagnosticsOutput
	err := msgpack.NewDecoder(r).Decode(&out)
	return out, err
}
