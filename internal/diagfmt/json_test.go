package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"gamscheck/internal/diag"
	"gamscheck/internal/source"
)

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	bag, fs := fixture("trnsport.gms")

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %+v", output)
	}

	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "$140" || d.Message != "Unknown symbol" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	loc := d.Location
	if loc.File != "trnsport.gms" || loc.StartByte != 19 || loc.EndByte != 20 {
		t.Errorf("unexpected location %+v", loc)
	}
	if loc.StartLine != 2 || loc.StartCol != 5 || loc.EndCol != 6 {
		t.Errorf("unexpected positions %+v", loc)
	}
	if len(d.Notes) != 0 {
		t.Errorf("notes must be omitted without IncludeNotes")
	}
}

func TestJSONWithNotesWithoutPositions(t *testing.T) {
	bag, fs := fixture("trnsport.gms")

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludeNotes: true, PathMode: PathModeBasename}); err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	d := raw["diagnostics"].([]any)[0].(map[string]any)
	loc := d["location"].(map[string]any)
	if _, ok := loc["start_line"]; ok {
		t.Errorf("start_line must be omitted, got %v", loc)
	}
	notes := d["notes"].([]any)
	if len(notes) != 1 || notes[0].(map[string]any)["message"] != "first use" {
		t.Errorf("unexpected notes %v", notes)
	}
}

func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.gms", []byte(model))
	bag := diag.NewBag(0)
	for i := range 5 {
		start := uint32(15 + i)
		bag.Add(diag.NewError(diag.Code(140+i), source.Span{File: id, Start: start, End: start + 1}, "err"))
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 || out.Dropped != 3 {
		t.Fatalf("expected 2 shown and 3 dropped, got count=%d dropped=%d", out.Count, out.Dropped)
	}
	if out.Diagnostics[1].Code != "$141" {
		t.Errorf("expected order preserved, got %s", out.Diagnostics[1].Code)
	}
}

func TestMsgpackMatchesJSONDocument(t *testing.T) {
	bag, fs := fixture("trnsport.gms")
	opts := JSONOpts{IncludePositions: true, IncludeNotes: true, PathMode: PathModeBasename}

	var buf bytes.Buffer
	if err := Msgpack(&buf, bag, fs, opts); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMsgpack(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := BuildDiagnosticsOutput(bag, fs, opts)

	gj, _ := json.Marshal(got)
	wj, _ := json.Marshal(want)
	if !bytes.Equal(gj, wj) {
		t.Fatalf("msgpack round trip differs:\n got %s\nwant %s", gj, wj)
	}
}
