package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gamscheck/internal/check"
	"gamscheck/internal/diag"
	"gamscheck/internal/source"
)

// fakeChecker records checks; with auto set it reports at once.
type fakeChecker struct {
	mu        sync.Mutex
	bufs      []check.Buffer
	fns       []check.ReportFunc
	forgotten []string
	auto      func(check.Buffer) check.Report
}

func (f *fakeChecker) Enabled(path string) bool {
	return strings.HasSuffix(path, ".gms")
}

func (f *fakeChecker) Check(_ context.Context, buf check.Buffer, fn check.ReportFunc) (*check.Session, error) {
	f.mu.Lock()
	f.bufs = append(f.bufs, buf)
	f.fns = append(f.fns, fn)
	auto := f.auto
	f.mu.Unlock()
	if auto != nil {
		go fn(auto(buf))
	}
	return nil, nil
}

func (f *fakeChecker) Forget(path string) {
	f.mu.Lock()
	f.forgotten = append(f.forgotten, path)
	f.mu.Unlock()
}

func (f *fakeChecker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bufs)
}

func (f *fakeChecker) call(i int) (check.Buffer, check.ReportFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bufs[i], f.fns[i]
}

// reportAt builds a report with one $140 at the first occurrence of needle.
func reportAt(buf check.Buffer, needle string) check.Report {
	file := source.NewFile(buf.Path, buf.Text, 0)
	r := check.Report{Source: buf.Path, Version: buf.Version, Status: check.StatusReported, File: file}
	if i := bytes.Index(buf.Text, []byte(needle)); i >= 0 {
		sp := source.Span{Start: uint32(i), End: uint32(i + 1)}
		r.Diagnostics = []diag.Diagnostic{diag.NewError(140, sp, "Unknown symbol")}
	}
	return r
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []rpcMessage {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()
	r := bufio.NewReader(bytes.NewReader(data))
	var out []rpcMessage
	for {
		payload, err := readMessage(r)
		if err != nil {
			return out
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		out = append(out, msg)
	}
}

func (b *syncBuffer) publishes(t *testing.T) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for _, msg := range b.messages(t) {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p publishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			t.Fatalf("decode params: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func newTestServer(t *testing.T, fc *fakeChecker, debounce time.Duration) (*Server, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	s := NewServer(bytes.NewReader(nil), out, ServerOptions{
		Debounce: debounce,
		Checker:  fc,
		Logf:     t.Logf,
	})
	t.Cleanup(s.stopTimers)
	return s, out
}

func notify(t *testing.T, s *Server, method string, params any) {
	t.Helper()
	payload, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.handleMessage(&rpcMessage{Method: method, Params: payload}); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func openDoc(t *testing.T, s *Server, uri, text string, version int) {
	t.Helper()
	notify(t, s, "textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, Version: version, Text: text, LanguageID: "gams"},
	})
}

func TestPublishDiagnosticsUTF16(t *testing.T) {
	fc := &fakeChecker{auto: func(b check.Buffer) check.Report { return reportAt(b, "y") }}
	s, out := newTestServer(t, fc, time.Hour)
	uri := pathToURI(filepath.Join(t.TempDir(), "model.gms"))

	openDoc(t, s, uri, "set i;\nx = 🙂 + y;\n", 1)
	waitFor(t, "publish", func() bool { return len(out.publishes(t)) == 1 })

	p := out.publishes(t)[0]
	if p.URI != uri {
		t.Fatalf("expected uri %q, got %q", uri, p.URI)
	}
	if p.Version == nil || *p.Version != 1 {
		t.Fatalf("expected version 1, got %v", p.Version)
	}
	if len(p.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(p.Diagnostics))
	}
	got := p.Diagnostics[0]
	// "x = " + суррогатная пара + " + "
	if got.Range.Start != (position{Line: 1, Character: 9}) || got.Range.End != (position{Line: 1, Character: 10}) {
		t.Fatalf("unexpected range: %+v", got.Range)
	}
	if got.Code != "$140" || got.Severity != 1 || got.Source != "gams" {
		t.Fatalf("unexpected diagnostic: %+v", got)
	}
}

func TestStaleVersionIsNotPublished(t *testing.T) {
	fc := &fakeChecker{}
	s, out := newTestServer(t, fc, time.Hour)
	uri := pathToURI(filepath.Join(t.TempDir(), "model.gms"))

	openDoc(t, s, uri, "x = y;\n", 1)
	waitFor(t, "check", func() bool { return fc.calls() == 1 })
	notify(t, s, "textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "x = z;\n"}},
	})

	buf, fn := fc.call(0)
	fn(reportAt(buf, "y"))
	if n := len(out.publishes(t)); n != 0 {
		t.Fatalf("stale report published %d times", n)
	}

	buf.Version = 2
	buf.Text = []byte("x = z;\n")
	fn(reportAt(buf, "z"))
	if n := len(out.publishes(t)); n != 1 {
		t.Fatalf("expected current report published, got %d", n)
	}
}

func TestSupersededReportIsIgnored(t *testing.T) {
	fc := &fakeChecker{}
	s, out := newTestServer(t, fc, time.Hour)
	uri := pathToURI(filepath.Join(t.TempDir(), "model.gms"))

	openDoc(t, s, uri, "x = y;\n", 1)
	waitFor(t, "check", func() bool { return fc.calls() == 1 })
	_, fn := fc.call(0)
	fn(check.Report{Version: 1, Status: check.StatusSuperseded})

	if n := len(out.publishes(t)); n != 0 {
		t.Fatalf("superseded report published %d times", n)
	}
}

func TestDidCloseClearsAndForgets(t *testing.T) {
	fc := &fakeChecker{auto: func(b check.Buffer) check.Report { return reportAt(b, "y") }}
	s, out := newTestServer(t, fc, time.Hour)
	path := filepath.Join(t.TempDir(), "model.gms")
	uri := pathToURI(path)

	openDoc(t, s, uri, "x = y;\n", 1)
	waitFor(t, "publish", func() bool { return len(out.publishes(t)) == 1 })

	notify(t, s, "textDocument/didClose", didCloseTextDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}})
	ps := out.publishes(t)
	if len(ps) != 2 || len(ps[1].Diagnostics) != 0 {
		t.Fatalf("expected clearing publish, got %+v", ps)
	}
	fc.mu.Lock()
	forgotten := append([]string(nil), fc.forgotten...)
	fc.mu.Unlock()
	if len(forgotten) != 1 || forgotten[0] != path {
		t.Fatalf("expected Forget(%q), got %v", path, forgotten)
	}
}

func TestChangesAreDebounced(t *testing.T) {
	fc := &fakeChecker{}
	s, _ := newTestServer(t, fc, 30*time.Millisecond)
	uri := pathToURI(filepath.Join(t.TempDir(), "model.gms"))

	openDoc(t, s, uri, "", 1)
	waitFor(t, "open check", func() bool { return fc.calls() == 1 })
	for v := 2; v <= 6; v++ {
		notify(t, s, "textDocument/didChange", didChangeTextDocumentParams{
			TextDocument: versionedTextDocumentIdentifier{URI: uri, Version: v},
			ContentChanges: []textDocumentContentChangeEvent{{
				Range: &lspRange{Start: position{Line: 0, Character: v - 2}, End: position{Line: 0, Character: v - 2}},
				Text:  "x",
			}},
		})
	}
	waitFor(t, "debounced check", func() bool { return fc.calls() == 2 })
	time.Sleep(100 * time.Millisecond)
	if n := fc.calls(); n != 2 {
		t.Fatalf("expected 2 checks, got %d", n)
	}
	buf, _ := fc.call(1)
	if buf.Version != 6 || string(buf.Text) != "xxxxx" {
		t.Fatalf("expected latest text, got v%d %q", buf.Version, buf.Text)
	}
}

func TestDidSaveChecksImmediately(t *testing.T) {
	fc := &fakeChecker{}
	s, _ := newTestServer(t, fc, time.Hour)
	uri := pathToURI(filepath.Join(t.TempDir(), "model.gms"))

	openDoc(t, s, uri, "a", 1)
	waitFor(t, "open check", func() bool { return fc.calls() == 1 })
	saved := "saved text"
	notify(t, s, "textDocument/didSave", didSaveTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Text:         &saved,
	})
	waitFor(t, "save check", func() bool { return fc.calls() == 2 })
	if buf, _ := fc.call(1); string(buf.Text) != saved {
		t.Fatalf("expected saved text, got %q", buf.Text)
	}
}

func TestDisabledExtensionIsNotChecked(t *testing.T) {
	fc := &fakeChecker{}
	s, _ := newTestServer(t, fc, time.Hour)
	uri := pathToURI(filepath.Join(t.TempDir(), "notes.txt"))

	openDoc(t, s, uri, "x = y;\n", 1)
	time.Sleep(50 * time.Millisecond)
	if n := fc.calls(); n != 0 {
		t.Fatalf("expected no checks, got %d", n)
	}
}

func TestDidChangeConfiguration(t *testing.T) {
	s, _ := newTestServer(t, &fakeChecker{}, time.Hour)
	notify(t, s, "workspace/didChangeConfiguration", map[string]any{
		"settings": map[string]any{"gamscheck": map[string]any{"debounceMs": 5, "maxDiagnostics": 7}},
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != 5*time.Millisecond || s.maxDiagnostics != 7 {
		t.Fatalf("settings not applied: debounce=%v max=%d", s.debounce, s.maxDiagnostics)
	}
}

func frame(t *testing.T, msgs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := writeMessage(&buf, []byte(m)); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func TestRunLifecycle(t *testing.T) {
	in := frame(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":"file:///tmp/ws"}}`,
		`{"jsonrpc":"2.0","method":"initialized","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"textDocument/hover","params":{}}`,
		`{"jsonrpc":"2.0","id":3,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	)
	out := &syncBuffer{}
	s := NewServer(bytes.NewReader(in), out, ServerOptions{Checker: &fakeChecker{}, Version: "1.2.3", Logf: t.Logf})

	if err := s.Run(context.Background()); !errors.Is(err, ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
	msgs := out.messages(t)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(msgs))
	}
	var init initializeResult
	if err := json.Unmarshal(msgs[0].Result, &init); err != nil {
		t.Fatal(err)
	}
	if init.ServerInfo == nil || init.ServerInfo.Name != "gamscheck" || init.ServerInfo.Version != "1.2.3" {
		t.Fatalf("unexpected server info: %+v", init.ServerInfo)
	}
	if init.Capabilities.TextDocumentSync.Change != 2 {
		t.Fatalf("expected incremental sync, got %+v", init.Capabilities.TextDocumentSync)
	}
	if msgs[1].Error == nil || msgs[1].Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", msgs[1])
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	in := frame(t, `{"jsonrpc":"2.0","method":"exit"}`)
	s := NewServer(bytes.NewReader(in), &syncBuffer{}, ServerOptions{Logf: t.Logf})
	if err := s.Run(context.Background()); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
}

func TestApplyChangesUTF16(t *testing.T) {
	text := "a🙂b\nline2\n"
	got := applyChanges(text, []textDocumentContentChangeEvent{{
		Range: &lspRange{Start: position{Line: 0, Character: 3}, End: position{Line: 0, Character: 4}},
		Text:  "c",
	}})
	if got != "a🙂c\nline2\n" {
		t.Fatalf("unexpected text %q", got)
	}
}
