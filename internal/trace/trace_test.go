package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, true},
		{LevelError, ScopeSession, false},
		{LevelPhase, ScopeSession, true},
		{LevelPhase, ScopeStage, false},
		{LevelStage, ScopeStage, true},
		{LevelStage, ScopeBlock, false},
		{LevelDebug, ScopeBlock, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "stage", "debug"} {
		l, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if l.String() != s {
			t.Errorf("round trip %q -> %q", s, l.String())
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]StorageMode{"": ModeStream, "stream": ModeStream, "Ring": ModeRing, " both ": ModeBoth}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if StorageMode(9).String() != "unknown" {
		t.Error("out of range mode must print as unknown")
	}
}

func TestFormatForPath(t *testing.T) {
	if FormatForPath("run.NDJSON") != FormatNDJSON || FormatForPath("run.jsonl") != FormatNDJSON {
		t.Error("expected NDJSON for .ndjson and .jsonl")
	}
	if FormatForPath("") != FormatText || FormatForPath("trace.log") != FormatText {
		t.Error("expected text for other paths")
	}
}

func TestNewRingMode(t *testing.T) {
	tr, err := New(Config{Level: LevelPhase, Mode: ModeRing, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*RingTracer); !ok {
		t.Fatalf("expected *RingTracer, got %T", tr)
	}
	if off, _ := New(Config{Level: LevelOff}); off != Nop {
		t.Error("LevelOff must give Nop")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelStage, FormatText)

	span := BeginSession(tr, 12, "model.gms")
	compile := span.Child(ScopeStage, "compile")
	span.Point(ScopeStage, "state", "running", "exit", "2")
	span.Point(ScopeBlock, "listing.skip", "filtered out")
	compile.End("")
	span.WithExtra("diagnostics", "3").End("reported")

	out := buf.String()
	if !strings.Contains(out, "[#12 model.gms] → session check") {
		t.Errorf("missing span begin in %q", out)
	}
	if !strings.Contains(out, "[#12 model.gms] • stage state (running) {exit=2}") {
		t.Errorf("missing point in %q", out)
	}
	if strings.Contains(out, "listing.skip") {
		t.Errorf("block scope must be filtered at stage level: %q", out)
	}
	if !strings.Contains(out, "← stage compile") {
		t.Errorf("missing child span end in %q", out)
	}
	if !strings.Contains(out, "(reported) {diagnostics=3}") {
		t.Errorf("missing span end in %q", out)
	}
}

func TestChildOfFilteredSessionStillEmits(t *testing.T) {
	tr := NewRingTracer(8, LevelError)
	span := BeginSession(tr, 3, "a.gms")
	if span.ID() != 0 {
		t.Fatal("session span must be filtered at error level")
	}
	span.Point(ScopeDriver, "spawn.failed", "not found")
	got := tr.Snapshot()
	if len(got) != 1 || got[0].Session != 3 || got[0].Source != "a.gms" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Notice(tr, "spawn.failed", "start %s: %s", "gams", "not found")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if ev["name"] != "spawn.failed" || ev["detail"] != "start gams: not found" {
		t.Errorf("unexpected event %v", ev)
	}
}

func TestRingTracerWraps(t *testing.T) {
	tr := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		Point(tr, ScopeDriver, "p", string(rune('a'+i)))
	}
	got := tr.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Detail != "c" || got[2].Detail != "e" {
		t.Errorf("unexpected order: %v %v", got[0].Detail, got[2].Detail)
	}
	if got[0].Seq >= got[2].Seq {
		t.Errorf("seq must grow: %d %d", got[0].Seq, got[2].Seq)
	}
}

func TestRingTracerSessionFilter(t *testing.T) {
	tr := NewRingTracer(16, LevelDebug)
	a := BeginSession(tr, 1, "a.gms")
	b := BeginSession(tr, 2, "b.gms")
	a.Point(ScopeBlock, "record.unmapped", "line 9")
	b.End("superseded")
	a.End("reported")

	got := tr.Session(1)
	if len(got) != 3 {
		t.Fatalf("expected 3 events of session 1, got %d", len(got))
	}
	for _, ev := range got {
		if ev.Source != "a.gms" {
			t.Errorf("foreign event %+v", ev)
		}
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 5 {
		t.Errorf("dump wrote %d lines, want 5", n)
	}
}

func TestMultiTracerAndContext(t *testing.T) {
	a := NewRingTracer(8, LevelDebug)
	b := NewRingTracer(8, LevelDebug)
	m := NewMultiTracer(a, nil, b)
	if m.Level() != LevelDebug {
		t.Fatalf("level = %s", m.Level())
	}
	ctx := WithTracer(context.Background(), m)

	Point(FromContext(ctx), ScopeDriver, "hello", "")
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatal("expected both tracers to receive the event")
	}
	if FromContext(context.Background()) != Nop {
		t.Error("expected Nop without tracer")
	}
}

func TestDisabledSpanStillMeasures(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "lsp")
	time.Sleep(time.Millisecond)
	if span.End("") <= 0 {
		t.Error("expected positive duration from disabled span")
	}
}

func TestHeartbeat(t *testing.T) {
	tr := NewRingTracer(16, LevelError)
	h := StartHeartbeat(tr, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	h.Stop()
	h.Stop()
	if len(tr.Snapshot()) == 0 {
		t.Error("expected heartbeat events")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Error("expected nil heartbeat for disabled tracer")
	}
}
