package ui

import (
	"errors"
	"strings"
	"testing"

	"gamscheck/internal/runner"
)

func newModel(files ...string) *checkView {
	return NewProgressModel("checking", files, nil).(*checkView)
}

func TestApplyEventTracksStages(t *testing.T) {
	m := newModel("a.gms", "b.gms")

	m.applyEvent(runner.Event{File: "a.gms", Stage: runner.StageCompile, Status: runner.StatusWorking})
	if got := m.rows[0].status; got != "compiling" {
		t.Fatalf("expected compiling, got %q", got)
	}
	if got := m.rows[0].fraction; got != 0.2 {
		t.Fatalf("expected 0.2, got %v", got)
	}

	m.applyEvent(runner.Event{File: "a.gms", Stage: runner.StageCompile, Status: runner.StatusDone})
	if got := m.rows[0].fraction; got != 0.4 {
		t.Fatalf("expected 0.4, got %v", got)
	}
	if got := m.percent(); got != 0.2 {
		t.Fatalf("expected overall 0.2, got %v", got)
	}
}

func TestFileLevelEventFinishesItem(t *testing.T) {
	m := newModel("a.gms", "b.gms")

	m.applyEvent(runner.Event{File: "b.gms", Status: runner.StatusError, Err: errors.New("3 diagnostics")})
	item := m.rows[1]
	if !item.finished || item.status != "error" || item.detail != "3 diagnostics" {
		t.Fatalf("unexpected item %+v", item)
	}

	// поздние события сессии не откатывают статус
	m.applyEvent(runner.Event{File: "b.gms", Stage: runner.StageCleanup, Status: runner.StatusWorking})
	if m.rows[1].status != "error" {
		t.Fatalf("finished item changed: %+v", m.rows[1])
	}
	if got := m.percent(); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestUnknownFileIgnored(t *testing.T) {
	m := newModel("a.gms")
	if cmd := m.applyEvent(runner.Event{File: "zzz.gms", Status: runner.StatusDone}); cmd != nil {
		t.Fatal("expected nil cmd for unknown file")
	}
}

func TestViewListsFiles(t *testing.T) {
	m := newModel("models/trnsport.gms")
	m.applyEvent(runner.Event{File: "models/trnsport.gms", Status: runner.StatusDone})
	view := m.View()
	if !strings.Contains(view, "models/trnsport.gms") || !strings.Contains(view, "[1/1]") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestFinished(t *testing.T) {
	m := newModel("a.gms")
	if Finished(m) {
		t.Fatal("fresh model must not be finished")
	}
	m.Update(doneMsg{})
	if !Finished(m) {
		t.Fatal("model must be finished after the channel closes")
	}
	if Finished(nil) {
		t.Fatal("nil model is not finished")
	}
}
