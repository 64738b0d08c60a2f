package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerAggregatesByName(t *testing.T) {
	tm := NewTimer()
	tm.Add("compile", 10*time.Millisecond, "a.gms")
	tm.Add("parse", 2*time.Millisecond, "")
	tm.Add("compile", 30*time.Millisecond, "b.gms")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "compile" || r.Phases[0].Count != 2 || r.Phases[0].DurationMS != 40 {
		t.Errorf("unexpected compile phase %+v", r.Phases[0])
	}
	// заметка одной фазы теряет смысл после сложения
	if r.Phases[0].Note != "" {
		t.Errorf("expected note to be cleared, got %q", r.Phases[0].Note)
	}
	if r.TotalMS != 42 {
		t.Errorf("unexpected total %v", r.TotalMS)
	}
	if !strings.Contains(tm.Summary(), "x2") {
		t.Errorf("summary misses count: %q", tm.Summary())
	}
}

func TestTimerSinglePhaseKeepsNote(t *testing.T) {
	tm := NewTimer()
	tm.Add("persist", 5*time.Millisecond, "scratch")

	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Note != "scratch" || r.Phases[0].Count != 1 {
		t.Fatalf("unexpected report %+v", r)
	}
	if !strings.Contains(tm.Summary(), "// scratch") {
		t.Errorf("summary misses note: %q", tm.Summary())
	}
	if (&Timer{}).Report().Phases != nil {
		t.Error("expected empty report")
	}
}

func TestTimerConcurrentAdd(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("compile", time.Millisecond, "")
		}()
	}
	wg.Wait()
	if got := tm.Report().Phases[0].Count; got != 16 {
		t.Fatalf("expected 16, got %d", got)
	}
}
