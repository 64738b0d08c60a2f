package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timer sums durations per phase name, keeping the order in which names
// first appear. Parallel checks add to one Timer, so it is locked.
type Timer struct {
	mu     sync.Mutex
	order  []string
	phases map[string]*phase
}

type phase struct {
	total time.Duration
	count int
	note  string
}

func NewTimer() *Timer {
	return &Timer{phases: make(map[string]*phase)}
}

// Add records one measured run of the named phase. The note survives only
// while the phase has a single run.
func (t *Timer) Add(name string, d time.Duration, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phases == nil {
		t.phases = make(map[string]*phase)
	}
	p, ok := t.phases[name]
	if !ok {
		t.phases[name] = &phase{total: d, count: 1, note: note}
		t.order = append(t.order, name)
		return
	}
	p.total += d
	p.count++
	p.note = ""
}

// PhaseReport is one row of a Report.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// Report is a snapshot of a Timer, suitable for JSON.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var r Report
	if len(t.order) == 0 {
		return r
	}
	r.Phases = make([]PhaseReport, len(t.order))
	var total time.Duration
	for i, name := range t.order {
		p := t.phases[name]
		total += p.total
		r.Phases[i] = PhaseReport{Name: name, DurationMS: millis(p.total), Count: p.count, Note: p.note}
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders the report as an aligned table ending in a total row.
func (t *Timer) Summary() string {
	r := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range r.Phases {
		row := fmt.Sprintf("  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Count > 1 {
			row += fmt.Sprintf("  x%d", p.Count)
		}
		if p.Note != "" {
			row += "  // " + p.Note
		}
		b.WriteString(row + "\n")
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
