package check

import (
	"gamscheck/internal/diag"
	"gamscheck/internal/listing"
	"gamscheck/internal/runner"
	"gamscheck/internal/source"
)

// Status is the outcome carried by a Report.
type Status uint8

const (
	// StatusReported: the listing was parsed, Diagnostics may still be empty.
	StatusReported Status = iota + 1
	// StatusEmpty: the compiler wrote no listing.
	StatusEmpty
	// StatusFailed: the compiler could not run to completion, see Err.
	StatusFailed
	// StatusSuperseded: a newer check of the same source replaced this one.
	StatusSuperseded
)

func (s Status) String() string {
	switch s {
	case StatusReported:
		return "reported"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	case StatusSuperseded:
		return "superseded"
	}
	return "unknown"
}

// Report is what a session delivers to its ReportFunc.
type Report struct {
	Source   string // path identifying the checked buffer
	Session  uint64
	Version  int // Buffer.Version, echoed back
	Status   Status
	File     *source.File // line table of the checked text; nil when superseded
	ExitCode int

	// Diagnostics are sorted by position; Primary.File is always 0 and refers to File.
	Diagnostics []diag.Diagnostic
	Skipped     []listing.Malformed
	Unmapped    int // records whose line was outside the buffer
	Dropped     int // diagnostics over the configured limit

	Err     error
	Timings runner.Timings
}

// Empty reports whether the report carries no diagnostics.
func (r Report) Empty() bool {
	return len(r.Diagnostics) == 0
}

// Stale reports whether the diagnostics must not be shown.
func (r Report) Stale() bool {
	return r.Status == StatusSuperseded
}

// Bag copies the diagnostics into a Bag limited to max entries (0 = unlimited).
func (r Report) Bag(max int) *diag.Bag {
	bag := diag.NewBag(max)
	for _, d := range r.Diagnostics {
		bag.Add(d)
	}
	return bag
}

// ReportFunc receives the single report of a session.
type ReportFunc func(Report)

// Collect registers File in fs and appends the diagnostics to bag with their
// spans moved to the new FileID. Reports without a File add nothing.
func (r Report) Collect(fs *source.FileSet, bag *diag.Bag) {
	if r.File == nil || fs == nil || bag == nil {
		return
	}
	id := fs.AddFile(r.File)
	for _, d := range r.Diagnostics {
		d.Primary = d.Primary.WithFile(id)
		if len(d.Notes) > 0 {
			notes := make([]diag.Note, len(d.Notes))
			for i, n := range d.Notes {
				notes[i] = diag.Note{Span: n.Span.WithFile(id), Msg: n.Msg}
			}
			d.Notes = notes
		}
		bag.Add(d)
	}
}
