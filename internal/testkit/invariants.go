// Package testkit holds assertions shared by tests of different packages.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"gamscheck/internal/check"
	"gamscheck/internal/source"
)

// CheckReportInvariants verifies what every delivered report promises:
//  1. superseded reports carry no diagnostics
//  2. a report with diagnostics has a File and all spans point into it
//  3. diagnostics are ordered by position
func CheckReportInvariants(r check.Report) error {
	if r.Stale() {
		if len(r.Diagnostics) != 0 {
			return fmt.Errorf("superseded report carries %d diagnostics", len(r.Diagnostics))
		}
		return nil
	}
	if len(r.Diagnostics) == 0 {
		return nil
	}
	if r.File == nil {
		return fmt.Errorf("%d diagnostics without a file", len(r.Diagnostics))
	}
	limit, err := safecast.Conv[uint32](len(r.File.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	var prev uint32
	for i, d := range r.Diagnostics {
		if err := checkSpan(d.Primary, limit); err != nil {
			return fmt.Errorf("diagnostic %d (%s): %w", i, d.Code.ID(), err)
		}
		for j, n := range d.Notes {
			if err := checkSpan(n.Span, limit); err != nil {
				return fmt.Errorf("diagnostic %d note %d: %w", i, j, err)
			}
		}
		if d.Primary.Start < prev {
			return fmt.Errorf("diagnostic %d out of order: %d after %d", i, d.Primary.Start, prev)
		}
		prev = d.Primary.Start
	}
	return nil
}

// CheckSpanInBounds verifies that sp lies within f.
func CheckSpanInBounds(f *source.File, sp source.Span) error {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	return checkSpan(sp, limit)
}

func checkSpan(sp source.Span, limit uint32) error {
	if sp.File != 0 {
		return fmt.Errorf("span %v refers to file %d, want 0", sp, sp.File)
	}
	if sp.End < sp.Start {
		return fmt.Errorf("inverted span %v", sp)
	}
	if sp.End > limit {
		return fmt.Errorf("span %v beyond content (%d bytes)", sp, limit)
	}
	return nil
}
