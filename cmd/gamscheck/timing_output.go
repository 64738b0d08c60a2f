package main

import (
	"fmt"
	"io"

	"gamscheck/internal/check"
	"gamscheck/internal/observ"
	"gamscheck/internal/runner"
)

// printStageTimings sums stage durations over all reports.
func printStageTimings(out io.Writer, reports []check.Report) {
	if out == nil {
		return
	}
	t := stageTimer(reports)
	if _, err := fmt.Fprint(out, t.Summary()); err != nil {
		panic(err)
	}
}

func stageTimer(reports []check.Report) *observ.Timer {
	t := observ.NewTimer()
	for _, r := range reports {
		for _, stage := range runner.Stages {
			if r.Timings.Has(stage) {
				t.Add(string(stage), r.Timings.Duration(stage), "")
			}
		}
	}
	return t
}
