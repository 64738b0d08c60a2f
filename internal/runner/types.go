package runner

import (
	"slices"
	"time"
)

// Stage is one step of a check, in the order listed by Stages.
type Stage string

const (
	StagePersist Stage = "persist" // buffer written for the compiler
	StageCompile Stage = "compile"
	StageParse   Stage = "parse" // listing read and split into records
	StageMap     Stage = "map"
	StageCleanup Stage = "cleanup" // listing and scratch files removed
)

var Stages = []Stage{StagePersist, StageCompile, StageParse, StageMap, StageCleanup}

// Status is where a file or one of its stages stands.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event is a progress update for File. An empty Stage means the whole file
// finished and Elapsed covers every stage.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

type ProgressSink interface {
	OnEvent(Event)
}

type stageTime struct {
	stage Stage
	dur   time.Duration
}

// Timings keeps one duration per stage. The zero value is ready to use.
type Timings struct {
	recs []stageTime
}

// Set records dur for stage, replacing an earlier value. Nil receivers are ignored.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if i := t.find(stage); i >= 0 {
		t.recs[i].dur = dur
		return
	}
	t.recs = append(t.recs, stageTime{stage, dur})
}

func (t Timings) find(stage Stage) int {
	return slices.IndexFunc(t.recs, func(r stageTime) bool { return r.stage == stage })
}

func (t Timings) Has(stage Stage) bool { return t.find(stage) >= 0 }

// Duration is zero for stages that never ran.
func (t Timings) Duration(stage Stage) time.Duration {
	if i := t.find(stage); i >= 0 {
		return t.recs[i].dur
	}
	return 0
}

// Sum adds the given stages, or every recorded stage when none are named.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	if len(stages) == 0 {
		for _, r := range t.recs {
			total += r.dur
		}
		return total
	}
	for _, st := range stages {
		total += t.Duration(st)
	}
	return total
}
