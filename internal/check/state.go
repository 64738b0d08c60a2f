package check

import "fmt"

// State is a session's position in its lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateSpawning
	StateRunning
	StateParsing
	StateReported
	StateReportedEmpty
	StateFailed
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateParsing:
		return "parsing"
	case StateReported:
		return "reported"
	case StateReportedEmpty:
		return "reported-empty"
	case StateFailed:
		return "failed"
	case StateSuperseded:
		return "superseded"
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

var transitions = map[State][]State{
	StateIdle:     {StateSpawning, StateSuperseded},
	StateSpawning: {StateRunning, StateFailed, StateSuperseded},
	StateRunning:  {StateParsing, StateReportedEmpty, StateFailed, StateSuperseded},
	StateParsing:  {StateReported, StateSuperseded},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// TransitionError is returned for an illegal state change.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("check: illegal transition %s -> %s", e.From, e.To)
}
