package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	KindHeartbeat // periodic liveness signal
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope indicates the granularity of the event; lower values are coarser.
type Scope uint8

const (
	// ScopeDriver covers CLI commands, server lifecycle and notices.
	ScopeDriver Scope = iota + 1
	// ScopeSession covers one check of one buffer.
	ScopeSession
	// ScopeStage covers a stage inside a session (compile, parse, ...).
	ScopeStage
	ScopeBlock // single listing block or record
)

var scopeNames = [...]string{
	ScopeDriver:  "driver",
	ScopeSession: "session",
	ScopeStage:   "stage",
	ScopeBlock:   "block",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is a single trace record. Session and Source are set for everything
// emitted on behalf of a check session.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the sink, monotonic per process
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	Session  uint64
	Source   string
	Name     string // e.g. "check", "compile", "listing.skip"
	Detail   string
	Extra    map[string]string
}

// extra builds an Extra map from key, value pairs; a trailing odd key is dropped.
func extra(kv []string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
