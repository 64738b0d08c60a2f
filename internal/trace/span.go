package trace

import (
	"sync/atomic"
	"time"
)

var (
	eventSeq atomic.Uint64
	spanIDs  atomic.Uint64
)

func nextSeq() uint64 { return eventSeq.Add(1) }

// Span tracks one logical operation from Begin to End. A nil or disabled
// Span is safe to use and still measures time.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	session uint64
	source  string
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Begin starts a root span outside any session.
func Begin(t Tracer, scope Scope, name string) *Span {
	return begin(t, &Span{scope: scope, name: name})
}

// BeginSession starts the root span of check session id for source.
func BeginSession(t Tracer, id uint64, source string) *Span {
	return begin(t, &Span{scope: ScopeSession, name: "check", session: id, source: source})
}

// Child starts a span nested in s that belongs to the same session.
func (s *Span) Child(scope Scope, name string) *Span {
	if s == nil {
		return begin(Nop, &Span{scope: scope, name: name})
	}
	return begin(s.tracer, &Span{scope: scope, name: name, parent: s.id, session: s.session, source: s.source})
}

func begin(t Tracer, s *Span) *Span {
	s.started = time.Now()
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(s.scope) {
		// дочерние спаны тоже должны видеть трейсер
		s.tracer = t
		if s.tracer == nil {
			s.tracer = Nop
		}
		return s
	}
	s.tracer = t
	s.id = spanIDs.Add(1)
	t.Emit(s.event(KindSpanBegin, s.started))
	return s
}

func (s *Span) event(kind Kind, at time.Time) *Event {
	return &Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Session:  s.session,
		Source:   s.source,
		Name:     s.name,
	}
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	if s.id == 0 {
		return dur
	}
	ev := s.event(KindSpanEnd, time.Now())
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return dur
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// Point emits an instant event attributed to the span's session.
func (s *Span) Point(scope Scope, name, detail string, kv ...string) {
	if s == nil {
		return
	}
	t := s.tracer
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: s.id,
		Session:  s.session,
		Source:   s.source,
		Name:     name,
		Detail:   detail,
		Extra:    extra(kv),
	})
}

// ID returns the span ID, 0 when the span was filtered out.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
