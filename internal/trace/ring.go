package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory, for dumping after a
// failed check or on demand from a long-running server.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int // index the next event goes to
	count int // stored events, at most len(buf)
	level Level
}

// NewRingTracer keeps up to capacity events (4096 when capacity <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = *ev
	t.buf[t.next].Seq = nextSeq()
	t.next = (t.next + 1) % len(t.buf)
	t.count = min(t.count+1, len(t.buf))
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.collect(func(*Event) bool { return true })
}

// Session returns the stored events of one check session, oldest first.
func (t *RingTracer) Session(id uint64) []Event {
	return t.collect(func(ev *Event) bool { return ev.Session == id })
}

func (t *RingTracer) collect(keep func(*Event) bool) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.count)
	first := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		ev := &t.buf[(first+i)%len(t.buf)]
		if keep(ev) {
			out = append(out, *ev)
		}
	}
	return out
}

// Dump writes every stored event to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
