package trace

import "errors"

// MultiTracer fans events out to several tracers. Its level is the most
// verbose level among them; each child still filters on its own level.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer combines tracers; nil entries are skipped.
func NewMultiTracer(tracers ...Tracer) *MultiTracer {
	m := &MultiTracer{}
	for _, t := range tracers {
		if t == nil {
			continue
		}
		m.tracers = append(m.tracers, t)
		m.level = max(m.level, t.Level())
	}
	return m
}

// Emit hands every tracer its own copy; they stamp Seq themselves.
func (m *MultiTracer) Emit(ev *Event) {
	for _, t := range m.tracers {
		cp := *ev
		t.Emit(&cp)
	}
}

func (m *MultiTracer) Flush() error {
	errs := make([]error, 0, len(m.tracers))
	for _, t := range m.tracers {
		errs = append(errs, t.Flush())
	}
	return errors.Join(errs...)
}

func (m *MultiTracer) Close() error {
	errs := make([]error, 0, len(m.tracers))
	for _, t := range m.tracers {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

func (m *MultiTracer) Level() Level { return m.level }

func (m *MultiTracer) Enabled() bool { return m.level > LevelOff }
