package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gamscheck/internal/runner"
	"gamscheck/internal/source"
	"gamscheck/internal/trace"
)

// Buffer is the text to check.
type Buffer struct {
	// Path identifies the source; its directory is the compiler's working directory.
	Path string
	// Text is the content to compile. nil means the file on disk is current.
	Text []byte
	// Version is an opaque caller value copied into the Report.
	Version int
}

// slot tracks the authoritative session of one source.
type slot struct {
	latest  uint64   // id of the session allowed to report, 0 for none
	current *Session // most recently started session
}

// Manager creates check sessions. Safe for concurrent use.
type Manager struct {
	opts    Options
	exts    map[string]struct{}
	spawner Spawner
	cache   *source.IndexCache

	ids   atomic.Uint64
	mu    sync.Mutex
	slots map[string]*slot
	wg    sync.WaitGroup
}

// NewManager builds a Manager, filling defaults for unset options.
func NewManager(opts Options) *Manager {
	m := &Manager{
		opts:  opts,
		exts:  make(map[string]struct{}),
		slots: make(map[string]*slot),
		cache: opts.Cache,
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, e := range exts {
		if e = normalizeExt(e); e != "" {
			m.exts[e] = struct{}{}
		}
	}
	m.spawner = opts.Spawner
	if m.spawner == nil {
		m.spawner = runnerSpawner{r: &runner.Runner{Timeout: opts.Timeout, Progress: opts.Progress}}
	}
	if m.cache == nil {
		m.cache = source.NewIndexCache(0)
	}
	if m.opts.Logf == nil {
		m.opts.Logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "gamscheck: "+format+"\n", args...)
		}
	}
	return m
}

// Enabled reports whether files like path are checked.
func (m *Manager) Enabled(path string) bool {
	if IsArtifact(path) {
		return false
	}
	_, ok := m.exts[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions.
func (m *Manager) Extensions() []string {
	out := make([]string, 0, len(m.exts))
	for e := range m.exts {
		out = append(out, e)
	}
	return out
}

// Check starts a session for buf and returns without waiting for the compiler.
// fn is called exactly once from another goroutine. A still running session
// for the same source is cancelled and will report StatusSuperseded.
func (m *Manager) Check(ctx context.Context, buf Buffer, fn ReportFunc) (*Session, error) {
	if !m.Enabled(buf.Path) {
		return nil, fmt.Errorf("%w: %s", ErrNotEnabled, buf.Path)
	}
	key, err := filepath.Abs(buf.Path)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	tracer := m.opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		m:      m,
		key:    key,
		Source: buf.Path,
		buf:    buf,
		fn:     fn,
		ctx:    sctx,
		cancel: cancel,
		tracer: tracer,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	sl := m.slots[key]
	if sl == nil {
		sl = &slot{}
		m.slots[key] = sl
	}
	prev := sl.current
	s.ID = m.ids.Add(1)
	sl.latest = s.ID
	sl.current = s
	m.wg.Add(1)
	m.mu.Unlock()

	m.opts.Metrics.SessionStarted()
	if prev != nil {
		prev.Cancel()
	}
	go s.run(prev)
	return s, nil
}

// CheckSync runs a check and waits for its report.
func (m *Manager) CheckSync(ctx context.Context, buf Buffer) (Report, error) {
	ch := make(chan Report, 1)
	if _, err := m.Check(ctx, buf, func(r Report) { ch <- r }); err != nil {
		return Report{}, err
	}
	r := <-ch
	if r.Err != nil {
		return r, r.Err
	}
	return r, nil
}

// Forget cancels the running check of path, if any. Its report will be superseded.
func (m *Manager) Forget(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		return
	}
	m.mu.Lock()
	var cur *Session
	if sl := m.slots[key]; sl != nil {
		sl.latest = 0
		cur = sl.current
	}
	m.mu.Unlock()
	if cur != nil {
		cur.Cancel()
	}
}

// Close cancels every running session and waits until all have reported.
func (m *Manager) Close() {
	m.mu.Lock()
	running := make([]*Session, 0, len(m.slots))
	for _, sl := range m.slots {
		sl.latest = 0
		if sl.current != nil {
			running = append(running, sl.current)
		}
	}
	m.mu.Unlock()
	for _, s := range running {
		s.Cancel()
	}
	m.wg.Wait()
}

// Wait blocks until every started session has reported.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) isCurrent(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl := m.slots[s.key]
	return sl != nil && sl.latest == s.ID
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sl := m.slots[s.key]; sl != nil && sl.current == s {
		delete(m.slots, s.key)
	}
}

func (m *Manager) invocation(target string) runner.Invocation {
	inv := m.opts.Compiler
	inv.Source = target
	inv.Dir = ""
	return inv
}

func (m *Manager) logf(format string, args ...any) {
	m.opts.Logf(format, args...)
}
