package check

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gamscheck/internal/runner"
)

// fakeCompiler writes a canned listing next to the compiled file.
type fakeCompiler struct {
	mu      sync.Mutex
	calls   []runner.Invocation
	sources []string // content of the compiled file at spawn time

	listing  string // "" = no listing
	startErr error
	// calls compiling exactly this text block until their context is cancelled
	hold string
}

func (f *fakeCompiler) Start(ctx context.Context, inv runner.Invocation, done func(runner.Exit)) error {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	data, _ := os.ReadFile(inv.Source)
	f.sources = append(f.sources, string(data))
	f.mu.Unlock()

	if f.startErr != nil {
		return &runner.SpawnError{Command: "gams", Err: f.startErr}
	}
	go func() {
		lst := inv.Listing()
		if f.hold != "" && string(data) == f.hold {
			<-ctx.Done()
			done(runner.Exit{Listing: lst, Err: ctx.Err(), ExitCode: -1})
			return
		}
		found := false
		if f.listing != "" {
			found = os.WriteFile(lst, []byte(f.listing), 0o600) == nil
		}
		done(runner.Exit{Listing: lst, ListingFound: found, ExitCode: 2, Elapsed: time.Millisecond})
	}()
	return nil
}

func (f *fakeCompiler) invocations() []runner.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Invocation(nil), f.calls...)
}

// collector counts deliveries per session.
type collector struct {
	mu      sync.Mutex
	reports []Report
	calls   atomic.Int32
}

func (c *collector) fn(r Report) {
	c.calls.Add(1)
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Name())
	}
	return out
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

func quietOptions(fc *fakeCompiler) Options {
	return Options{Spawner: fc, Logf: func(string, ...any) {}}
}
