package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCommand is the compiler looked up on PATH.
	DefaultCommand = "gams"
	// DefaultListingExt is the extension of the listing the compiler writes.
	DefaultListingExt = "lst"

	stderrLimit = 4 << 10
)

// DefaultDirectives ask for compilation only with no log echoed to the console.
var DefaultDirectives = []string{"action=c", "logoption=0"}

// Invocation describes one compiler run.
type Invocation struct {
	Command    string   // executable, DefaultCommand when empty
	Args       []string // placed before the source path
	Source     string   // file handed to the compiler
	Directives []string // placed after the source path, DefaultDirectives when nil
	Dir        string   // working directory, the source's directory when empty
	Env        []string // extra KEY=VALUE pairs
	ListingExt string   // DefaultListingExt when empty
}

func (inv Invocation) normalized() Invocation {
	if inv.Command == "" {
		inv.Command = DefaultCommand
	}
	if inv.Directives == nil {
		inv.Directives = DefaultDirectives
	}
	if inv.ListingExt == "" {
		inv.ListingExt = DefaultListingExt
	}
	if inv.Dir == "" && inv.Source != "" {
		inv.Dir = filepath.Dir(inv.Source)
	}
	return inv
}

// Argv returns the argument list after the command name.
func (inv Invocation) Argv() []string {
	inv = inv.normalized()
	out := make([]string, 0, len(inv.Args)+1+len(inv.Directives))
	out = append(out, inv.Args...)
	out = append(out, inv.Source)
	out = append(out, inv.Directives...)
	return out
}

// Listing returns the path the compiler writes its listing to.
func (inv Invocation) Listing() string {
	inv = inv.normalized()
	return ListingPath(inv.Source, inv.ListingExt)
}

// ListingPath derives "<dir>/<basename>.<ext>" from a source path.
func ListingPath(source, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultListingExt
	}
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(source), base+"."+ext)
}

// Exit describes a finished compiler run. The exit code is not interpreted.
type Exit struct {
	ExitCode     int
	Listing      string
	ListingFound bool
	Stderr       string
	Elapsed      time.Duration
	Err          error // cancellation, timeout or a wait failure; nil for any normal exit
}

// SpawnError reports a compiler that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Runner starts compiler processes.
type Runner struct {
	// Timeout kills a run that takes longer. Zero disables it.
	Timeout  time.Duration
	Progress ProgressSink
}

// Process is a running compiler.
type Process struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel kills the process. The completion callback still runs.
func (p *Process) Cancel() {
	p.once.Do(p.cancel)
}

// Done is closed after the completion callback has returned.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Start launches the compiler and returns without waiting. done is called
// exactly once from another goroutine when the process has exited.
func (r *Runner) Start(ctx context.Context, inv Invocation, done func(Exit)) (*Process, error) {
	inv = inv.normalized()
	if inv.Source == "" {
		return nil, &SpawnError{Command: inv.Command, Err: errors.New("no source file")}
	}

	var cancel context.CancelFunc
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	// #nosec G204 -- the compiler command is configured by the user
	cmd := exec.CommandContext(ctx, inv.Command, inv.Argv()...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	stderr := &limitedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	emit(r.Progress, Event{File: inv.Source, Stage: StageCompile, Status: StatusWorking})
	started := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		emit(r.Progress, Event{File: inv.Source, Stage: StageCompile, Status: StatusError, Err: err})
		return nil, &SpawnError{Command: inv.Command, Err: err}
	}

	p := &Process{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		waitErr := cmd.Wait()
		exit := Exit{
			Listing: inv.Listing(),
			Stderr:  strings.TrimSpace(stderr.String()),
			Elapsed: time.Since(started),
		}
		if cmd.ProcessState != nil {
			exit.ExitCode = cmd.ProcessState.ExitCode()
		}
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			exit.Err = ctx.Err()
		case waitErr != nil && !errors.As(waitErr, &exitErr):
			exit.Err = waitErr
		}
		cancel()
		if st, err := os.Stat(exit.Listing); err == nil && st.Mode().IsRegular() {
			exit.ListingFound = true
		}

		status := StatusDone
		if exit.Err != nil {
			status = StatusError
		}
		emit(r.Progress, Event{File: inv.Source, Stage: StageCompile, Status: status, Err: exit.Err, Elapsed: exit.Elapsed})
		if done != nil {
			done(exit)
		}
	}()
	return p, nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   strings.Builder
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
