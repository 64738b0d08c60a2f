package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamscheck/internal/metrics"
	"gamscheck/internal/runner"
	"gamscheck/internal/source"
	"gamscheck/internal/trace"
)

// ErrNotEnabled is returned for files whose extension is not registered.
var ErrNotEnabled = errors.New("check: file type not enabled")

// WriteMode selects where the buffer is written before compiling.
type WriteMode uint8

const (
	// WriteScratch writes a sibling "<base>_gck<id>.<ext>" file and removes it afterwards.
	WriteScratch WriteMode = iota
	// WriteInPlace overwrites the source file itself.
	WriteInPlace
)

func (m WriteMode) String() string {
	if m == WriteInPlace {
		return "in-place"
	}
	return "scratch"
}

// ParseWriteMode accepts "scratch" and "in-place".
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(s) {
	case "", "scratch":
		return WriteScratch, nil
	case "in-place", "inplace":
		return WriteInPlace, nil
	}
	return WriteScratch, fmt.Errorf("invalid write mode %q (expected: scratch|in-place)", s)
}

// Spawner starts the compiler. done must be called exactly once unless an error is returned.
type Spawner interface {
	Start(ctx context.Context, inv runner.Invocation, done func(runner.Exit)) error
}

type runnerSpawner struct{ r *runner.Runner }

func (s runnerSpawner) Start(ctx context.Context, inv runner.Invocation, done func(runner.Exit)) error {
	_, err := s.r.Start(ctx, inv, done)
	return err
}

// Options configures a Manager.
type Options struct {
	// Compiler is the invocation template; Source is filled per check.
	Compiler runner.Invocation
	Timeout  time.Duration

	// Extensions that are checked, with or without the leading dot. Defaults to .gms.
	Extensions     []string
	WriteMode      WriteMode
	KeepArtifacts  bool
	MaxDiagnostics int

	Spawner  Spawner // defaults to a runner.Runner
	Progress runner.ProgressSink
	Metrics  *metrics.Metrics
	Cache    *source.IndexCache
	Tracer   trace.Tracer
	Logf     func(format string, args ...any)
}

// DefaultExtensions are checked when Options.Extensions is empty.
var DefaultExtensions = []string{".gms"}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
