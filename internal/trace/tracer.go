package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tracer receives events from sessions and the CLI. Implementations must
// accept Emit from several goroutines at once.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	// Enabled is false when nothing would be recorded.
	Enabled() bool
}

// StorageMode says where events go: written out, kept in memory, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both. Empty means stream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	for m, name := range modeNames {
		if name != "" && name == s {
			return StorageMode(m), nil //nolint:gosec // index of a three-entry table
		}
	}
	return ModeStream, fmt.Errorf("trace mode %q: want stream, ring or both", s)
}

// FormatForPath picks NDJSON for .ndjson and .jsonl files, text otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

// Config describes the tracer New builds.
type Config struct {
	Level Level
	Mode  StorageMode
	// Format of streamed events; FormatAuto derives it from OutputPath.
	Format Format
	// Output wins over OutputPath when set.
	Output     io.Writer
	OutputPath string // "" or "-" is stderr
	RingSize   int    // events kept in ring mode, 4096 when <= 0
}

// New returns Nop for LevelOff, otherwise the tracer cfg.Mode asks for.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	ringSize := cfg.RingSize
	if ringSize <= 0 {
		ringSize = 4096
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatForPath(cfg.OutputPath)
	}

	var stream, ring Tracer
	switch cfg.Mode {
	case 0, ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream = NewStreamTracer(w, cfg.Level, format)
		if cfg.Mode == ModeBoth {
			ring = NewRingTracer(ringSize, cfg.Level)
		}
	case ModeRing:
		return NewRingTracer(ringSize, cfg.Level), nil
	default:
		return nil, fmt.Errorf("trace mode %d not supported", cfg.Mode)
	}
	if ring == nil {
		return stream, nil
	}
	return NewMultiTracer(stream, ring), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "", cfg.OutputPath == "-":
		// stderr не закрываем
		return struct{ io.Writer }{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("trace output: %w", err)
	}
	return f, nil
}

// Point emits an instant event that belongs to no session. kv holds
// alternating keys and values for Extra.
func Point(t Tracer, scope Scope, name, detail string, kv ...string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	ev := &Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Name: name, Detail: detail}
	ev.Extra = extra(kv)
	t.Emit(ev)
}

// Notice is a driver point, so it shows at every level except off.
func Notice(t Tracer, name, format string, args ...any) {
	Point(t, ScopeDriver, name, fmt.Sprintf(format, args...))
}
