// Package watch re-checks model files when they are saved.
//
// A Watcher subscribes to a directory tree with fsnotify, collects changed
// files during a quiet period and hands each one to the checker. Scratch
// artifacts and listings written by the checks themselves are ignored, and a
// file whose content did not change since its last check is skipped, which
// also keeps in-place write mode from triggering itself.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gamscheck/internal/check"
)

// Checker is the part of *check.Manager the watcher needs.
type Checker interface {
	Enabled(path string) bool
	Check(ctx context.Context, buf check.Buffer, fn check.ReportFunc) (*check.Session, error)
	Forget(path string)
}

// Options tune a Watcher.
type Options struct {
	Debounce time.Duration
	// Ignore holds directory or file base names and globs; DefaultIgnore when nil.
	Ignore []string
	Logf   func(format string, args ...any)
}

// DefaultIgnore skips VCS metadata and the compiler's process directories (225a, 225b, ...).
var DefaultIgnore = []string{".git", ".hg", ".svn", "225?", "*.lst", "*.lxi", "*.gdx"}

// Watcher runs checks for changed files under a root directory.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	checker  Checker
	report   check.ReportFunc
	debounce time.Duration
	ignore   []string
	logf     func(format string, args ...any)

	mu      sync.Mutex
	lastSum map[string][32]byte
}

// New starts watching root recursively. Watches are in place when New returns.
func New(root string, checker Checker, report check.ReportFunc, opts Options) (*Watcher, error) {
	if checker == nil {
		return nil, errors.New("watch: nil checker")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", abs)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     abs,
		fsw:      fsw,
		checker:  checker,
		report:   report,
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		logf:     opts.Logf,
		lastSum:  make(map[string][32]byte),
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}
	if w.ignore == nil {
		w.ignore = DefaultIgnore
	}
	if w.logf == nil {
		w.logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "watch: "+format+"\n", args...)
		}
	}
	if report == nil {
		w.report = func(check.Report) {}
	}
	if _, err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Run dispatches checks until ctx is cancelled. It closes the underlying
// fsnotify watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		timer.Reset(w.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(ev, pending) {
				arm()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logf("%v", err)

		case <-timerC:
			timer, timerC = nil, nil
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

// handleEvent records ev and reports whether a check became pending.
func (w *Watcher) handleEvent(ev fsnotify.Event, pending map[string]struct{}) bool {
	path := ev.Name
	if w.shouldIgnore(path) || check.IsArtifact(path) {
		return false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(pending, path)
		w.mu.Lock()
		delete(w.lastSum, path)
		w.mu.Unlock()
		w.checker.Forget(path)
		return false

	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			files, err := w.addRecursive(path)
			if err != nil {
				w.logf("%s: %v", path, err)
			}
			for _, f := range files {
				pending[f] = struct{}{}
			}
			return len(files) > 0
		}
		fallthrough

	case ev.Has(fsnotify.Write):
		if !w.checker.Enabled(path) {
			return false
		}
		pending[path] = struct{}{}
		return true
	}
	return false
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				w.logf("%s: %v", p, err)
			}
			continue
		}
		sum := sha256.Sum256(data)
		w.mu.Lock()
		same := w.lastSum[p] == sum
		w.lastSum[p] = sum
		w.mu.Unlock()
		if same {
			continue
		}
		if _, err := w.checker.Check(ctx, check.Buffer{Path: p, Text: data}, w.report); err != nil && !errors.Is(err, check.ErrNotEnabled) {
			w.logf("%s: %v", p, err)
		}
	}
}

// addRecursive watches dir and its subdirectories and returns the enabled
// files already present in them.
func (w *Watcher) addRecursive(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && w.shouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		if !check.IsArtifact(path) && w.checker.Enabled(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	// скрытые каталоги и файлы редакторов (.#model.gms)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
