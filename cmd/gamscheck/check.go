package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gamscheck/internal/check"
	"gamscheck/internal/diag"
	"gamscheck/internal/diagfmt"
	"gamscheck/internal/runner"
	"gamscheck/internal/source"
	"gamscheck/internal/trace"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [files or directories...]",
	Short: "Compile models and report listing errors",
	Long: `Compile each model with the GAMS compiler and print the errors found in
its listing. Directories are searched recursively for files with an enabled
extension. Exit status is 1 when any diagnostic was reported and 2 when a
compiler run failed.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json|msgpack)")
	checkCmd.Flags().Int("jobs", 0, "parallel compiler runs (0 = config or number of CPUs)")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	checkCmd.Flags().String("path-mode", "auto", "path display (auto|absolute|relative|basename)")
	checkCmd.Flags().Int8("context", 0, "lines of source context around each error")
	checkCmd.Flags().Bool("notes", true, "show diagnostic notes")
}

type checkOptions struct {
	format   string
	jobs     int
	ui       uiMode
	pathMode diagfmt.PathMode
	context  int8
	notes    bool
}

func readCheckOptions(cmd *cobra.Command, env *runEnv) (checkOptions, error) {
	var opts checkOptions
	format, _ := cmd.Flags().GetString("format")
	opts.format = strings.ToLower(strings.TrimSpace(format))
	switch opts.format {
	case "pretty", "short", "json", "msgpack":
	default:
		return opts, fmt.Errorf("unsupported format %q (must be pretty, short, json or msgpack)", format)
	}

	opts.jobs, _ = cmd.Flags().GetInt("jobs")
	if opts.jobs <= 0 {
		opts.jobs = env.cfg.Check.Jobs
	}
	if opts.jobs <= 0 {
		opts.jobs = runtime.GOMAXPROCS(0)
	}

	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return opts, err
	}
	opts.ui = mode

	pm, _ := cmd.Flags().GetString("path-mode")
	if opts.pathMode, err = diagfmt.ParsePathMode(pm); err != nil {
		return opts, err
	}
	opts.context, _ = cmd.Flags().GetInt8("context")
	opts.notes, _ = cmd.Flags().GetBool("notes")
	return opts, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	env, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := readCheckOptions(cmd, env)
	if err != nil {
		return err
	}

	probe, err := env.manager(nil, nil)
	if err != nil {
		return err
	}
	files, err := collectSourceFiles(args, probe.Enabled)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no source files with extensions %s", strings.Join(probe.Extensions(), ", "))
	}

	run := func(ctx context.Context, progress runner.ProgressSink) ([]check.Report, error) {
		m, err := env.manager(progress, nil)
		if err != nil {
			return nil, err
		}
		defer m.Close()
		return checkFiles(ctx, m, files, opts.jobs, progress)
	}

	span := trace.Begin(env.tracer, trace.ScopeDriver, "check").
		WithExtra("files", strconv.Itoa(len(files)))
	var reports []check.Report
	if opts.format == "pretty" && shouldUseTUI(opts.ui, len(files)) {
		reports, err = runChecksWithUI(cmd.Context(), "checking", files, run)
	} else {
		reports, err = run(cmd.Context(), nil)
	}
	span.End("")
	if err != nil {
		return err
	}

	code, err := writeReports(cmd.OutOrStdout(), reports, env, opts)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.Status == check.StatusFailed {
			env.logf("%s: %v", r.Source, r.Err)
		}
	}
	if env.timings {
		printStageTimings(cmd.ErrOrStderr(), reports)
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// checkFiles runs one session per file, at most jobs at a time. Reports are
// returned in files order.
func checkFiles(ctx context.Context, m *check.Manager, files []string, jobs int, progress runner.ProgressSink) ([]check.Report, error) {
	reports := make([]check.Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			r, err := m.CheckSync(gctx, check.Buffer{Path: file})
			if err != nil && r.Status == 0 {
				// сессия не стартовала
				return err
			}
			reports[i] = r
			if progress != nil {
				progress.OnEvent(fileEvent(file, r))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// fileEvent closes a file in the progress view.
func fileEvent(file string, r check.Report) runner.Event {
	ev := runner.Event{File: file, Status: runner.StatusDone, Elapsed: r.Timings.Sum()}
	switch {
	case r.Status == check.StatusFailed:
		ev.Status = runner.StatusError
		ev.Err = r.Err
	case len(r.Diagnostics) > 0:
		ev.Status = runner.StatusError
		ev.Err = fmt.Errorf("%d diagnostic(s)", len(r.Diagnostics))
	}
	return ev
}

// writeReports renders all reports and returns the exit status.
func writeReports(w io.Writer, reports []check.Report, env *runEnv, opts checkOptions) (int, error) {
	fs := source.NewFileSet()
	bag := diag.NewBag(env.maxDiagnostics)
	code := 0
	for _, r := range reports {
		r.Collect(fs, bag)
		switch {
		case r.Status == check.StatusFailed:
			code = 2
		case len(r.Diagnostics) > 0 && code == 0:
			code = 1
		}
		for _, sk := range r.Skipped {
			env.logf("%s: listing block at line %d skipped: %s", r.Source, sk.Line, sk.Reason)
		}
		if r.Unmapped > 0 {
			env.logf("%s: %d error(s) point outside the source", r.Source, r.Unmapped)
		}
	}
	bag.Sort()

	switch opts.format {
	case "short":
		return code, diagfmt.Short(w, bag, fs, opts.pathMode)
	case "json":
		return code, diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			IncludeNotes:     opts.notes,
		})
	case "msgpack":
		return code, diagfmt.Msgpack(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			IncludeNotes:     opts.notes,
		})
	default:
		if bag.Len() == 0 {
			if !env.quiet && code == 0 {
				fmt.Fprintf(w, "ok: %d file(s) checked\n", len(reports))
			}
			return code, nil
		}
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     env.color,
			Context:   opts.context,
			PathMode:  opts.pathMode,
			ShowNotes: opts.notes,
		})
		return code, nil
	}
}

// collectSourceFiles expands directories and keeps files accepted by enabled.
// Explicit file arguments must exist; the result is sorted and deduplicated.
func collectSourceFiles(args []string, enabled func(string) bool) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !enabled(arg) {
				return nil, fmt.Errorf("%s: %w", arg, check.ErrNotEnabled)
			}
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if enabled(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
