package main

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"gamscheck/internal/check"
	"gamscheck/internal/diag"
	"gamscheck/internal/diagfmt"
	"gamscheck/internal/metrics"
	"gamscheck/internal/source"
	"gamscheck/internal/trace"
	"gamscheck/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-check models whenever they are saved",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().String("path-mode", "relative", "path display (auto|absolute|relative|basename)")
	watchCmd.Flags().Int8("context", 0, "lines of source context around each error")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	pm, _ := cmd.Flags().GetString("path-mode")
	pathMode, err := diagfmt.ParsePathMode(pm)
	if err != nil {
		return err
	}
	contextLines, _ := cmd.Flags().GetInt8("context")

	addr, _ := cmd.Flags().GetString("metrics-addr")
	var m *metrics.Metrics
	if addr != "" {
		m = metrics.New()
	}
	stopMetrics, err := serveMetrics(cmd.Context(), addr, m, env.logf)
	if err != nil {
		return err
	}
	defer stopMetrics()

	mgr, err := env.manager(nil, m)
	if err != nil {
		return err
	}
	defer mgr.Close()

	printer := &reportPrinter{
		out:  cmd.OutOrStdout(),
		env:  env,
		opts: diagfmt.PrettyOpts{Color: env.color, Context: contextLines, PathMode: pathMode, ShowNotes: true},
	}
	w, err := watch.New(root, mgr, printer.print, watch.Options{
		Debounce: env.cfg.Watch.Debounce.Duration,
		Ignore:   env.cfg.Watch.Ignore,
		Logf:     env.logf,
	})
	if err != nil {
		return err
	}
	env.logf("watching %s", w.Root())
	trace.Notice(env.tracer, "watch.start", "root %s", w.Root())
	span := trace.Begin(env.tracer, trace.ScopeDriver, "watch")
	defer span.End("")
	if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reportPrinter writes watch reports as they arrive; reports come from
// several goroutines.
type reportPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	env  *runEnv
	opts diagfmt.PrettyOpts
}

func (p *reportPrinter) print(r check.Report) {
	if r.Stale() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Status == check.StatusFailed {
		p.env.logf("%s: %v", r.Source, r.Err)
		return
	}
	fs := source.NewFileSet()
	bag := diag.NewBag(p.env.maxDiagnostics)
	r.Collect(fs, bag)
	if bag.Len() == 0 {
		p.env.logf("%s: ok", r.Source)
		return
	}
	diagfmt.Pretty(p.out, bag, fs, p.opts)
}
