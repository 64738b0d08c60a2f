package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gamscheck/internal/check"
	"gamscheck/internal/config"
	"gamscheck/internal/metrics"
	"gamscheck/internal/runner"
	"gamscheck/internal/trace"
)

// runEnv is what every command needs: merged configuration, output switches
// and the tracer.
type runEnv struct {
	cfg            *config.Config
	tracer         trace.Tracer
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
}

// prepare loads configuration, applies flag overrides and starts tracing.
func prepare(cmd *cobra.Command) (*runEnv, func(), error) {
	flags := cmd.Root().PersistentFlags()

	explicit, _ := flags.GetString("config")
	cfg, err := config.Load(".", explicit)
	if err != nil {
		return nil, nil, err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, nil, err
	}

	colorMode, _ := flags.GetString("color")
	color, err := readColorMode(colorMode)
	if err != nil {
		return nil, nil, err
	}
	quiet, _ := flags.GetBool("quiet")
	timings, _ := flags.GetBool("timings")
	maxDiagnostics, _ := flags.GetInt("max-diagnostics")

	tracer, stopTrace, err := setupTracing(cmd)
	if err != nil {
		return nil, nil, err
	}
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		stopTrace()
		return nil, nil, err
	}
	cleanup := func() {
		stopProf()
		stopTrace()
	}
	return &runEnv{
		cfg:            cfg,
		tracer:         tracer,
		color:          color,
		quiet:          quiet,
		timings:        timings,
		maxDiagnostics: maxDiagnostics,
	}, cleanup, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("compiler") {
		v, _ := flags.GetString("compiler")
		cfg.Compiler.Command = v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		cfg.Compiler.Timeout = config.Duration{Duration: v}
	}
	if flags.Changed("write-mode") {
		v, _ := flags.GetString("write-mode")
		cfg.Check.WriteMode = v
	}
	if flags.Changed("keep-artifacts") {
		v, _ := flags.GetBool("keep-artifacts")
		cfg.Check.KeepArtifacts = v
	}
	return cfg.Validate()
}

// manager builds a check.Manager from the environment. Progress and metrics
// are optional.
func (e *runEnv) manager(progress runner.ProgressSink, m *metrics.Metrics) (*check.Manager, error) {
	opts, err := e.cfg.CheckOptions()
	if err != nil {
		return nil, err
	}
	opts.Progress = progress
	opts.Metrics = m
	opts.Tracer = e.tracer
	if e.quiet {
		opts.Logf = func(string, ...any) {}
	}
	return check.NewManager(opts), nil
}

func (e *runEnv) logf(format string, args ...any) {
	if e.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "gamscheck: "+format+"\n", args...)
}

func readColorMode(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout), nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
}
