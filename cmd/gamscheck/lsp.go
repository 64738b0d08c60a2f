package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gamscheck/internal/lsp"
	"gamscheck/internal/metrics"
	"gamscheck/internal/trace"
	"gamscheck/internal/version"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the GAMS diagnostics language server over stdio",
	RunE:  runLSP,
}

func init() {
	lspCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	env, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := env.cfg.LSP.MetricsAddr
	if cmd.Flags().Changed("metrics-addr") {
		addr, _ = cmd.Flags().GetString("metrics-addr")
	}
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

	span := trace.Begin(env.tracer, trace.ScopeDriver, "lsp")
	defer span.End("")

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Debounce:       env.cfg.LSP.Debounce.Duration,
		Checker:        mgr,
		MaxDiagnostics: env.maxDiagnostics,
		Version:        version.Current().Version,
		Logf:           env.logf,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return &exitError{code: 1, err: fmt.Errorf("lsp exit without shutdown")}
		}
		return err
	}
	return nil
}
