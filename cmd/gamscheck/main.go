package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gamscheck/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gamscheck",
	Short: "Compile GAMS models and report listing errors as diagnostics",
	Long: `gamscheck runs the GAMS compiler in compile-only mode, reads the error
blocks from the listing file and maps them back onto the model text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit status; a nil err means nothing to print.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	rootCmd.Version = version.Current().Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listingCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show per-stage timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	pf.String("config", "", "path to gamscheck.toml (default: search upwards from the working directory)")
	pf.String("compiler", "", "compiler executable (overrides config and GAMSCHECK_COMPILER)")
	pf.Duration("timeout", 0, "kill a compiler run after this long (overrides config)")
	pf.String("write-mode", "", "how buffers reach the compiler (scratch|in-place)")
	pf.Bool("keep-artifacts", false, "keep scratch copies and listing files")

	pf.String("trace", "", "write trace events to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|stage|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity for ring/both modes")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 = off)")

	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(reportExit(err))
	}
}

func reportExit(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "gamscheck: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "gamscheck: %v\n", err)
	return 2
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
