// Package config loads gamscheck.toml, .env and GAMSCHECK_* variables.
//
// Precedence, lowest first: built-in defaults, gamscheck.toml found by walking
// up from the working directory, environment (a .env next to the manifest is
// loaded without overriding variables that are already set), command-line flags.
package config

import (
	"fmt"
	"time"

	"gamscheck/internal/check"
	"gamscheck/internal/runner"
)

// FileName is the manifest looked up by Find.
const FileName = "gamscheck.toml"

// Config is the merged configuration.
type Config struct {
	// Path of the manifest that was loaded, "" when none was found.
	Path string `toml:"-"`
	// Root is the manifest's directory, or the start directory without one.
	Root string `toml:"-"`

	Compiler CompilerConfig `toml:"compiler"`
	Check    CheckConfig    `toml:"check"`
	LSP      LSPConfig      `toml:"lsp"`
	Watch    WatchConfig    `toml:"watch"`
}

type CompilerConfig struct {
	Command    string   `toml:"command"`
	Args       []string `toml:"args"`
	Directives []string `toml:"directives"`
	ListingExt string   `toml:"listing_ext"`
	Env        []string `toml:"env"`
	Timeout    Duration `toml:"timeout"`
}

type CheckConfig struct {
	Extensions     []string `toml:"extensions"`
	WriteMode      string   `toml:"write_mode"`
	KeepArtifacts  bool     `toml:"keep_artifacts"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	Jobs           int      `toml:"jobs"`
}

type LSPConfig struct {
	Debounce    Duration `toml:"debounce"`
	MetricsAddr string   `toml:"metrics_addr"`
}

type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
	Ignore   []string `toml:"ignore"`
}

// Duration decodes TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Command:    runner.DefaultCommand,
			Directives: append([]string(nil), runner.DefaultDirectives...),
			ListingExt: runner.DefaultListingExt,
			Timeout:    Duration{2 * time.Minute},
		},
		Check: CheckConfig{
			Extensions: append([]string(nil), check.DefaultExtensions...),
			WriteMode:  check.WriteScratch.String(),
		},
		LSP:   LSPConfig{Debounce: Duration{300 * time.Millisecond}},
		Watch: WatchConfig{Debounce: Duration{200 * time.Millisecond}},
	}
}

// Invocation returns the compiler invocation template.
func (c *Config) Invocation() runner.Invocation {
	return runner.Invocation{
		Command:    c.Compiler.Command,
		Args:       append([]string(nil), c.Compiler.Args...),
		Directives: append([]string{}, c.Compiler.Directives...),
		ListingExt: c.Compiler.ListingExt,
		Env:        append([]string(nil), c.Compiler.Env...),
	}
}

// CheckOptions converts the configuration into check.Options.
// Runtime collaborators (metrics, tracer, progress) are left to the caller.
func (c *Config) CheckOptions() (check.Options, error) {
	mode, err := check.ParseWriteMode(c.Check.WriteMode)
	if err != nil {
		return check.Options{}, &ValidationError{Field: "check.write_mode", Msg: err.Error()}
	}
	return check.Options{
		Compiler:       c.Invocation(),
		Timeout:        c.Compiler.Timeout.Duration,
		Extensions:     append([]string(nil), c.Check.Extensions...),
		WriteMode:      mode,
		KeepArtifacts:  c.Check.KeepArtifacts,
		MaxDiagnostics: c.Check.MaxDiagnostics,
	}, nil
}
