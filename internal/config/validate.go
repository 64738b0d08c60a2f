package config

import (
	"fmt"
	"strings"

	"gamscheck/internal/check"
)

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Validate checks value ranges and fills empty fields with defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Compiler.Command) == "" {
		return &ValidationError{Field: "compiler.command", Msg: "must not be empty"}
	}
	ext := strings.TrimPrefix(c.Compiler.ListingExt, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return &ValidationError{Field: "compiler.listing_ext", Msg: fmt.Sprintf("invalid extension %q", c.Compiler.ListingExt)}
	}
	c.Compiler.ListingExt = ext
	if c.Compiler.Timeout.Duration < 0 {
		return &ValidationError{Field: "compiler.timeout", Msg: "must not be negative"}
	}
	for _, e := range c.Compiler.Env {
		if !strings.Contains(e, "=") {
			return &ValidationError{Field: "compiler.env", Msg: fmt.Sprintf("%q is not KEY=VALUE", e)}
		}
	}
	if len(c.Check.Extensions) == 0 {
		c.Check.Extensions = append([]string(nil), check.DefaultExtensions...)
	}
	for _, e := range c.Check.Extensions {
		if strings.Trim(e, ". ") == "" {
			return &ValidationError{Field: "check.extensions", Msg: "empty extension"}
		}
	}
	if _, err := check.ParseWriteMode(c.Check.WriteMode); err != nil {
		return &ValidationError{Field: "check.write_mode", Msg: err.Error()}
	}
	if c.Check.MaxDiagnostics < 0 {
		return &ValidationError{Field: "check.max_diagnostics", Msg: "must not be negative"}
	}
	if c.Check.Jobs < 0 {
		return &ValidationError{Field: "check.jobs", Msg: "must not be negative"}
	}
	if c.LSP.Debounce.Duration < 0 || c.Watch.Debounce.Duration < 0 {
		return &ValidationError{Field: "debounce", Msg: "must not be negative"}
	}
	return nil
}
