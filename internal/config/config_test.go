package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamscheck/internal/check"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDefaultsWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Equal(t, "gams", cfg.Compiler.Command)
	assert.Equal(t, []string{"action=c", "logoption=0"}, cfg.Compiler.Directives)
	assert.Equal(t, "lst", cfg.Compiler.ListingExt)
	assert.Equal(t, []string{".gms"}, cfg.Check.Extensions)
	assert.Equal(t, 300*time.Millisecond, cfg.LSP.Debounce.Duration)
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
[compiler]
command = "/opt/gams/gams"
args = ["lo=3"]
directives = ["a=c"]
listing_ext = ".LST"
timeout = "45s"

[check]
extensions = ["gms", "inc"]
write_mode = "in-place"
max_diagnostics = 50
`)
	nested := filepath.Join(root, "models", "transport")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Load(nested, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), cfg.Path)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "/opt/gams/gams", cfg.Compiler.Command)
	assert.Equal(t, "LST", cfg.Compiler.ListingExt)
	assert.Equal(t, 45*time.Second, cfg.Compiler.Timeout.Duration)

	opts, err := cfg.CheckOptions()
	require.NoError(t, err)
	assert.Equal(t, check.WriteInPlace, opts.WriteMode)
	assert.Equal(t, 50, opts.MaxDiagnostics)
	assert.Equal(t, []string{"lo=3"}, opts.Compiler.Args)
	assert.Equal(t, []string{"a=c"}, opts.Compiler.Directives)
}

func TestLoadUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "[compiler]\ncommnd = \"gams\"\n")

	_, err := Load(dir, "")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "compiler.commnd", ve.Field)
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "[compiler]\ncommand = \"gams-from-toml\"\n")
	t.Setenv(EnvCompiler, "gams-from-env")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvKeepArtifacts, "true")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "gams-from-env", cfg.Compiler.Command)
	assert.Equal(t, 5*time.Second, cfg.Compiler.Timeout.Duration)
	assert.True(t, cfg.Check.KeepArtifacts)
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), EnvCompiler+"=gams-dotenv\n"+EnvWriteMode+"=in-place\n")
	t.Setenv(EnvCompiler, "gams-shell")
	// t.Setenv восстановит значение; .env выставит WRITE_MODE сам
	t.Setenv(EnvWriteMode, "")
	require.NoError(t, os.Unsetenv(EnvWriteMode))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "gams-shell", cfg.Compiler.Command)
	assert.Equal(t, "in-place", cfg.Check.WriteMode)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"empty command", func(c *Config) { c.Compiler.Command = " " }, "compiler.command"},
		{"bad listing ext", func(c *Config) { c.Compiler.ListingExt = "a/b" }, "compiler.listing_ext"},
		{"negative timeout", func(c *Config) { c.Compiler.Timeout = Duration{-time.Second} }, "compiler.timeout"},
		{"bad env", func(c *Config) { c.Compiler.Env = []string{"NOVALUE"} }, "compiler.env"},
		{"bad write mode", func(c *Config) { c.Check.WriteMode = "tmp" }, "check.write_mode"},
		{"negative max", func(c *Config) { c.Check.MaxDiagnostics = -1 }, "check.max_diagnostics"},
		{"empty ext", func(c *Config) { c.Check.Extensions = []string{"."} }, "check.extensions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.edit(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	cfg := Default()
	cfg.Check.Extensions = nil
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".gms"}, cfg.Check.Extensions)
}
