package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvCompiler      = "GAMSCHECK_COMPILER"
	EnvTimeout       = "GAMSCHECK_TIMEOUT"
	EnvWriteMode     = "GAMSCHECK_WRITE_MODE"
	EnvKeepArtifacts = "GAMSCHECK_KEEP_ARTIFACTS"
)

// Find walks up from startDir to locate gamscheck.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load builds the configuration for startDir. A non-empty explicit path
// skips the lookup and must exist.
func Load(startDir, explicit string) (*Config, error) {
	cfg := Default()

	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}

	root, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.Path = path
		root = filepath.Dir(path)
	}
	cfg.Root = root

	// .env рядом с манифестом; уже заданные переменные не перетираются
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Join(root, ".env"), err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &ValidationError{Field: keys[0], Msg: "unknown key in " + path + ": " + strings.Join(keys, ", ")}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvCompiler)); v != "" {
		cfg.Compiler.Command = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ValidationError{Field: EnvTimeout, Msg: err.Error()}
		}
		cfg.Compiler.Timeout = Duration{d}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWriteMode)); v != "" {
		cfg.Check.WriteMode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvKeepArtifacts)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: EnvKeepArtifacts, Msg: err.Error()}
		}
		cfg.Check.KeepArtifacts = b
	}
	return nil
}
