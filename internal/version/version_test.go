package version

import (
	"strings"
	"testing"
)

func TestCurrentDefaults(t *testing.T) {
	info := Current()
	if info.Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestCurrentCanBeOverridden(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	// как при сборке с -ldflags
	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Current()
	if info.Version != "1.2.3" || info.GitCommit != "abc123def456" || info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Errorf("unexpected info %+v", info)
	}

	Version = ""
	if got := Current().Version; got != "dev" {
		t.Errorf("empty version = %q, want dev", got)
	}
}

func TestColored(t *testing.T) {
	if got := Colored("0.1.0-dev", false); got != "0.1.0-dev" {
		t.Errorf("plain = %q", got)
	}
	got := Colored("0.1.0-dev", true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Errorf("colored = %q", got)
	}
	if got := Colored("nightly", true); got != "nightly" {
		t.Errorf("non-semver = %q", got)
	}
}
