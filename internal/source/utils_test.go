package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()

	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}
	if err := os.MkdirAll(otherDir, 0o755); err != nil {
		t.Fatalf("failed to create other dir: %v", err)
	}

	target := filepath.Join(otherDir, "model.gms")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want := normalizePath(target)
	if got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	tmp := t.TempDir()

	target := filepath.Join(tmp, "nested", "model.gms")

	got, err := RelativePath(target, tmp)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want := "nested/model.gms"
	if got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}

func TestFormatPathModesLongPath(t *testing.T) {
	f := NewFile("/very/long/path/to/some/project/directory/models/transport.gms", nil, 0)
	if got := f.FormatPath("basename", ""); got != "transport.gms" {
		t.Errorf("basename: got %q", got)
	}
	if got := f.FormatPath("auto", ""); got != "transport.gms" {
		t.Errorf("auto: got %q", got)
	}
	if got := f.FormatPath("relative", "/very/long/path"); got != "to/some/project/directory/models/transport.gms" {
		t.Errorf("relative: got %q", got)
	}
}
