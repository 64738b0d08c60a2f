package check

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/coregx/coregex"
	"github.com/google/uuid"
)

const scratchMarker = "_gck"

var artifactRe = mustCompile(`_gck[0-9a-f]{8}(\.[^./\\]*)?$`)

func mustCompile(pattern string) *coregex.Regexp {
	re, err := coregex.Compile(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// ScratchPath returns a fresh sibling of src named "<base>_gck<8 hex><ext>".
func ScratchPath(src string) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return filepath.Join(filepath.Dir(src), base+scratchMarker+id+ext)
}

// IsArtifact reports whether path is a scratch copy or its listing.
func IsArtifact(path string) bool {
	return artifactRe.MatchString(filepath.Base(path))
}

// writeFileAtomic replaces path via a temp file and rename, keeping the old mode.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gamscheck-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
