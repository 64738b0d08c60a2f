package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet owns the files diagnostics point into. IDs are indexes into files,
// so a File is never removed once added.
type FileSet struct {
	files   []File
	baseDir string // пусто: рабочая директория
}

func NewFileSet() *FileSet {
	return &FileSet{}
}

// SetBaseDir sets the directory "relative" path mode is computed against.
func (fileSet *FileSet) SetBaseDir(dir string) {
	fileSet.baseDir = dir
}

func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir != "" {
		return fileSet.baseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// NewFile builds a File with ID 0 from content that is already normalized.
// Reports carry such files until the caller collects them into a FileSet.
func NewFile(path string, content []byte, flags FileFlags) *File {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("source %s too large: %w", path, err))
	}
	f := &File{
		Path:    normalizePath(path),
		Content: content,
		Flags:   flags,
	}
	f.LineIdx = buildLineIndex(content)
	f.Hash = sha256.Sum256(content)
	return f
}

// Add registers normalized content under a fresh FileID. Adding the same
// path twice yields two IDs; older diagnostics keep pointing at the old text.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	return fileSet.AddFile(NewFile(path, content, flags))
}

// AddFile stores a copy of f and returns its ID. f itself is not modified.
func (fileSet *FileSet) AddFile(f *File) FileID {
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	stored := *f
	stored.ID = FileID(n)
	fileSet.files = append(fileSet.files, stored)
	return stored.ID
}

// AddVirtual normalizes an in-memory buffer and adds it flagged FileVirtual.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	normalized, flags := Normalize(content)
	return fileSet.Add(name, normalized, flags|FileVirtual)
}

func (fileSet *FileSet) Len() int { return len(fileSet.files) }

// Get panics on an ID this set did not hand out.
func (fileSet *FileSet) Get(id FileID) *File {
	return &fileSet.files[id]
}

// Resolve maps both ends of span to 1-based line and column.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	idx := fileSet.files[span.File].LineIdx
	start = toLineCol(idx, span.Start)
	end = toLineCol(idx, span.End)
	return start, end
}

// GetLine returns line lineNum (1-based) without its newline, or "" when
// the file has no such line.
func (f *File) GetLine(lineNum uint32) string {
	start, end, err := f.LineBounds(int(lineNum))
	if err != nil {
		return ""
	}
	return string(f.Content[start:end])
}

// FormatPath renders f.Path for display. mode is one of absolute, relative,
// basename or auto; anything else returns the path unchanged.
func (f *File) FormatPath(mode, baseDir string) string {
	var (
		out string
		err error
	)
	switch mode {
	case "absolute":
		out, err = AbsolutePath(f.Path)
	case "relative":
		if baseDir == "" {
			baseDir, _ = os.Getwd()
		}
		out, err = RelativePath(f.Path, baseDir)
	case "basename":
		return BaseName(f.Path)
	case "auto":
		// длинные абсолютные пути сокращаем до имени файла
		if filepath.IsAbs(f.Path) && len(f.Path) >= 40 {
			return BaseName(f.Path)
		}
		return f.Path
	default:
		return f.Path
	}
	if err != nil {
		return f.Path
	}
	return out
}
