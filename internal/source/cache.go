package source

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	path string
	hash [32]byte
}

// IndexCache keeps recently built line tables so repeated checks of an
// unchanged buffer skip the rescan. Safe for concurrent use.
type IndexCache struct {
	files *lru.Cache[cacheKey, *File]
}

// NewIndexCache creates a cache holding up to size files. size <= 0 picks 64.
func NewIndexCache(size int) *IndexCache {
	if size <= 0 {
		size = 64
	}
	c, err := lru.New[cacheKey, *File](size)
	if err != nil {
		// lru.New fails only for non-positive sizes
		panic(err)
	}
	return &IndexCache{files: c}
}

// File returns the line table for raw content attributed to path.
// The content is normalized (BOM, CRLF) before indexing.
func (c *IndexCache) File(path string, raw []byte, flags FileFlags) *File {
	key := cacheKey{path: normalizePath(path), hash: sha256.Sum256(raw)}
	if c != nil {
		if f, ok := c.files.Get(key); ok {
			return f
		}
	}
	content, nflags := Normalize(raw)
	f := NewFile(path, content, flags|nflags)
	if c != nil {
		c.files.Add(key, f)
	}
	return f
}

// Len returns the number of cached files.
func (c *IndexCache) Len() int {
	if c == nil {
		return 0
	}
	return c.files.Len()
}
