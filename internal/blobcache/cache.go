// Package blobcache is the injected artifact cache the upsert engine
// evicts from when a remote image list drops entries. It is scoped to the
// engine instance, never a process-wide singleton.
package blobcache

import (
	"os"
	"path/filepath"
	"sync"
)

// Cache stores opaque artifacts (downloaded images, thumbnails) keyed by
// their remote identifier.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte) error
	Evict(key string)
}

// DirCache keeps one file per key under a directory, with an in-memory
// index guarding concurrent access. Losing the whole directory is always
// safe: entries are re-downloadable derived data.
type DirCache struct {
	dir string

	mu    sync.RWMutex
	known map[string]struct{}
}

func NewDirCache(dir string) (*DirCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	c := &DirCache{dir: dir, known: make(map[string]struct{})}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			c.known[e.Name()] = struct{}{}
		}
	}
	return c, nil
}

func (c *DirCache) path(key string) string {
	// Keys are remote identifiers; strip path separators defensively.
	return filepath.Join(c.dir, filepath.Base(key))
}

func (c *DirCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	_, ok := c.known[filepath.Base(key)]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *DirCache) Set(key string, data []byte) error {
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return err
	}
	c.mu.Lock()
	c.known[filepath.Base(key)] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *DirCache) Evict(key string) {
	c.mu.Lock()
	delete(c.known, filepath.Base(key))
	c.mu.Unlock()
	_ = os.Remove(c.path(key))
}

// Null discards everything; used when no cache directory is configured.
type Null struct{}

func (Null) Get(string) ([]byte, bool) { return nil, false }
func (Null) Set(string, []byte) error  { return nil }
func (Null) Evict(string)              {}
