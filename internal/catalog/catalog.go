package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
)

// Catalog maps library-relative file paths to stable uint32 ids and
// back. The zero id is never allocated.
type Catalog struct {
	mu     sync.Mutex
	path   string // absolute path of the persisted catalog file
	nextID uint32
	byPath map[string]uint32
	byID   map[uint32]string
	dirty  bool
}

// fileFormat is the persisted representation. Map keys serialize in
// sorted order, so repeated persists of the same state are
// byte-identical.
type fileFormat struct {
	NextID uint32            `json:"next_id"`
	Files  map[string]uint32 `json:"files"`
}

// Open loads the catalog persisted at path. A missing or unreadable
// file is not an error: the catalog starts empty and every path is
// treated as new.
func Open(path string) *Catalog {
	c := &Catalog{
		path:   path,
		nextID: 1,
		byPath: make(map[string]uint32),
		byID:   make(map[uint32]string),
	}
	c.load()
	return c
}

func (c *Catalog) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Catalog %s unreadable, starting empty: %v", c.path, err)
		}
		return
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		logging.Warn("Catalog %s corrupt, starting empty: %v", c.path, err)
		return
	}

	c.byPath = f.Files
	if c.byPath == nil {
		c.byPath = make(map[string]uint32)
	}
	c.nextID = f.NextID
	for path, id := range c.byPath {
		c.byID[id] = path
		if id >= c.nextID {
			c.nextID = id + 1
		}
	}
	if c.nextID == 0 {
		c.nextID = 1
	}

	logging.Debug("Catalog loaded from %s: %d entries, next id %d", c.path, len(c.byPath), c.nextID)
}

// IDFor returns the stable id for a relative path, allocating the next
// unused id if the path has not been seen before.
func (c *Catalog) IDFor(rel string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byPath[rel]; ok {
		return id
	}

	id := c.nextID
	c.nextID++
	c.byPath[rel] = id
	c.byID[id] = rel
	c.dirty = true
	metrics.CatalogIDsAllocated.Inc()
	return id
}

// PathFor returns the current relative path for an id. The second
// return value is false if the id is unknown or has been evicted.
func (c *Catalog) PathFor(id uint32) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.byID[id]
	return path, ok
}

// Contains reports whether the relative path has an id without
// allocating one.
func (c *Catalog) Contains(rel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byPath[rel]
	return ok
}

// Rename moves the mapping entry for old to new, preserving its id. If
// old has no entry the call is a no-op. Any stale entry at new is
// evicted first; its id is not reused.
func (c *Catalog) Rename(old, new string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renameLocked(old, new)
}

func (c *Catalog) renameLocked(old, new string) {
	id, ok := c.byPath[old]
	if !ok {
		return
	}
	if stale, ok := c.byPath[new]; ok {
		delete(c.byID, stale)
	}
	delete(c.byPath, old)
	c.byPath[new] = id
	c.byID[id] = new
	c.dirty = true
}

// RenameDir rewrites every entry under oldDir to live under newDir,
// preserving ids. Directory paths use forward slashes and no trailing
// separator.
func (c *Catalog) RenameDir(oldDir, newDir string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := oldDir + "/"
	var moved []string
	for path := range c.byPath {
		if strings.HasPrefix(path, prefix) {
			moved = append(moved, path)
		}
	}
	for _, path := range moved {
		c.renameLocked(path, newDir+"/"+path[len(prefix):])
	}
}

// Remove deletes the mapping entry for a relative path. The freed id is
// never reused.
func (c *Catalog) Remove(rel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byPath[rel]
	if !ok {
		return
	}
	delete(c.byPath, rel)
	delete(c.byID, id)
	c.dirty = true
}

// Len returns the number of current entries.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPath)
}

// PruneMissing evicts entries whose file no longer exists, as reported
// by the exists callback. Ids of pruned entries are not reused.
func (c *Catalog) PruneMissing(exists func(rel string) bool) int {
	c.mu.Lock()
	var stale []string
	for path := range c.byPath {
		if !exists(path) {
			stale = append(stale, path)
		}
	}
	for _, path := range stale {
		id := c.byPath[path]
		delete(c.byPath, path)
		delete(c.byID, id)
	}
	if len(stale) > 0 {
		c.dirty = true
	}
	c.mu.Unlock()

	if len(stale) > 0 {
		logging.Debug("Catalog pruned %d stale entries", len(stale))
	}
	return len(stale)
}

// Persist writes the mapping to disk if it changed since the last
// persist. It is idempotent: repeated calls with no intervening
// mutation leave the file byte-identical and do not rewrite it.
func (c *Catalog) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		if _, err := os.Stat(c.path); err == nil {
			return nil
		}
	}

	data, err := json.MarshalIndent(fileFormat{NextID: c.nextID, Files: c.byPath}, "", "  ")
	if err != nil {
		metrics.CatalogPersistsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		metrics.CatalogPersistsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.CatalogPersistsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		metrics.CatalogPersistsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	c.dirty = false
	metrics.CatalogPersistsTotal.WithLabelValues("success").Inc()
	return nil
}
