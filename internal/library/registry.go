package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/photo"
)

// ErrDuplicateLibrary is returned when a non-transient library is added
// for a path that already has one.
var ErrDuplicateLibrary = errors.New("library already registered for path")

// Registry tracks the open libraries and persists the non-transient
// ones to a JSON file. It owns the shared prefetch pool.
type Registry struct {
	mu        sync.Mutex
	path      string // registry JSON file
	cacheRoot string
	pool      *photo.Prefetcher
	nextID    uint32
	byID      map[uint32]*Library
	byPath    map[string]uint32
}

type registryEntry struct {
	ID   uint32 `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"`
}

type registryFile struct {
	NextID    uint32          `json:"next_id"`
	Libraries []registryEntry `json:"libraries"`
}

// NewRegistry loads the registry persisted at path, reopening each
// listed library. Entries whose root directory no longer exists are
// pruned silently. Decoding runs on the given decoder with the given
// worker count.
func NewRegistry(path, cacheRoot string, decoder photo.Decoder, workerCount int) (*Registry, error) {
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root %s: %w", cacheRoot, err)
	}

	r := &Registry{
		path:      path,
		cacheRoot: cacheRoot,
		pool:      photo.NewPrefetcher(decoder, workerCount),
		nextID:    1,
		byID:      make(map[uint32]*Library),
		byPath:    make(map[string]uint32),
	}
	r.load()
	return r, nil
}

func (r *Registry) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Registry %s unreadable, starting empty: %v", r.path, err)
		}
		return
	}

	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		logging.Warn("Registry %s corrupt, starting empty: %v", r.path, err)
		return
	}

	r.nextID = f.NextID
	for _, e := range f.Libraries {
		if e.ID >= r.nextID {
			r.nextID = e.ID + 1
		}
		lib, err := openLibrary(e.ID, e.Name, e.Path, r.libraryCacheDir(e.ID), false, r.pool)
		if err != nil {
			// Roots disappear when drives unmount; drop the entry
			// without surfacing an error.
			logging.Warn("Pruning library %q: %v", e.Name, err)
			continue
		}
		lib.registry = r
		r.byID[e.ID] = lib
		r.byPath[e.Path] = e.ID
	}
	if r.nextID == 0 {
		r.nextID = 1
	}
}

func (r *Registry) libraryCacheDir(id uint32) string {
	return filepath.Join(r.cacheRoot, fmt.Sprintf("%08x", id))
}

// All returns the open libraries ordered by id.
func (r *Registry) All() []*Library {
	r.mu.Lock()
	defer r.mu.Unlock()

	libs := make([]*Library, 0, len(r.byID))
	for _, lib := range r.byID {
		libs = append(libs, lib)
	}
	sort.Slice(libs, func(i, j int) bool { return libs[i].id < libs[j].id })
	return libs
}

// ByID returns the library with the given id.
func (r *Registry) ByID(id uint32) (*Library, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lib, ok := r.byID[id]
	return lib, ok
}

// ByPath returns the library rooted at the given absolute path,
// creating and registering one when create is set.
func (r *Registry) ByPath(path string, create bool) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[abs]; ok {
		return r.byID[id], nil
	}
	if !create {
		return nil, fmt.Errorf("no library at %s: %w", abs, ErrNotFound)
	}
	return r.addLocked(filepath.Base(abs), abs, false)
}

// Add opens and registers a library at the given absolute path. A
// non-transient library for an already-registered path is rejected.
func (r *Registry) Add(name, path string, transient bool) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPath[abs]; ok && !transient {
		return nil, fmt.Errorf("%s: %w", abs, ErrDuplicateLibrary)
	}
	return r.addLocked(name, abs, transient)
}

func (r *Registry) addLocked(name, abs string, transient bool) (*Library, error) {
	id := r.nextID
	r.nextID++

	lib, err := openLibrary(id, name, abs, r.libraryCacheDir(id), transient, r.pool)
	if err != nil {
		return nil, err
	}
	lib.registry = r
	r.byID[id] = lib
	if !transient {
		r.byPath[abs] = id
	}
	return lib, nil
}

// detach removes a library from the registry without persisting.
func (r *Registry) detach(l *Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, l.id)
	if id, ok := r.byPath[l.path]; ok && id == l.id {
		delete(r.byPath, l.path)
	}
}

// Save persists the non-transient libraries. Ordering is by id so the
// file is deterministic.
func (r *Registry) Save() error {
	r.mu.Lock()
	f := registryFile{NextID: r.nextID}
	for _, lib := range r.byID {
		if lib.transient {
			continue
		}
		f.Libraries = append(f.Libraries, registryEntry{ID: lib.id, Path: lib.path, Name: lib.Name()})
	}
	r.mu.Unlock()

	sort.Slice(f.Libraries, func(i, j int) bool { return f.Libraries[i].ID < f.Libraries[j].ID })

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Close waits for imports, persists state, and shuts the pool down.
func (r *Registry) Close() error {
	for _, lib := range r.All() {
		lib.WaitForImportsToComplete()
		if err := lib.catalog.Persist(); err != nil {
			logging.Error("failed to persist catalog for %s: %v", lib.Name(), err)
		}
		lib.close()
	}

	err := r.Save()
	r.pool.Close()
	return err
}

// Pool returns the shared prefetch pool.
func (r *Registry) Pool() *photo.Prefetcher { return r.pool }
