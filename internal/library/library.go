package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photo-catalog/internal/catalog"
	"photo-catalog/internal/database"
	"photo-catalog/internal/exifprops"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
	"photo-catalog/internal/store"
)

// Sentinel errors for library operations.
var (
	ErrNotFound  = errors.New("image not found")
	ErrCollision = errors.New("destination already exists")
)

const catalogFileName = "catalog.json"
const propsDBFileName = "props.db"

// Library is one open photo library: a root directory, its stable-id
// catalog, and its caches.
type Library struct {
	id        uint32
	path      string // absolute root, immutable
	cachePath string // absolute cache directory
	transient bool

	store   *store.Store
	catalog *catalog.Catalog
	implSrc photo.ImplicitSource
	propDB  *database.Database // nil when the cache could not be opened
	pool    *photo.Prefetcher

	mu   sync.Mutex
	name string

	imports sync.WaitGroup
	jobsMu  sync.Mutex
	jobs    map[string]*ImportJob

	changed chan string

	registry *Registry // nil for detached libraries
}

// openLibrary opens a library rooted at path. The cache directory is
// created; a failure to open the property cache degrades to direct
// EXIF extraction rather than failing the open.
func openLibrary(id uint32, name, path, cachePath string, transient bool, pool *photo.Prefetcher) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("library root %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", path)
	}

	if err := os.MkdirAll(cachePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cachePath, err)
	}

	l := &Library{
		id:        id,
		name:      name,
		path:      path,
		cachePath: cachePath,
		transient: transient,
		store:     store.New(path),
		catalog:   catalog.Open(filepath.Join(cachePath, catalogFileName)),
		pool:      pool,
		jobs:      make(map[string]*ImportJob),
		changed:   make(chan string, 16),
	}

	var cache exifprops.Cache
	db, err := database.New(context.Background(), filepath.Join(cachePath, propsDBFileName))
	if err != nil {
		logging.Warn("Property cache unavailable for library %s: %v", name, err)
	} else {
		l.propDB = db
		cache = db
	}
	l.implSrc = exifprops.NewSource(path, cache)

	metrics.LibrariesOpen.Inc()
	metrics.CatalogEntries.WithLabelValues(name).Set(float64(l.catalog.Len()))
	logging.Info("Library %q open at %s (%d catalogued files)", name, path, l.catalog.Len())
	return l, nil
}

// ID returns the library's registry id.
func (l *Library) ID() uint32 { return l.id }

// Path returns the absolute library root.
func (l *Library) Path() string { return l.path }

// CachePath returns the absolute cache directory.
func (l *Library) CachePath() string { return l.cachePath }

// Transient reports whether the library is excluded from persistence.
func (l *Library) Transient() bool { return l.transient }

// Name returns the display name.
func (l *Library) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// SetName changes the display name. The registry persists it on the
// next Synchronize.
func (l *Library) SetName(name string) {
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
}

// FileID returns the stable id for a library-relative path, allocating
// one if the path is new.
func (l *Library) FileID(rel string) uint32 {
	return l.catalog.IDFor(rel)
}

// PathOfFileID resolves a stable id back to its current relative path.
func (l *Library) PathOfFileID(id uint32) (string, bool) {
	return l.catalog.PathFor(id)
}

// ReadFile implements photo.Backing.
func (l *Library) ReadFile(rel string) ([]byte, error) {
	return l.store.ReadFile(rel)
}

// WriteFile implements photo.Backing.
func (l *Library) WriteFile(rel string, data []byte) error {
	return l.store.WriteFile(rel, data)
}

// AbsPath implements photo.Backing. An input the store rejects, such
// as a traversal outside the root, resolves to the root itself so the
// result never escapes the library.
func (l *Library) AbsPath(rel string) string {
	abs, err := l.store.Abs(rel)
	if err != nil {
		logging.Warn("invalid library-relative path %q: %v", rel, err)
		return l.path
	}
	return abs
}

// CacheFilePath implements photo.Backing: cache artifacts are named by
// stable file id so they survive renames.
func (l *Library) CacheFilePath(fileID uint32, base string) string {
	return filepath.Join(l.cachePath, fmt.Sprintf("%08x_%s", fileID, base))
}

// ImplicitProperties implements photo.ImplicitSource.
func (l *Library) ImplicitProperties(rel string, fileID uint32) map[photo.Key]photo.Value {
	return l.implSrc.ImplicitProperties(rel, fileID)
}

// Subdirectories lists the child directories of a library-relative
// directory.
func (l *Library) Subdirectories(dir string) ([]string, error) {
	entries, err := l.store.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// Changed returns the directory-changed notification channel. Each
// element is the library-relative directory whose contents changed.
func (l *Library) Changed() <-chan string { return l.changed }

// DirectoryChanged signals that a directory's contents changed, for
// example because the filesystem watcher saw an external write.
func (l *Library) DirectoryChanged(dir string) {
	l.notifyChanged(dir)
}

func (l *Library) notifyChanged(dir string) {
	select {
	case l.changed <- dir:
	default:
		// Slow consumer; the next scan picks the change up anyway.
	}
}

// Synchronize flushes pending catalog state to disk and asks the
// registry to persist library metadata.
func (l *Library) Synchronize() error {
	if err := l.catalog.Persist(); err != nil {
		return err
	}
	metrics.CatalogEntries.WithLabelValues(l.Name()).Set(float64(l.catalog.Len()))
	if l.registry != nil && !l.transient {
		return l.registry.Save()
	}
	return nil
}

// EmptyCaches deletes the proxy cache files and the cached implicit
// properties. The catalog file is kept: ids must stay stable.
func (l *Library) EmptyCaches() error {
	entries, err := os.ReadDir(l.cachePath)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == catalogFileName || strings.HasPrefix(name, propsDBFileName) {
			continue
		}
		if err := os.Remove(filepath.Join(l.cachePath, name)); err != nil {
			logging.Warn("failed to remove cached proxy %s: %v", name, err)
		}
	}

	if l.propDB != nil {
		if err := l.propDB.Empty(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate detaches the library: imports are joined, caches closed,
// and the registry entry dropped. The library must not be used after.
func (l *Library) Invalidate() {
	l.WaitForImportsToComplete()

	if l.registry != nil {
		l.registry.detach(l)
		l.registry = nil
	}
	l.close()
}

func (l *Library) close() {
	if l.propDB != nil {
		if err := l.propDB.Close(); err != nil {
			logging.Warn("failed to close property cache for %s: %v", l.Name(), err)
		}
		l.propDB = nil
	}
	metrics.LibrariesOpen.Dec()
}

// idIfKnown returns the catalog id for rel without allocating.
func (l *Library) idIfKnown(rel string) (uint32, bool) {
	if !l.catalog.Contains(rel) {
		return 0, false
	}
	return l.catalog.IDFor(rel), true
}
