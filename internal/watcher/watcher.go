package watcher

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
)

// renameWindow is how long a rename event waits for its matching create
// event before it is treated as a removal.
const renameWindow = 500 * time.Millisecond

// Library is the subset of library behavior the watcher drives.
type Library interface {
	Path() string
	DidRenameFile(oldRel, newRel string)
	DidRenameDirectory(oldDir, newDir string)
	DidRemoveFile(rel string)
	DirectoryChanged(dir string)
}

type pendingRename struct {
	rel   string
	timer *time.Timer
}

// Watcher observes one library root for external filesystem changes.
type Watcher struct {
	lib    Library
	fsw    *fsnotify.Watcher
	window time.Duration

	mu      sync.Mutex
	pending []*pendingRename // oldest first

	wg sync.WaitGroup
}

// New starts watching the library root and all its non-hidden
// subdirectories. Directories created later are added automatically.
func New(lib Library) (*Watcher, error) {
	return newWatcher(lib, renameWindow)
}

func newWatcher(lib Library, window time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		lib:    lib,
		fsw:    fsw,
		window: window,
	}

	watchCount := w.addDirectories(lib.Path())
	logging.Debug("Watcher started for %s, watching %d directories", lib.Path(), watchCount)

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// Close stops the watcher and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()
	return err
}

// addDirectories walks root and registers every non-hidden directory.
func (w *Watcher) addDirectories(root string) int {
	watchCount := 0
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", p, addErr)
		} else {
			watchCount++
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk library root for watcher: %v", err)
	}
	return watchCount
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Skip hidden files and directories.
	if strings.Contains(event.Name, "/.") {
		return
	}

	rel, ok := w.relPath(event.Name)
	if !ok {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name, rel)
	case event.Op&fsnotify.Rename != 0:
		w.handleRename(rel)
	case event.Op&fsnotify.Remove != 0:
		w.lib.DidRemoveFile(rel)
		w.lib.DirectoryChanged(dirOf(rel))
	case event.Op&fsnotify.Write != 0:
		w.lib.DirectoryChanged(dirOf(rel))
	}
}

// handleCreate resolves a create event: either the second half of a
// rename pair, a brand-new directory to watch, or a new file.
func (w *Watcher) handleCreate(abs, rel string) {
	old, renamed := w.takePending()

	info, err := os.Stat(abs)
	if err != nil {
		return
	}

	if info.IsDir() {
		if addErr := w.fsw.Add(abs); addErr != nil {
			logging.Warn("failed to add new directory to watcher %s: %v", abs, addErr)
		} else {
			logging.Debug("Added new directory to watcher: %s", abs)
		}
		if renamed {
			w.lib.DidRenameDirectory(old, rel)
		}
		w.lib.DirectoryChanged(dirOf(rel))
		return
	}

	if renamed {
		w.lib.DidRenameFile(old, rel)
	}
	w.lib.DirectoryChanged(dirOf(rel))
}

// handleRename records the old path and waits for the matching create
// event. inotify delivers the two halves of a rename back to back, so
// the oldest pending entry is the match. A rename that leaves the
// library root never produces a create and expires into a removal.
func (w *Watcher) handleRename(rel string) {
	w.mu.Lock()
	p := &pendingRename{rel: rel}
	p.timer = time.AfterFunc(w.window, func() { w.expirePending(p) })
	w.pending = append(w.pending, p)
	w.mu.Unlock()
}

// takePending claims the oldest pending rename, if any.
func (w *Watcher) takePending() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return "", false
	}
	p := w.pending[0]
	w.pending = w.pending[1:]
	p.timer.Stop()
	return p.rel, true
}

func (w *Watcher) expirePending(p *pendingRename) {
	w.mu.Lock()
	found := false
	for i, q := range w.pending {
		if q == p {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			found = true
			break
		}
	}
	w.mu.Unlock()
	if !found {
		return
	}

	w.lib.DidRemoveFile(p.rel)
	w.lib.DirectoryChanged(dirOf(p.rel))
}

// relPath converts an absolute event path into a library-relative
// slash path.
func (w *Watcher) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(w.lib.Path(), abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func dirOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
