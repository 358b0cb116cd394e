package library

import (
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// imageGroup collects the files of one logical photo during a scan.
type imageGroup struct {
	dir  string
	base string
	jpeg string
	raw  string
}

// Images scans a library-relative directory and yields one Image per
// group of files sharing a base name. The scan is a single pass:
// sidecars and variants are grouped as they are encountered, and
// catalog ids are assigned on the fly. Yield order is deterministic
// (directory, then base name).
func (l *Library) Images(dir string, recursive bool) iter.Seq[*photo.Image] {
	return func(yield func(*photo.Image) bool) {
		start := time.Now()
		metrics.ScanRunsTotal.Inc()

		groups := l.collectGroups(dir, recursive)

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			g := groups[k]
			if g.jpeg == "" && g.raw == "" {
				continue
			}
			metrics.ScanImagesYielded.Inc()
			if !yield(l.newImage(*g)) {
				break
			}
		}

		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}
}

func (l *Library) collectGroups(dir string, recursive bool) map[string]*imageGroup {
	groups := make(map[string]*imageGroup)

	add := func(fileDir, name string) {
		kind := filetype.KindOf(name)
		if kind != filetype.KindJPEG && kind != filetype.KindRAW {
			return
		}
		base := filetype.BaseName(name)
		rel := name
		if fileDir != "" {
			rel = path.Join(fileDir, name)
		}

		key := fileDir + "\x00" + base
		g, ok := groups[key]
		if !ok {
			g = &imageGroup{dir: fileDir, base: base}
			groups[key] = g
		}
		switch kind {
		case filetype.KindJPEG:
			// Two displayable files with one base name is unusual;
			// keep the lexicographically first so scans are stable.
			if g.jpeg == "" || rel < g.jpeg {
				g.jpeg = rel
			}
		case filetype.KindRAW:
			if g.raw == "" || rel < g.raw {
				g.raw = rel
			}
		}
	}

	if !recursive {
		entries, err := l.store.ReadDir(dir)
		if err != nil {
			logging.Warn("Scan of %s/%s failed: %v", l.path, dir, err)
			return groups
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			add(dir, e.Name())
		}
		return groups
	}

	root, err := l.store.Abs(dir)
	if err != nil {
		logging.Warn("Scan of %s rejected: %v", dir, err)
		return groups
	}

	// fastwalk runs the callback concurrently.
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, root, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			if full != root && strings.HasPrefix(name, ".") {
				return fastwalk.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel := strings.TrimPrefix(full, root)
		rel = strings.TrimPrefix(rel, "/")
		fileDir := path.Dir(strings.ReplaceAll(rel, "\\", "/"))
		if fileDir == "." {
			fileDir = ""
		}
		if dir != "" {
			fileDir = path.Join(dir, fileDir)
		}

		mu.Lock()
		add(fileDir, name)
		mu.Unlock()
		return nil
	})
	if err != nil {
		logging.Warn("Recursive scan of %s failed: %v", root, err)
	}
	return groups
}

func (l *Library) newImage(g imageGroup) *photo.Image {
	var jpeg, raw photo.Variant
	if g.jpeg != "" {
		jpeg = photo.Variant{Kind: filetype.KindJPEG, Path: g.jpeg, ID: l.catalog.IDFor(g.jpeg)}
	}
	if g.raw != "" {
		raw = photo.Variant{Kind: filetype.KindRAW, Path: g.raw, ID: l.catalog.IDFor(g.raw)}
	}
	return photo.NewImage(l, l, l.pool, g.dir, g.base, jpeg, raw)
}

// ImageByFileID resolves a stable id to the Image owning that file.
func (l *Library) ImageByFileID(id uint32) (*photo.Image, error) {
	rel, ok := l.catalog.PathFor(id)
	if !ok {
		return nil, ErrNotFound
	}

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	base := filetype.BaseName(rel)

	for img := range l.Images(dir, false) {
		if img.BaseName() == base {
			return img, nil
		}
	}
	return nil, ErrNotFound
}
