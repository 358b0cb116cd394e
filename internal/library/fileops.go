package library

import (
	"fmt"
	"path"
	"time"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/fsutil"
	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// imageFile is one on-disk file of a logical photo during a mutation.
type imageFile struct {
	oldRel  string
	newRel  string
	variant bool // participates in the catalog; sidecars do not
}

// planFiles lists the files to move or copy for an image: the present
// variants plus the sidecar when it exists, with destinations under
// destDir using destBase.
func (l *Library) planFiles(img *photo.Image, destDir, destBase string) []imageFile {
	var files []imageFile

	addVariant := func(rel string) {
		if rel == "" {
			return
		}
		ext := path.Ext(rel)
		files = append(files, imageFile{
			oldRel:  rel,
			newRel:  path.Join(destDir, destBase+ext),
			variant: true,
		})
	}
	addVariant(img.JPEG().Path)
	addVariant(img.RAW().Path)

	if exists, _ := l.store.Stat(img.SidecarPath()); exists {
		files = append(files, imageFile{
			oldRel: img.SidecarPath(),
			newRel: path.Join(destDir, filetype.SidecarName(destBase)),
		})
	}
	return files
}

// freeBase returns a base name under destDir that collides with none of
// the image's file destinations: the original base if free, otherwise
// base-1, base-2, and so on. One suffix covers all variants so the
// group stays together.
func (l *Library) freeBase(img *photo.Image, destDir string) string {
	exts := make([]string, 0, 3)
	if p := img.JPEG().Path; p != "" {
		exts = append(exts, path.Ext(p))
	}
	if p := img.RAW().Path; p != "" {
		exts = append(exts, path.Ext(p))
	}
	exts = append(exts, ".json")

	base := img.BaseName()
	for n := 0; ; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
		free := true
		for _, ext := range exts {
			if exists, _ := l.store.Stat(path.Join(destDir, candidate+ext)); exists {
				free = false
				break
			}
		}
		if free {
			return candidate
		}
	}
}

// CopyImage copies an image's files into another library directory.
// The copy is all-or-nothing: on failure, files already copied are
// removed. Copied variants get fresh catalog ids; name collisions get
// a numeric suffix.
func (l *Library) CopyImage(img *photo.Image, destDir string) error {
	start := time.Now()
	defer func() {
		metrics.FileOpDuration.WithLabelValues("copy").Observe(time.Since(start).Seconds())
	}()

	destBase := l.freeBase(img, destDir)
	files := l.planFiles(img, destDir, destBase)
	retry := fsutil.DefaultRetryConfig()

	var copied []string
	for _, f := range files {
		srcAbs, err := l.store.Abs(f.oldRel)
		if err == nil {
			var dstAbs string
			dstAbs, err = l.store.Abs(f.newRel)
			if err == nil {
				err = fsutil.CopyFileAtomic(srcAbs, dstAbs, retry)
			}
		}
		if err != nil {
			for _, rel := range copied {
				if rmErr := l.store.Remove(rel); rmErr != nil {
					logging.Warn("rollback: failed to remove %s: %v", rel, rmErr)
				}
			}
			metrics.FileOpsTotal.WithLabelValues("copy", "error").Inc()
			return fmt.Errorf("failed to copy %s: %w", f.oldRel, err)
		}
		copied = append(copied, f.newRel)
	}

	// A copy is a new set of files; each gets its own id.
	for _, f := range files {
		if f.variant {
			l.catalog.IDFor(f.newRel)
		}
	}

	metrics.FileOpsTotal.WithLabelValues("copy", "success").Inc()
	l.notifyChanged(destDir)
	return nil
}

// MoveImage moves an image's files into another library directory,
// preserving catalog ids. On failure, files already moved are moved
// back. The image's variant paths are updated in place.
func (l *Library) MoveImage(img *photo.Image, destDir string) error {
	start := time.Now()
	defer func() {
		metrics.FileOpDuration.WithLabelValues("move").Observe(time.Since(start).Seconds())
	}()

	oldDir := img.Directory()
	destBase := l.freeBase(img, destDir)
	files := l.planFiles(img, destDir, destBase)
	retry := fsutil.DefaultRetryConfig()

	moved := make([]imageFile, 0, len(files))
	for _, f := range files {
		srcAbs, err := l.store.Abs(f.oldRel)
		if err == nil {
			var dstAbs string
			dstAbs, err = l.store.Abs(f.newRel)
			if err == nil {
				err = fsutil.MoveFile(srcAbs, dstAbs, retry)
			}
		}
		if err != nil {
			for _, m := range moved {
				srcAbs, _ := l.store.Abs(m.newRel)
				dstAbs, _ := l.store.Abs(m.oldRel)
				if rbErr := fsutil.MoveFile(srcAbs, dstAbs, retry); rbErr != nil {
					logging.Error("rollback: failed to restore %s: %v", m.oldRel, rbErr)
				}
			}
			metrics.FileOpsTotal.WithLabelValues("move", "error").Inc()
			return fmt.Errorf("failed to move %s: %w", f.oldRel, err)
		}
		moved = append(moved, f)
	}

	// Ids follow the files.
	var jpegRel, rawRel string
	for _, f := range files {
		if !f.variant {
			continue
		}
		l.catalog.Rename(f.oldRel, f.newRel)
		if id, ok := l.idIfKnown(f.newRel); ok && l.propDB != nil {
			l.propDB.UpdatePath(id, f.newRel)
		}
		switch filetype.KindOf(f.newRel) {
		case filetype.KindJPEG:
			jpegRel = f.newRel
		case filetype.KindRAW:
			rawRel = f.newRel
		}
	}
	img.SetVariantPaths(destDir, destBase, jpegRel, rawRel)

	metrics.FileOpsTotal.WithLabelValues("move", "success").Inc()
	l.notifyChanged(oldDir)
	l.notifyChanged(destDir)
	return nil
}

// RenameDirectory renames a library directory on disk and cascades the
// rename through the catalog, preserving every contained id.
func (l *Library) RenameDirectory(oldDir, newDir string) error {
	start := time.Now()
	defer func() {
		metrics.FileOpDuration.WithLabelValues("rename_dir").Observe(time.Since(start).Seconds())
	}()

	if exists, _ := l.store.Stat(newDir); exists {
		metrics.FileOpsTotal.WithLabelValues("rename_dir", "error").Inc()
		return fmt.Errorf("%s: %w", newDir, ErrCollision)
	}
	if err := l.store.Rename(oldDir, newDir); err != nil {
		metrics.FileOpsTotal.WithLabelValues("rename_dir", "error").Inc()
		return err
	}

	l.catalog.RenameDir(oldDir, newDir)
	metrics.FileOpsTotal.WithLabelValues("rename_dir", "success").Inc()
	l.notifyChanged(path.Dir(oldDir))
	l.notifyChanged(newDir)
	return nil
}

// DidRenameDirectory records a directory rename performed by another
// program: the catalog is cascaded but no files are touched.
func (l *Library) DidRenameDirectory(oldDir, newDir string) {
	l.catalog.RenameDir(oldDir, newDir)
	l.notifyChanged(newDir)
}

// DidRenameFile records a file rename performed by another program.
func (l *Library) DidRenameFile(oldRel, newRel string) {
	l.catalog.Rename(oldRel, newRel)
	if id, ok := l.idIfKnown(newRel); ok && l.propDB != nil {
		l.propDB.UpdatePath(id, newRel)
	}
	dir := path.Dir(newRel)
	if dir == "." {
		dir = ""
	}
	l.notifyChanged(dir)
}

// DidRemoveFile records a file removal performed by another program.
// The freed id is never reused.
func (l *Library) DidRemoveFile(rel string) {
	if id, ok := l.idIfKnown(rel); ok && l.propDB != nil {
		l.propDB.Invalidate(id)
	}
	l.catalog.Remove(rel)
	metrics.FileOpsTotal.WithLabelValues("remove", "success").Inc()

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	l.notifyChanged(dir)
}
