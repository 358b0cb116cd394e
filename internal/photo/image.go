package photo

import (
	"encoding/json"
	"fmt"
	"image"
	"path"
	"sync"
	"time"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/logging"
)

// Backing is the narrow slice of the owning library an Image needs:
// sidecar I/O, absolute path resolution, and cache file naming by
// stable id.
type Backing interface {
	ReadFile(rel string) ([]byte, error)
	WriteFile(rel string, data []byte) error
	AbsPath(rel string) string
	CacheFilePath(fileID uint32, base string) string
}

// ImplicitSource supplies the implicit (file-derived) properties for a
// variant file. Implementations typically stat the file and parse EXIF
// headers, possibly through a cache.
type ImplicitSource interface {
	ImplicitProperties(rel string, fileID uint32) map[Key]Value
}

// Variant describes one file of a logical photo.
type Variant struct {
	Kind filetype.Kind
	Path string // library-relative; empty when the variant is absent
	ID   uint32 // stable catalog id; 0 when absent
}

// Present reports whether the variant file exists.
func (v Variant) Present() bool { return v.Path != "" }

// Image is one logical photo in a library.
type Image struct {
	backing  Backing
	implSrc  ImplicitSource
	pool     *Prefetcher
	dir      string // library-relative directory, "" for the root
	base     string // photo base name, e.g. "IMG_0001"
	sidecar  string // library-relative sidecar path
	jpeg     Variant
	raw      Variant

	mu       sync.Mutex
	usesRAW  bool
	explicit map[Key]Value
	implicit map[Key]Value // nil until first populated
	pending  bool
	writeGen uint64
	date     *time.Time // lazily cached display date

	changed func(*Image, Key)

	hosts    hostRegistry
	prefetch prefetchState
}

// NewImage creates an Image for one group of files discovered by a
// library scan. The sidecar is read if it exists; a missing or corrupt
// sidecar simply yields no explicit properties.
func NewImage(backing Backing, implSrc ImplicitSource, pool *Prefetcher, dir, base string, jpeg, raw Variant) *Image {
	sidecar := filetype.SidecarName(base)
	if dir != "" {
		sidecar = path.Join(dir, sidecar)
	}

	img := &Image{
		backing:  backing,
		implSrc:  implSrc,
		pool:     pool,
		dir:      dir,
		base:     base,
		sidecar:  sidecar,
		jpeg:     jpeg,
		raw:      raw,
		explicit: make(map[Key]Value),
	}

	if data, err := backing.ReadFile(sidecar); err == nil {
		if err := json.Unmarshal(data, &img.explicit); err != nil {
			logging.Warn("Sidecar %s corrupt, ignoring: %v", sidecar, err)
			img.explicit = make(map[Key]Value)
		}
	}

	if img.explicit[KeyActiveType].AsString() == "raw" && raw.Present() {
		img.usesRAW = true
	}

	return img
}

// Directory returns the image's library-relative directory.
func (i *Image) Directory() string { return i.dir }

// BaseName returns the photo base name shared by the image's files.
func (i *Image) BaseName() string { return i.base }

// SidecarPath returns the library-relative path of the JSON sidecar.
func (i *Image) SidecarPath() string { return i.sidecar }

// JPEG returns the JPEG variant.
func (i *Image) JPEG() Variant {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.jpeg
}

// RAW returns the RAW variant.
func (i *Image) RAW() Variant {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.raw
}

// UsesRAW reports whether the RAW variant is the active one.
func (i *Image) UsesRAW() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.usesRAW
}

// SupportsUsesRAW reports whether the active-type selection may be set
// to the given state: RAW requires a RAW variant, JPEG requires a JPEG
// variant.
func (i *Image) SupportsUsesRAW(flag bool) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if flag {
		return i.raw.Present()
	}
	return i.jpeg.Present()
}

// SetUsesRAW switches the active variant. The switch is rejected (and
// false returned) when the requested variant is absent.
func (i *Image) SetUsesRAW(flag bool) bool {
	if !i.SupportsUsesRAW(flag) {
		return false
	}

	i.mu.Lock()
	if i.usesRAW == flag {
		i.mu.Unlock()
		return true
	}
	i.usesRAW = flag
	if flag {
		i.explicit[KeyActiveType] = String("raw")
	} else {
		i.explicit[KeyActiveType] = String("jpeg")
	}
	i.pending = true
	i.writeGen++
	i.implicit = nil // derived from the now-active file
	i.date = nil
	i.mu.Unlock()

	i.notify(KeyActiveType)
	return true
}

// activeLocked returns the active variant. Callers must hold i.mu.
func (i *Image) activeLocked() Variant {
	if i.usesRAW && i.raw.Present() {
		return i.raw
	}
	return i.jpeg
}

// ImagePath returns the library-relative path of the active variant.
func (i *Image) ImagePath() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activeLocked().Path
}

// ImageAbsPath returns the absolute path of the active variant.
func (i *Image) ImageAbsPath() string {
	return i.backing.AbsPath(i.ImagePath())
}

// ImageID returns the stable id of the active variant.
func (i *Image) ImageID() uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activeLocked().ID
}

// SetVariantPaths updates the variant locations after the library moved
// or renamed the underlying files. The base may differ from the old one
// when the move had to suffix it; the sidecar path follows the base.
// Ids are preserved by the catalog.
func (i *Image) SetVariantPaths(dir, base, jpegPath, rawPath string) {
	i.mu.Lock()
	i.dir = dir
	i.base = base
	sidecar := filetype.SidecarName(base)
	if dir != "" {
		sidecar = path.Join(dir, sidecar)
	}
	i.sidecar = sidecar
	i.jpeg.Path = jpegPath
	i.raw.Path = rawPath
	i.implicit = nil
	i.mu.Unlock()
}

// Property returns the value for a key, consulting the explicit store
// first and falling back to the implicit store. The second return value
// is false when neither store has the key.
func (i *Image) Property(key Key) (Value, bool) {
	switch key {
	case KeyActiveType:
		if i.UsesRAW() {
			return String("raw"), true
		}
		return String("jpeg"), true
	case KeyFileTypes:
		var types []string
		i.mu.Lock()
		if i.jpeg.Present() {
			types = append(types, "jpeg")
		}
		if i.raw.Present() {
			types = append(types, "raw")
		}
		i.mu.Unlock()
		return List(types...), true
	}

	i.mu.Lock()
	if v, ok := i.explicit[key]; ok {
		i.mu.Unlock()
		return v, true
	}
	i.mu.Unlock()

	impl := i.implicitProperties()
	v, ok := impl[key]
	return v, ok
}

// implicitProperties returns the implicit store, populating it on first
// use from the implicit source for the active variant.
func (i *Image) implicitProperties() map[Key]Value {
	i.mu.Lock()
	if i.implicit != nil {
		m := i.implicit
		i.mu.Unlock()
		return m
	}
	active := i.activeLocked()
	i.mu.Unlock()

	var m map[Key]Value
	if active.Present() && i.implSrc != nil {
		m = i.implSrc.ImplicitProperties(active.Path, active.ID)
	}
	if m == nil {
		m = map[Key]Value{}
	}

	i.mu.Lock()
	if i.implicit == nil {
		i.implicit = m
	}
	m = i.implicit
	i.mu.Unlock()
	return m
}

// SetProperty writes a value to the explicit store, marks the image
// pending-write, and fires the change signal. Ratings outside [-1, 5]
// are clamped.
func (i *Image) SetProperty(key Key, value Value) {
	if key == KeyRating {
		if n, ok := value.AsNumber(); ok {
			if n < -1 {
				value = Number(-1)
			} else if n > 5 {
				value = Number(5)
			}
		}
	}

	i.mu.Lock()
	if old, ok := i.explicit[key]; ok && old.Equal(value) {
		i.mu.Unlock()
		return
	}
	i.explicit[key] = value
	i.pending = true
	i.writeGen++
	if key == KeyOriginalDate || key == KeyDigitizedDate {
		i.date = nil
	}
	i.mu.Unlock()

	i.notify(key)
}

// RemoveProperty deletes a key from the explicit store, restoring any
// implicit fallback.
func (i *Image) RemoveProperty(key Key) {
	i.mu.Lock()
	if _, ok := i.explicit[key]; !ok {
		i.mu.Unlock()
		return
	}
	delete(i.explicit, key)
	i.pending = true
	i.writeGen++
	i.mu.Unlock()

	i.notify(key)
}

// ExplicitProperties returns a copy of the explicit store.
func (i *Image) ExplicitProperties() map[Key]Value {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make(map[Key]Value, len(i.explicit))
	for k, v := range i.explicit {
		out[k] = v
	}
	return out
}

// StampProperties merges values into the explicit store without firing
// per-key change signals. Used by the import pipeline.
func (i *Image) StampProperties(props map[Key]Value) {
	if len(props) == 0 {
		return
	}
	i.mu.Lock()
	for k, v := range props {
		i.explicit[k] = v
	}
	i.pending = true
	i.writeGen++
	i.mu.Unlock()
}

// PendingWrite reports whether explicit changes have not yet been
// written to the sidecar.
func (i *Image) PendingWrite() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending
}

// SaveProperties rewrites the JSON sidecar from the explicit store. The
// pending-write flag is only cleared if no newer change landed while
// the write was in flight.
func (i *Image) SaveProperties() error {
	i.mu.Lock()
	gen := i.writeGen
	data, err := json.MarshalIndent(i.explicit, "", "  ")
	sidecar := i.sidecar
	i.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	data = append(data, '\n')

	if err := i.backing.WriteFile(sidecar, data); err != nil {
		return fmt.Errorf("failed to write sidecar %s: %w", sidecar, err)
	}

	i.mu.Lock()
	if i.writeGen == gen {
		i.pending = false
	}
	i.mu.Unlock()
	return nil
}

// SetChangeHandler installs the property-changed signal receiver.
func (i *Image) SetChangeHandler(f func(*Image, Key)) {
	i.mu.Lock()
	i.changed = f
	i.mu.Unlock()
}

func (i *Image) notify(key Key) {
	i.mu.Lock()
	f := i.changed
	i.mu.Unlock()
	if f != nil {
		f(i, key)
	}
}

// Name returns the explicit name, falling back to the file base name.
func (i *Image) Name() string {
	if v, ok := i.Property(KeyName); ok && v.AsString() != "" {
		return v.AsString()
	}
	return i.base
}

// Title returns the explicit title, falling back to Name.
func (i *Image) Title() string {
	if v, ok := i.Property(KeyTitle); ok && v.AsString() != "" {
		return v.AsString()
	}
	return i.Name()
}

// Hidden reports the Hidden property, defaulting to false.
func (i *Image) Hidden() bool {
	v, _ := i.Property(KeyHidden)
	return v.AsBool()
}

// Flagged reports the Flagged property, defaulting to false.
func (i *Image) Flagged() bool {
	v, _ := i.Property(KeyFlagged)
	return v.AsBool()
}

// Rating returns the Rating property, defaulting to 0.
func (i *Image) Rating() int {
	if v, ok := i.Property(KeyRating); ok {
		if n, ok := v.AsNumber(); ok {
			return int(n)
		}
	}
	return 0
}

// Date returns the display date: the capture date when known, else the
// digitized date, else the file modification date. Cached after the
// first computation.
func (i *Image) Date() time.Time {
	i.mu.Lock()
	if i.date != nil {
		d := *i.date
		i.mu.Unlock()
		return d
	}
	i.mu.Unlock()

	var d time.Time
	for _, key := range []Key{KeyOriginalDate, KeyDigitizedDate, KeyFileDate} {
		if v, ok := i.Property(key); ok {
			if n, ok := v.AsNumber(); ok && n > 0 {
				d = time.Unix(int64(n), 0)
				break
			}
		}
	}

	i.mu.Lock()
	i.date = &d
	i.mu.Unlock()
	return d
}

// PixelSize returns the pixel dimensions from the implicit properties.
// A zero size means the dimensions are unknown.
func (i *Image) PixelSize() image.Point {
	var size image.Point
	if v, ok := i.Property(KeyPixelWidth); ok {
		if n, ok := v.AsNumber(); ok {
			size.X = int(n)
		}
	}
	if v, ok := i.Property(KeyPixelHeight); ok {
		if n, ok := v.AsNumber(); ok {
			size.Y = int(n)
		}
	}
	return size
}

// Orientation returns the EXIF orientation, defaulting to 1 (normal).
func (i *Image) Orientation() int {
	if v, ok := i.Property(KeyOrientation); ok {
		if n, ok := v.AsNumber(); ok && n >= 1 && n <= 8 {
			return int(n)
		}
	}
	return 1
}

// OrientedPixelSize returns the pixel size with width and height
// swapped when the orientation rotates by 90 or 270 degrees.
func (i *Image) OrientedPixelSize() image.Point {
	size := i.PixelSize()
	if i.Orientation() >= 5 {
		size.X, size.Y = size.Y, size.X
	}
	return size
}

// FileName returns the implicit file name of the active variant.
func (i *Image) FileName() string {
	v, _ := i.Property(KeyFileName)
	if s := v.AsString(); s != "" {
		return s
	}
	return path.Base(i.ImagePath())
}

// FileDate returns the implicit file modification time.
func (i *Image) FileDate() time.Time {
	if v, ok := i.Property(KeyFileDate); ok {
		if n, ok := v.AsNumber(); ok && n > 0 {
			return time.Unix(int64(n), 0)
		}
	}
	return time.Time{}
}

// FileSize returns the implicit file size in bytes.
func (i *Image) FileSize() int64 {
	if v, ok := i.Property(KeyFileSize); ok {
		if n, ok := v.AsNumber(); ok {
			return int64(n)
		}
	}
	return 0
}
