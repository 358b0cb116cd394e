package library

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"photo-catalog/internal/photo"
)

// nullDecoder satisfies the prefetch pool without touching real files.
type nullDecoder struct{}

func (nullDecoder) LowQuality(string, photo.HostOptions) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (nullDecoder) HighQuality(string, photo.HostOptions) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		filepath.Join(t.TempDir(), "registry.json"),
		t.TempDir(),
		nullDecoder{},
		1,
	)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	t.Cleanup(func() { r.pool.Close() })
	return r
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	r := newTestRegistry(t)
	lib, err := r.Add("test", t.TempDir(), true)
	if err != nil {
		t.Fatalf("failed to add library: %v", err)
	}
	return lib
}

// writeLibFile drops a file into the library tree. JPEG-kind files get
// real JPEG bytes so decoders and EXIF probes do not choke.
func writeLibFile(t *testing.T, lib *Library, rel string) {
	t.Helper()
	var data []byte
	switch filepath.Ext(rel) {
	case ".jpg", ".jpeg":
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil); err != nil {
			t.Fatal(err)
		}
		data = buf.Bytes()
	default:
		data = []byte("raw sensor data")
	}
	abs := filepath.Join(lib.Path(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func collectImages(lib *Library, dir string, recursive bool) []*photo.Image {
	var out []*photo.Image
	for img := range lib.Images(dir, recursive) {
		out = append(out, img)
	}
	return out
}

func TestLibraryBackingPaths(t *testing.T) {
	lib := newTestLibrary(t)

	abs := lib.AbsPath("sub/IMG_0001.jpg")
	want := filepath.Join(lib.Path(), "sub", "IMG_0001.jpg")
	if abs != want {
		t.Errorf("AbsPath = %q, want %q", abs, want)
	}

	cache := lib.CacheFilePath(0x2a, "low.jpg")
	if filepath.Base(cache) != "0000002a_low.jpg" {
		t.Errorf("CacheFilePath base = %q", filepath.Base(cache))
	}
	if filepath.Dir(cache) != lib.CachePath() {
		t.Errorf("cache files must live in the cache directory, got %q", cache)
	}
}

func TestFileIDStableAcrossCalls(t *testing.T) {
	lib := newTestLibrary(t)

	id := lib.FileID("a/IMG_0001.jpg")
	if id == 0 {
		t.Fatal("id 0 must never be allocated")
	}
	if lib.FileID("a/IMG_0001.jpg") != id {
		t.Error("repeated lookups must return the same id")
	}

	rel, ok := lib.PathOfFileID(id)
	if !ok || rel != "a/IMG_0001.jpg" {
		t.Errorf("PathOfFileID = %q, %v", rel, ok)
	}
}

func TestSubdirectories(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "2024/IMG_0001.jpg")
	writeLibFile(t, lib, "2025/IMG_0002.jpg")
	writeLibFile(t, lib, ".hidden/IMG_0003.jpg")
	writeLibFile(t, lib, "stray.jpg")

	dirs, err := lib.Subdirectories("")
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 || dirs[0] != "2024" || dirs[1] != "2025" {
		t.Errorf("Subdirectories = %v", dirs)
	}
}

func TestSynchronizePersistsCatalog(t *testing.T) {
	lib := newTestLibrary(t)
	lib.FileID("IMG_0001.jpg")

	if err := lib.Synchronize(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(lib.CachePath(), catalogFileName)); err != nil {
		t.Errorf("catalog file missing after Synchronize: %v", err)
	}
}

func TestEmptyCachesKeepsCatalog(t *testing.T) {
	lib := newTestLibrary(t)
	lib.FileID("IMG_0001.jpg")
	if err := lib.Synchronize(); err != nil {
		t.Fatal(err)
	}

	// Seed a fake proxy cache file.
	proxy := lib.CacheFilePath(1, "low.jpg")
	if err := os.WriteFile(proxy, []byte("cached"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := lib.EmptyCaches(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(proxy); !os.IsNotExist(err) {
		t.Error("proxy cache file must be removed")
	}
	if _, err := os.Stat(filepath.Join(lib.CachePath(), catalogFileName)); err != nil {
		t.Error("catalog file must survive EmptyCaches")
	}

	// Ids are still stable after the caches are gone.
	if rel, ok := lib.PathOfFileID(1); !ok || rel != "IMG_0001.jpg" {
		t.Errorf("PathOfFileID after EmptyCaches = %q, %v", rel, ok)
	}
}

func TestAbsPathNeverEscapesRoot(t *testing.T) {
	lib := newTestLibrary(t)

	if got := lib.AbsPath("a/IMG_0001.jpg"); got != filepath.Join(lib.Path(), "a", "IMG_0001.jpg") {
		t.Errorf("AbsPath = %q", got)
	}
	for _, rel := range []string{"../outside.jpg", "/etc/passwd", "a/../../outside.jpg"} {
		if got := lib.AbsPath(rel); got != lib.Path() {
			t.Errorf("AbsPath(%q) = %q, want the library root", rel, got)
		}
	}
}
