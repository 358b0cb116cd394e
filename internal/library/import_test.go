package library

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"photo-catalog/internal/filetype"
	"photo-catalog/internal/photo"
)

func writeSourceJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(dir, name)
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return abs
}

func TestImportThreeItemsOneFailure(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()

	sources := []string{
		writeSourceJPEG(t, srcDir, "IMG_0001.jpg"),
		writeSourceJPEG(t, srcDir, "IMG_0002.jpg"),
		filepath.Join(srcDir, "IMG_0003.jpg"), // never written
	}

	job := lib.ImportImages(sources, "imported", ImportOptions{})
	job.Wait()

	results := job.Results()
	if len(results) != 3 {
		t.Fatalf("results = %d items, want 3", len(results))
	}

	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
		if _, err := os.Stat(filepath.Join(lib.Path(), filepath.FromSlash(r.Dest))); err != nil {
			t.Errorf("imported file %s missing: %v", r.Dest, err)
		}
	}
	if ok != 2 || failed != 1 {
		t.Errorf("outcomes = %d ok, %d failed, want 2 and 1", ok, failed)
	}

	// The two good files are catalogued and visible to a scan.
	images := collectImages(lib, "imported", false)
	if len(images) != 2 {
		t.Errorf("scan after import yielded %d images, want 2", len(images))
	}
}

func TestImportWaitForCompletion(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()
	src := writeSourceJPEG(t, srcDir, "IMG_0001.jpg")

	job := lib.ImportImages([]string{src}, "in", ImportOptions{})
	lib.WaitForImportsToComplete()

	if !job.Finished() {
		t.Error("job must be finished after WaitForImportsToComplete")
	}
	if len(lib.ActiveImports()) != 0 {
		t.Errorf("active imports = %v after completion", lib.ActiveImports())
	}
}

func TestImportDeleteSource(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()
	src := writeSourceJPEG(t, srcDir, "IMG_0001.jpg")

	job := lib.ImportImages([]string{src}, "in", ImportOptions{DeleteSource: true})
	job.Wait()

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source must be removed after a durable import copy")
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "in", "IMG_0001.jpg")); err != nil {
		t.Errorf("imported file missing: %v", err)
	}
}

func TestImportRenamesAndProperties(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()
	src := writeSourceJPEG(t, srcDir, "DSC08123.jpg")

	job := lib.ImportImages([]string{src}, "in", ImportOptions{
		Rename: func(base string) string {
			if base == "DSC08123" {
				return "sunset"
			}
			return ""
		},
		Properties: map[photo.Key]photo.Value{
			photo.KeyKeywords:  photo.List("trip"),
			photo.KeyCopyright: photo.String("someone"),
		},
	})
	job.Wait()

	results := job.Results()
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Dest != "in/sunset.jpg" {
		t.Errorf("dest = %q, want in/sunset.jpg", results[0].Dest)
	}

	images := collectImages(lib, "in", false)
	if len(images) != 1 {
		t.Fatalf("scan yielded %d images", len(images))
	}
	img := images[0]
	if v, _ := img.Property(photo.KeyCopyright); v.AsString() != "someone" {
		t.Errorf("stamped Copyright = %q", v.AsString())
	}
	if v, _ := img.Property(photo.KeyKeywords); len(v.AsList()) != 1 || v.AsList()[0] != "trip" {
		t.Errorf("stamped Keywords = %v", v.AsList())
	}
}

func TestImportGroupsVariantPair(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()
	jpg := writeSourceJPEG(t, srcDir, "IMG_0001.jpg")
	raw := filepath.Join(srcDir, "IMG_0001.cr2")
	if err := os.WriteFile(raw, []byte("raw sensor data"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := lib.ImportImages([]string{jpg, raw}, "in", ImportOptions{
		PreferredType: filetype.KindRAW,
	})
	job.Wait()

	images := collectImages(lib, "in", false)
	if len(images) != 1 {
		t.Fatalf("pair imported as %d images, want 1", len(images))
	}
	img := images[0]
	if !img.JPEG().Present() || !img.RAW().Present() {
		t.Error("both variants must be present after import")
	}
	if !img.UsesRAW() {
		t.Error("preferred type raw must select the RAW variant")
	}
}

func TestImportCollisionSuffix(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "in/IMG_0001.jpg")

	srcDir := t.TempDir()
	src := writeSourceJPEG(t, srcDir, "IMG_0001.jpg")

	job := lib.ImportImages([]string{src}, "in", ImportOptions{})
	job.Wait()

	results := job.Results()
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Dest != "in/IMG_0001-1.jpg" {
		t.Errorf("collision dest = %q, want in/IMG_0001-1.jpg", results[0].Dest)
	}
}

func TestImportFileTypeFilter(t *testing.T) {
	lib := newTestLibrary(t)
	srcDir := t.TempDir()
	jpg := writeSourceJPEG(t, srcDir, "IMG_0001.jpg")
	raw := filepath.Join(srcDir, "IMG_0001.cr2")
	if err := os.WriteFile(raw, []byte("raw sensor data"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := lib.ImportImages([]string{jpg, raw}, "in", ImportOptions{
		FileTypes: []filetype.Kind{filetype.KindJPEG},
	})
	job.Wait()

	if _, err := os.Stat(filepath.Join(lib.Path(), "in", "IMG_0001.cr2")); !os.IsNotExist(err) {
		t.Error("filtered RAW variant must not be imported")
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "in", "IMG_0001.jpg")); err != nil {
		t.Errorf("JPEG variant missing: %v", err)
	}
}
