package library

import (
	"os"
	"path/filepath"
	"testing"

	"photo-catalog/internal/photo"
)

func TestMoveImagePreservesIDs(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "incoming/IMG_0001.jpg")

	images := collectImages(lib, "incoming", false)
	if len(images) != 1 {
		t.Fatalf("scan yielded %d images", len(images))
	}
	img := images[0]
	id := img.JPEG().ID

	if err := lib.MoveImage(img, "archive"); err != nil {
		t.Fatal(err)
	}

	if rel, ok := lib.PathOfFileID(id); !ok || rel != "archive/IMG_0001.jpg" {
		t.Errorf("PathOfFileID(%d) = %q, %v, want archive/IMG_0001.jpg", id, rel, ok)
	}
	if img.JPEG().Path != "archive/IMG_0001.jpg" {
		t.Errorf("image variant path = %q", img.JPEG().Path)
	}
	if img.Directory() != "archive" {
		t.Errorf("image directory = %q", img.Directory())
	}

	if _, err := os.Stat(filepath.Join(lib.Path(), "archive", "IMG_0001.jpg")); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "incoming", "IMG_0001.jpg")); !os.IsNotExist(err) {
		t.Error("source file must be gone after move")
	}
}

func TestMoveImageCarriesSidecarAndRAW(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")
	writeLibFile(t, lib, "a/IMG_0001.cr2")
	writeLibFile(t, lib, "a/IMG_0001.json")

	img := collectImages(lib, "a", false)[0]
	rawID := img.RAW().ID

	if err := lib.MoveImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"b/IMG_0001.jpg", "b/IMG_0001.cr2", "b/IMG_0001.json"} {
		if _, err := os.Stat(filepath.Join(lib.Path(), filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s missing after move: %v", rel, err)
		}
	}
	if rel, _ := lib.PathOfFileID(rawID); rel != "b/IMG_0001.cr2" {
		t.Errorf("RAW id resolves to %q", rel)
	}
	if img.SidecarPath() != "b/IMG_0001.json" {
		t.Errorf("sidecar path = %q", img.SidecarPath())
	}
}

func TestCopyImageAllocatesNewIDs(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")

	img := collectImages(lib, "a", false)[0]
	origID := img.JPEG().ID

	if err := lib.CopyImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	// Original entry untouched.
	if rel, _ := lib.PathOfFileID(origID); rel != "a/IMG_0001.jpg" {
		t.Errorf("original id now resolves to %q", rel)
	}

	copies := collectImages(lib, "b", false)
	if len(copies) != 1 {
		t.Fatalf("copy scan yielded %d images", len(copies))
	}
	if copies[0].JPEG().ID == origID {
		t.Error("copy must get a fresh id")
	}
}

func TestCopyImageCollisionSuffix(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")
	writeLibFile(t, lib, "b/IMG_0001.jpg")

	img := collectImages(lib, "a", false)[0]
	if err := lib.CopyImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001-1.jpg")); err != nil {
		t.Errorf("collision copy must land at IMG_0001-1.jpg: %v", err)
	}
	// The existing file is untouched.
	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001.jpg")); err != nil {
		t.Errorf("existing file clobbered: %v", err)
	}
}

func TestMoveImageCollisionKeepsGroupTogether(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")
	writeLibFile(t, lib, "a/IMG_0001.cr2")
	writeLibFile(t, lib, "b/IMG_0001.jpg")

	img := collectImages(lib, "a", false)[0]
	if err := lib.MoveImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	// Both variants get the same suffixed base.
	if img.JPEG().Path != "b/IMG_0001-1.jpg" || img.RAW().Path != "b/IMG_0001-1.cr2" {
		t.Errorf("variant paths after collision move = %q / %q", img.JPEG().Path, img.RAW().Path)
	}
	// The image's own naming follows the suffix, so property writes
	// land next to the moved files.
	if img.BaseName() != "IMG_0001-1" {
		t.Errorf("base name after collision move = %q", img.BaseName())
	}
	if img.SidecarPath() != "b/IMG_0001-1.json" {
		t.Errorf("sidecar path after collision move = %q", img.SidecarPath())
	}

	img.SetProperty(photo.KeyName, photo.String("sunset"))
	if err := img.SaveProperties(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001-1.json")); err != nil {
		t.Errorf("sidecar not written beside moved files: %v", err)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001.json")); !os.IsNotExist(err) {
		t.Error("sidecar written under the colliding base")
	}
}

func TestMoveImageCollisionCarriesSidecar(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")
	writeLibFile(t, lib, "a/IMG_0001.json")
	writeLibFile(t, lib, "b/IMG_0001.jpg")

	img := collectImages(lib, "a", false)[0]
	if err := lib.MoveImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	if img.SidecarPath() != "b/IMG_0001-1.json" {
		t.Errorf("sidecar path = %q", img.SidecarPath())
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001-1.json")); err != nil {
		t.Errorf("sidecar missing after collision move: %v", err)
	}

	// A second move must take the sidecar along again.
	if err := lib.MoveImage(img, "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "c", "IMG_0001-1.json")); err != nil {
		t.Errorf("sidecar left behind on second move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "b", "IMG_0001-1.json")); !os.IsNotExist(err) {
		t.Error("old sidecar still present after second move")
	}
}

func TestRenameDirectoryCascades(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "old/IMG_0001.jpg")
	writeLibFile(t, lib, "old/deep/IMG_0002.jpg")

	id1 := lib.FileID("old/IMG_0001.jpg")
	id2 := lib.FileID("old/deep/IMG_0002.jpg")

	if err := lib.RenameDirectory("old", "new"); err != nil {
		t.Fatal(err)
	}

	if rel, _ := lib.PathOfFileID(id1); rel != "new/IMG_0001.jpg" {
		t.Errorf("id1 resolves to %q", rel)
	}
	if rel, _ := lib.PathOfFileID(id2); rel != "new/deep/IMG_0002.jpg" {
		t.Errorf("id2 resolves to %q", rel)
	}
	if _, err := os.Stat(filepath.Join(lib.Path(), "new", "IMG_0001.jpg")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
}

func TestRenameDirectoryRejectsExistingTarget(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "old/IMG_0001.jpg")
	writeLibFile(t, lib, "new/IMG_0002.jpg")

	if err := lib.RenameDirectory("old", "new"); err == nil {
		t.Error("rename onto an existing directory must fail")
	}
}

func TestDidRenameFile(t *testing.T) {
	lib := newTestLibrary(t)
	id := lib.FileID("a/IMG_0001.jpg")

	lib.DidRenameFile("a/IMG_0001.jpg", "a/renamed.jpg")

	if rel, _ := lib.PathOfFileID(id); rel != "a/renamed.jpg" {
		t.Errorf("id resolves to %q after external rename", rel)
	}
}

func TestDidRemoveFileFreesNoIDs(t *testing.T) {
	lib := newTestLibrary(t)
	removed := lib.FileID("a/IMG_0001.jpg")

	lib.DidRemoveFile("a/IMG_0001.jpg")

	if _, ok := lib.PathOfFileID(removed); ok {
		t.Error("removed file must not resolve")
	}
	if next := lib.FileID("a/IMG_0002.jpg"); next == removed {
		t.Error("freed id must never be reused")
	}
}

func TestMoveNotifiesChangedDirectories(t *testing.T) {
	lib := newTestLibrary(t)
	writeLibFile(t, lib, "a/IMG_0001.jpg")

	img := collectImages(lib, "a", false)[0]
	if err := lib.MoveImage(img, "b"); err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	for len(lib.Changed()) > 0 {
		got[<-lib.Changed()] = true
	}
	if !got["a"] || !got["b"] {
		t.Errorf("changed notifications = %v, want both a and b", got)
	}
}
