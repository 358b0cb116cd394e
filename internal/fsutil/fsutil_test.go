package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "nested", "dst.jpg")

	content := []byte("jpeg bytes")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileAtomic(src, dst, DefaultRetryConfig()); err != nil {
		t.Fatalf("CopyFileAtomic failed: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("destination not readable: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("destination content = %q, want %q", got, content)
	}

	// Source must be untouched
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should still exist: %v", err)
	}
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileAtomic(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "dst.jpg"), DefaultRetryConfig())
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "dst.jpg")); !os.IsNotExist(statErr) {
		t.Error("destination must not exist after failed copy")
	}
}

func TestCopyFileAtomicNoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileAtomic(src, filepath.Join(dir, "dst.jpg"), DefaultRetryConfig()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "src.jpg" && e.Name() != "dst.jpg" {
			t.Errorf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "sub", "b.jpg")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst, DefaultRetryConfig()); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after move")
	}
	if got, err := os.ReadFile(dst); err != nil || string(got) != "data" {
		t.Errorf("destination content = %q, err = %v", got, err)
	}
}

func TestStatWithRetryPassesThroughNotFound(t *testing.T) {
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "nope"), DefaultRetryConfig())
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
