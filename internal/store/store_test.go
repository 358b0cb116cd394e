package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	if err := s.WriteFile("sub/dir/photo.json", []byte(`{"Rating":3}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := s.ReadFile("sub/dir/photo.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"Rating":3}` {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestTraversalRejected(t *testing.T) {
	s := New(t.TempDir())

	tests := []string{
		"../outside.txt",
		"sub/../../outside.txt",
		"/etc/passwd",
		"..",
	}

	for _, rel := range tests {
		t.Run(rel, func(t *testing.T) {
			if err := s.WriteFile(rel, []byte("x")); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("WriteFile(%q) error = %v, want ErrInvalidPath", rel, err)
			}
			if _, err := s.ReadFile(rel); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("ReadFile(%q) error = %v, want ErrInvalidPath", rel, err)
			}
		})
	}
}

func TestInternalDotDotAllowed(t *testing.T) {
	s := New(t.TempDir())
	// Normalizes to a path inside the root, so this is fine.
	if err := s.WriteFile("a/../b.txt", []byte("x")); err != nil {
		t.Errorf("internal .. that stays inside root should be allowed: %v", err)
	}
	if data, err := s.ReadFile("b.txt"); err != nil || string(data) != "x" {
		t.Errorf("normalized write not visible: %q, %v", data, err)
	}
}

func TestStat(t *testing.T) {
	s := New(t.TempDir())
	if err := s.WriteFile("dir/file.jpg", []byte("x")); err != nil {
		t.Fatal(err)
	}

	if exists, isDir := s.Stat("dir"); !exists || !isDir {
		t.Errorf("Stat(dir) = %v, %v; want true, true", exists, isDir)
	}
	if exists, isDir := s.Stat("dir/file.jpg"); !exists || isDir {
		t.Errorf("Stat(dir/file.jpg) = %v, %v; want true, false", exists, isDir)
	}
	if exists, _ := s.Stat("missing"); exists {
		t.Error("Stat(missing) should report not existing")
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	if err := s.WriteFile("x.jpg", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("x.jpg"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "x.jpg")); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}
}

func TestReadDir(t *testing.T) {
	s := New(t.TempDir())
	for _, name := range []string{"a.jpg", "b.jpg"} {
		if err := s.WriteFile("dir/"+name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.ReadDir("dir")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("ReadDir returned %d entries, want 2", len(entries))
	}
}
