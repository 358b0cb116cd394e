package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned when a relative path is absolute or would
// escape the library root.
var ErrInvalidPath = errors.New("path escapes library root")

// Store performs file operations under a single library root.
type Store struct {
	root string // absolute
}

// New creates a store rooted at the given absolute directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the absolute library root.
func (s *Store) Root() string {
	return s.root
}

// Abs resolves a library-relative path to an absolute one after
// validation.
func (s *Store) Abs(rel string) (string, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// cleanRel normalizes a slash-separated relative path and rejects
// absolute paths and parent traversal.
func cleanRel(rel string) (string, error) {
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	clean := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	if clean == "." {
		clean = ""
	}
	return clean, nil
}

// ReadFile returns the contents of a file under the root.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

// WriteFile writes data to a file under the root, creating parent
// directories as needed.
func (s *Store) WriteFile(rel string, data []byte) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// ReadDir lists the entries of a directory under the root.
func (s *Store) ReadDir(rel string) ([]fs.DirEntry, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", rel, err)
	}
	return entries, nil
}

// Stat reports whether a path exists under the root and whether it is a
// directory.
func (s *Store) Stat(rel string) (exists, isDir bool) {
	abs, err := s.Abs(rel)
	if err != nil {
		return false, false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return false, false
	}
	return true, info.IsDir()
}

// FileInfo returns os.Stat info for a path under the root.
func (s *Store) FileInfo(rel string) (fs.FileInfo, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	return info, nil
}

// Remove deletes a file or empty directory under the root.
func (s *Store) Remove(rel string) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// Rename moves a file or directory within the root.
func (s *Store) Rename(oldRel, newRel string) error {
	oldAbs, err := s.Abs(oldRel)
	if err != nil {
		return err
	}
	newAbs, err := s.Abs(newRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", newRel, err)
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldRel, newRel, err)
	}
	return nil
}
