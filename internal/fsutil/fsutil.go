package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleError checks if an error is an NFS stale file handle error
func isStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs op, retrying on NFS stale file handle errors with
// exponential backoff. Any other error is returned immediately.
func withRetry(name, path string, config RetryConfig, op func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", name, attempt, path)
			}
			return nil
		}

		lastErr = err

		if !isStaleError(err) {
			return err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(name).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(name).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				name, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", name, config.MaxRetries, path, lastErr)
	return lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	return file, err
}

// CopyFileAtomic copies src to dst durably. The data is written to a
// temporary file in dst's directory, synced to stable storage, and then
// renamed into place. On any failure the temporary file is removed and
// dst is left untouched.
func CopyFileAtomic(src, dst string, config RetryConfig) error {
	in, err := OpenWithRetry(src, config)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", src, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.Warn("failed to close source file %s: %v", src, err)
		}
	}()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logging.Debug("temp file close during cleanup: %v", err)
		}
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove temporary file %s: %v", tmpName, err)
		}
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	// Destination must be durable before any caller deletes the source.
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}

	if err := tmp.Chmod(srcInfo.Mode().Perm()); err != nil {
		logging.Debug("failed to preserve mode on %s: %v", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename into place: %w", err)
	}

	return nil
}

// MoveFile moves src to dst, preferring an atomic rename and falling
// back to a durable copy-then-delete across filesystems.
func MoveFile(src, dst string, config RetryConfig) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	crossDevice := errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
	if !crossDevice {
		return fmt.Errorf("failed to rename %s: %w", src, err)
	}

	if err := CopyFileAtomic(src, dst, config); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}
