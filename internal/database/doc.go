// Package database provides the per-library SQLite cache for implicit
// image properties. Extracting EXIF headers is slow; the cache keys
// extracted property maps by stable file id and validates them against
// the file modification time.
package database
