package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
	"photo-catalog/internal/photo"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database caches implicit image properties for one library.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the property cache at dbPath. The
// parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Property cache path: %s", dbPath)

	// WAL mode with a busy timeout to avoid "database is locked" errors
	// when the scanner and the HTTP layer query concurrently.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open property cache: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close property cache after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to property cache: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close property cache after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize property cache schema: %w", err)
	}

	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS implicit_props (
		file_id INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		props TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_implicit_props_path ON implicit_props(path);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Get returns the cached properties for a file id when the cached row
// matches the given modification time. A row with a different mod time
// is treated as stale and ignored.
func (d *Database) Get(fileID uint32, modTime time.Time) (map[photo.Key]photo.Value, bool) {
	start := time.Now()
	defer func() {
		metrics.MetadataQueryDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var storedModTime int64
	var raw string
	err := d.db.QueryRowContext(ctx,
		"SELECT mod_time, props FROM implicit_props WHERE file_id = ?",
		int64(fileID),
	).Scan(&storedModTime, &raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("Property cache lookup failed for id %d: %v", fileID, err)
		}
		return nil, false
	}

	if storedModTime != modTime.Unix() {
		metrics.MetadataCacheTotal.WithLabelValues("stale").Inc()
		return nil, false
	}

	var props map[photo.Key]photo.Value
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		logging.Warn("Property cache row for id %d corrupt, ignoring: %v", fileID, err)
		return nil, false
	}
	return props, true
}

// Put stores extracted properties for a file id, replacing any
// existing row. Failures are logged; the cache is advisory.
func (d *Database) Put(fileID uint32, rel string, modTime time.Time, props map[photo.Key]photo.Value) {
	start := time.Now()
	defer func() {
		metrics.MetadataQueryDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
	}()

	raw, err := json.Marshal(props)
	if err != nil {
		logging.Warn("Failed to encode properties for id %d: %v", fileID, err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO implicit_props (file_id, path, mod_time, props, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(file_id) DO UPDATE SET
			path = excluded.path,
			mod_time = excluded.mod_time,
			props = excluded.props,
			updated_at = strftime('%s', 'now')
	`, int64(fileID), rel, modTime.Unix(), string(raw))
	if err != nil {
		logging.Warn("Failed to cache properties for id %d: %v", fileID, err)
	}
}

// Invalidate removes the cached row for a file id.
func (d *Database) Invalidate(fileID uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx,
		"DELETE FROM implicit_props WHERE file_id = ?", int64(fileID)); err != nil {
		logging.Warn("Failed to invalidate cached properties for id %d: %v", fileID, err)
	}
}

// UpdatePath rewrites the stored path for a file id after a rename.
// The cached properties stay valid because the id is stable.
func (d *Database) UpdatePath(fileID uint32, rel string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx,
		"UPDATE implicit_props SET path = ? WHERE file_id = ?", rel, int64(fileID)); err != nil {
		logging.Warn("Failed to update cached path for id %d: %v", fileID, err)
	}
}

// Empty removes every cached row.
func (d *Database) Empty(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM implicit_props")
	if err != nil {
		return fmt.Errorf("failed to empty property cache: %w", err)
	}
	return nil
}

// Vacuum optimizes the database file.
func (d *Database) Vacuum() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "VACUUM")
	return err
}
