// Package sqlite persists cache entries in a single SQLite table so reference
// data survives CLI restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"sitereport/internal/infra/cache"
)

const defaultPath = "sitereport-cache.db"

var _ cache.Cache = (*Cache)(nil)

// Cache stores entries in the cache_entries table. expires_at holds unix
// nanoseconds, zero meaning no expiry.
type Cache struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates the database file and table when missing.
func Open(path string) (*Cache, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Cache{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Get returns the stored payload, deleting it instead when it has expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var expires int64
	err := c.db.QueryRowContext(ctx, `SELECT payload, expires_at FROM cache_entries WHERE key = ?`, key).
		Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cache entry: %w", err)
	}
	if expires != 0 && c.now().UnixNano() >= expires {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ? AND expires_at = ?`, key, expires); err != nil {
			return nil, false, fmt.Errorf("drop expired entry: %w", err)
		}
		return nil, false, nil
	}
	return payload, true, nil
}

// Set upserts key. A non-positive ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = c.now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}
	_, err := c.db.ExecContext(ctx, `INSERT INTO cache_entries (key, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key, value, expires)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Purge removes every expired entry and reports how many were dropped.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?`,
		c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }
