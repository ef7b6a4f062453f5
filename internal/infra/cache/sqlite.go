package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite is a durable CollectionCache over a single bucket table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the cache database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "buildledger-cache.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create collections table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Write upserts the snapshot for a collection.
func (s *SQLite) Write(ctx context.Context, collection string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Read returns the snapshot for a collection if one was cached.
func (s *SQLite) Read(ctx context.Context, collection string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE name = ?`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", collection, err)
	}
	return payload, true, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
