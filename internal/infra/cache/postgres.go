package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var (
	pgOpen   = sql.Open
	pgOpenMu sync.Mutex
)

// Postgres is a CollectionCache persisted to a shared Postgres database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the cache schema on the database at dsn.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = "postgres://localhost/buildledger?sslmode=disable"
	}
	pgOpenMu.Lock()
	db, err := pgOpen("pgx", dsn)
	pgOpenMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache_collections (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Write upserts the snapshot for a collection.
func (p *Postgres) Write(ctx context.Context, collection string, payload []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO cache_collections(name,payload) VALUES($1,$2) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Read returns the snapshot for a collection if one was cached.
func (p *Postgres) Read(ctx context.Context, collection string) ([]byte, bool, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM cache_collections WHERE name = $1`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", collection, err)
	}
	return payload, true, nil
}

// Close releases the database handle.
func (p *Postgres) Close() error { return p.db.Close() }

// OverridePGOpen swaps the sql.Open function for tests and returns a restore
// function.
func OverridePGOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	pgOpenMu.Lock()
	defer pgOpenMu.Unlock()
	prev := pgOpen
	pgOpen = fn
	return func() {
		pgOpenMu.Lock()
		defer pgOpenMu.Unlock()
		pgOpen = prev
	}
}
