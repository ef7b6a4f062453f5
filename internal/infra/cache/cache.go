// Package cache provides the local durable collection cache the sync
// coordinator falls back to when the remote service is unreachable. Each
// collection is stored as one JSON snapshot keyed by collection name.
package cache

import (
	"context"
	"fmt"
)

// CollectionCache stores per-collection snapshots.
type CollectionCache interface {
	Write(ctx context.Context, collection string, payload []byte) error
	Read(ctx context.Context, collection string) ([]byte, bool, error)
	Close() error
}

// Config selects and parameterizes a cache driver.
type Config struct {
	Driver     string `yaml:"driver"`      // memory | sqlite | redis | postgres
	SQLitePath string `yaml:"sqlite_path"` // sqlite driver
	RedisAddr  string `yaml:"redis_addr"`  // redis driver
	RedisDB    int    `yaml:"redis_db"`
	PostgresDSN string `yaml:"postgres_dsn"` // postgres driver
}

// Open constructs the cache backend named by cfg.Driver. An empty driver
// selects memory.
func Open(cfg Config) (CollectionCache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisDB), nil
	case "postgres":
		return NewPostgres(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
