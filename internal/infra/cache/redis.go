package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "buildledger:cache:"

// Redis is a CollectionCache over a shared Redis instance, for deployments
// where several ledger nodes share one fallback cache.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis instance at addr.
func NewRedis(addr string, db int) *Redis {
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// Write replaces the snapshot for a collection. Snapshots never expire; the
// coordinator overwrites them on every successful remote load.
func (r *Redis) Write(ctx context.Context, collection string, payload []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+collection, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", collection, err)
	}
	return nil
}

// Read returns the snapshot for a collection if one was cached.
func (r *Redis) Read(ctx context.Context, collection string) ([]byte, bool, error) {
	payload, err := r.client.Get(ctx, redisKeyPrefix+collection).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", collection, err)
	}
	return payload, true, nil
}

// Close releases the client connection pool.
func (r *Redis) Close() error { return r.client.Close() }
