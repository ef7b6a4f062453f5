package cache

import (
	"context"
	"sync"
)

// Memory is a process-local CollectionCache, used in tests and single-node
// runs without durability requirements.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string][]byte)}
}

// Write replaces the stored snapshot for a collection.
func (m *Memory) Write(_ context.Context, collection string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[collection] = append([]byte(nil), payload...)
	return nil
}

// Read returns the stored snapshot and whether one exists.
func (m *Memory) Read(_ context.Context, collection string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.buckets[collection]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Close is a no-op for the memory cache.
func (m *Memory) Close() error { return nil }
