package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired memory entries are purged.
const DefaultCleanupInterval = time.Minute

// Memory is a process-local backend.
type Memory struct {
	store *gocache.Cache
}

// NewMemory creates an in-process backend. Entries without a TTL never expire.
func NewMemory() *Memory {
	return NewMemoryWithCleanup(DefaultCleanupInterval)
}

// NewMemoryWithCleanup creates an in-process backend with a custom purge interval.
func NewMemoryWithCleanup(interval time.Duration) *Memory {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Memory{store: gocache.New(gocache.NoExpiration, interval)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Set stores a copy of value so later mutations by the caller are not visible.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.store.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Clear drops every entry.
func (m *Memory) Clear(context.Context) error {
	m.store.Flush()
	return nil
}

// Len reports the number of stored entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	return m.store.ItemCount()
}
