package cache

import (
	"context"
	"time"
)

// Well-known backend names.
const (
	BackendMemory = "memory"
	BackendNoop   = "noop"
	BackendRedis  = "redis"
)

// Backend is a byte-oriented key/value cache.
type Backend interface {
	// Get returns the value stored under key. The bool is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 stores without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this backend.
	Clear(ctx context.Context) error
}

// Noop disables caching.
type Noop struct{}

// NewNoop returns a backend that stores nothing.
func NewNoop() *Noop { return &Noop{} }

func (Noop) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Noop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (Noop) Delete(context.Context, string) error {
	return nil
}

func (Noop) Clear(context.Context) error {
	return nil
}
