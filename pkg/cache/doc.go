// Package cache defines the byte-oriented cache backend used by multisite and
// ships the in-process implementations.
//
// A Backend stores opaque values under string keys. Encoding, key hashing and
// namespacing are the caller's job; see tenant.Cache for the resolution cache
// built on top of it.
//
// # Backends
//
//   - NewMemory: process-local cache on top of github.com/patrickmn/go-cache.
//   - NewNoop: never stores anything. Every Get is a miss.
//   - redis.NewStorage (package pkg/redis): shared cache for multi-process deployments.
//
// # Selecting a backend by name
//
// Deployments usually pick the backend in configuration. A Registry maps names to
// backends so the choice can be made with a string:
//
//	reg := cache.NewRegistry()
//	reg.Register(cache.BackendMemory, cache.NewMemory())
//	reg.Register("redis", redis.NewStorage(client, "multisite"))
//
//	backend, err := reg.Lookup(cfg.CacheBackend)
//
// # Concurrency
//
// All backends are safe for concurrent use. Per-key operations are atomic; Clear is
// not atomic with respect to concurrent Set calls.
package cache
