package cache

import "errors"

var (
	// ErrUnknownBackend is returned by Registry.Lookup for unregistered names.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrEmptyKey is returned when an operation receives an empty key.
	ErrEmptyKey = errors.New("empty cache key")
)
