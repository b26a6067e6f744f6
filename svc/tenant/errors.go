package tenant

import "errors"

var (
	// ErrInvalidFixture is returned when a seed fixture cannot be decoded.
	ErrInvalidFixture = errors.New("invalid seed fixture")

	// ErrUnknownStore is returned for an unsupported MULTISITE_STORE value.
	ErrUnknownStore = errors.New("unknown store")
)
