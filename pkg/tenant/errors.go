package tenant

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

var (
	// ErrInvalidHost is returned for malformed host names. It is the same value as
	// netloc.ErrInvalidHost so callers can test either.
	ErrInvalidHost = netloc.ErrInvalidHost

	// ErrNotFound is returned when no alias or tenant matches.
	ErrNotFound = errors.New("tenant not found")

	// ErrValidation is returned when an alias or tenant violates a data invariant.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration is returned for invalid middleware or cache settings.
	ErrConfiguration = errors.New("improperly configured")

	// ErrMultipleMatch is returned when a tenant's domain is cleared while other
	// aliases still point at it.
	ErrMultipleMatch = errors.New("other aliases still exist for tenant")

	// ErrNotConfigured is returned by Current when it has neither a value nor a default.
	ErrNotConfigured = errors.New("current tenant has not been set")

	// ErrStoreUnavailable wraps connectivity failures of stores and cache backends.
	ErrStoreUnavailable = errors.New("tenant store unavailable")

	// ErrInvalidTenantID is returned by Current.Set for values that are not tenant ids.
	ErrInvalidTenantID = errors.New("invalid tenant id")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a *ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed: " + e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) true for every *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound reports whether err means nothing matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
