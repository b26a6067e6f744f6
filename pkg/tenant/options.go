package tenant

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultTestHost is the host name test harnesses send by default.
const DefaultTestHost = "testserver"

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// FailurePolicy decides what happens when the store or cache cannot be reached.
type FailurePolicy int

const (
	// FailFast answers 503 through the error handler.
	FailFast FailurePolicy = iota
	// TreatAsNotFound handles the request like an unknown host.
	TreatAsNotFound
)

func (p FailurePolicy) String() string {
	switch p {
	case TreatAsNotFound:
		return "not_found"
	default:
		return "fail_fast"
	}
}

// ParseFailurePolicy accepts "fail_fast" (or empty) and "not_found".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail_fast", "failfast":
		return FailFast, nil
	case "not_found", "notfound":
		return TreatAsNotFound, nil
	default:
		return FailFast, fmt.Errorf("%w: unknown failure policy %q", ErrConfiguration, s)
	}
}

// config holds middleware configuration.
type config struct {
	current        *Current
	tenantCache    *TenantCache
	fallback       http.Handler
	fallbackParams map[string]string
	extraHosts     []string
	testHost       string
	localDebug     bool
	failurePolicy  FailurePolicy
	errorHandler   ErrorHandler
	skipPaths      []string
	logger         *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithDefaultTenant sets the tenant id used when nothing overrides it.
func WithDefaultTenant(id int64) Option {
	return func(c *config) {
		c.current = NewCurrentWithDefault(id)
	}
}

// WithCurrentPrototype sets the cell every request cell is forked from. Use it
// with NewCurrentWithDomain to derive the default from a domain name.
func WithCurrentPrototype(cur *Current) Option {
	return func(c *config) {
		if cur != nil {
			c.current = cur
		}
	}
}

// WithTenantCache makes the middleware load the tenant record into the context.
func WithTenantCache(tc *TenantCache) Option {
	return func(c *config) {
		c.tenantCache = tc
	}
}

// WithFallback sets the handler for hosts no alias matches. params are exposed
// to it through FallbackParamsFromContext. Without a fallback the error handler
// receives ErrNotFound.
func WithFallback(h http.Handler, params map[string]string) Option {
	return func(c *config) {
		c.fallback = h
		c.fallbackParams = params
	}
}

// WithExtraHosts sets host patterns that bypass alias lookup, see MatchHost.
func WithExtraHosts(patterns ...string) Option {
	return func(c *config) {
		c.extraHosts = append(c.extraHosts, patterns...)
	}
}

// WithTestHost sets the host that resolves to the default tenant when no alias
// matches it. An empty host disables the allowance.
func WithTestHost(host string) Option {
	return func(c *config) {
		c.testHost = strings.ToLower(host)
	}
}

// WithLocalDebug lets single-label hosts such as "localhost" fall back to the
// default tenant. It is implied by the development environment.
func WithLocalDebug(enabled bool) Option {
	return func(c *config) {
		c.localDebug = enabled
	}
}

// WithFailurePolicy sets how store outages are handled.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *config) {
		c.failurePolicy = p
	}
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets paths that should skip tenant resolution.
func WithSkipPaths(paths []string) Option {
	return func(c *config) {
		c.skipPaths = paths
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// FallbackRedirect returns a fallback handler redirecting to url. A zero status
// means 302 Found.
func FallbackRedirect(url string, status int) (http.Handler, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: fallback url is empty", ErrConfiguration)
	}
	if status == 0 {
		status = http.StatusFound
	}
	if status < 300 || status > 399 {
		return nil, fmt.Errorf("%w: fallback status %d is not a redirect", ErrConfiguration, status)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, url, status)
	}), nil
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidHost):
		http.Error(w, "Invalid host", http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoTenantInContext):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrStoreUnavailable):
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
