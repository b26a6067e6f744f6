package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	// Header is the default request id header.
	Header      = "X-Request-ID"
	maxIDLength = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Option configures the middleware.
type Option func(*options)

type options struct {
	header    string
	trust     bool
	generator func() string
}

// WithHeader reads and writes the id under a different header name.
func WithHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.header = name
		}
	}
}

// WithTrustIncoming controls whether a well-formed id sent by the client is
// reused. Enabled by default; disable it when the service is not behind a
// proxy that sets the header.
func WithTrustIncoming(trust bool) Option {
	return func(o *options) { o.trust = trust }
}

// WithGenerator replaces the UUIDv7 generator.
func WithGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.generator = fn
		}
	}
}

// New returns a middleware that stores a request id in the context and echoes
// it in the response header.
func New(opts ...Option) func(http.Handler) http.Handler {
	o := &options{header: Header, trust: true, generator: newID}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(o.header)
			if !o.trust || !IsValid(id) {
				id = o.generator()
			}
			w.Header().Set(o.header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

// Middleware is New with the defaults.
func Middleware(next http.Handler) http.Handler {
	return New()(next)
}

// IsValid reports whether id is short and made of URL-safe characters.
func IsValid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validID.MatchString(id)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
