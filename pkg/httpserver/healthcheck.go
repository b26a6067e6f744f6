package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/multisite/pkg/logger"
)

// Check is a named readiness dependency, such as the database or the cache.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// LivenessHandler always answers 200 "ALIVE".
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// ReadinessHandler runs every check with the request context. It answers
// 200 "READY" when all pass and 503 "NOT_READY" otherwise, logging the
// failures.
func ReadinessHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ready := true
		for _, c := range checks {
			if c.Fn == nil {
				continue
			}
			if err := c.Fn(ctx); err != nil {
				ready = false
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
			}
		}

		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
