package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/multisite/pkg/environment"
	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// Middleware resolves the tenant from the request host and stores it in the
// request context. Every request gets its own Current, forked from the configured
// default, so concurrent requests never observe each other's tenant.
//
// Resolution order: extra hosts pass through untouched, then the cache, then the
// resolver. Unknown hosts get the default tenant when they are the test host or,
// in local debug mode, a single-label name; otherwise the fallback runs.
// Requests matched by a non-canonical alias that redirects are answered with
// 301 Moved Permanently to the canonical domain.
func Middleware(resolver *Resolver, cache *Cache, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		current:       NewCurrent(),
		testHost:      DefaultTestHost,
		failurePolicy: FailFast,
		errorHandler:  defaultErrorHandler,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cache == nil {
		cache = NewCache(nil)
	}

	m := &middleware{config: cfg, resolver: resolver, cache: cache}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			cur := cfg.current.Fork()
			r = r.WithContext(WithCurrent(r.Context(), cur))
			m.serveHTTP(w, r, cur, next)
		})
	}
}

type middleware struct {
	*config
	resolver *Resolver
	cache    *Cache
	group    singleflight.Group
}

func (m *middleware) serveHTTP(w http.ResponseWriter, r *http.Request, cur *Current, next http.Handler) {
	ctx := r.Context()

	host, port, err := netloc.SplitHostPort(r.Host)
	if err != nil {
		m.logger.DebugContext(ctx, "malformed host header", slog.String("host", r.Host), slog.String("error", err.Error()))
		m.runFallback(w, r, cur)
		return
	}

	if MatchHost(host, m.extraHosts) {
		next.ServeHTTP(w, r)
		return
	}

	hostport := netloc.Join(host, port)
	key := m.cache.Key(hostport)

	res, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.WarnContext(ctx, "tenant cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if !ok {
		res, err = m.resolve(ctx, key, host, port)
		if err != nil {
			m.unresolved(w, r, cur, next, host, err)
			return
		}
	}

	if err := cur.Set(res.TenantID); err != nil {
		m.errorHandler(w, r, err)
		return
	}

	if res.ShouldRedirect() && !SameDomain(res.CanonicalDomain, hostport) {
		http.Redirect(w, r, canonicalURL(r, res.CanonicalDomain), http.StatusMovedPermanently)
		return
	}

	ctx = WithAlias(ctx, res.Alias.Clone())
	if m.tenantCache != nil {
		t, err := m.tenantCache.Get(ctx, res.TenantID)
		if err != nil {
			m.logger.WarnContext(ctx, "load tenant record", slog.Int64("tenant_id", res.TenantID), slog.String("error", err.Error()))
		} else {
			ctx = WithTenant(ctx, t)
		}
	}

	next.ServeHTTP(w, r.WithContext(ctx))
}

// resolve collapses concurrent misses for the same key into one store lookup and
// caches the outcome. Misses are not cached.
func (m *middleware) resolve(ctx context.Context, key, host string, port int) (*CachedResolution, error) {
	v, err, _ := m.group.Do(key, func() (any, error) {
		// Detached so one cancelled client does not fail the requests sharing the call.
		ctx := context.WithoutCancel(ctx)

		alias, err := m.resolver.Resolve(ctx, host, port)
		if err != nil {
			return nil, err
		}

		res := &CachedResolution{Alias: alias, TenantID: alias.TenantID}
		if alias.ShouldRedirect() {
			canonical, err := m.resolver.CanonicalDomain(ctx, alias)
			if err != nil && !IsNotFound(err) {
				return nil, err
			}
			res.CanonicalDomain = canonical
		}

		if err := m.cache.Set(ctx, key, res); err != nil {
			m.logger.WarnContext(ctx, "tenant cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CachedResolution), nil
}

func (m *middleware) unresolved(w http.ResponseWriter, r *http.Request, cur *Current, next http.Handler, host string, err error) {
	ctx := r.Context()

	switch {
	case IsNotFound(err), errors.Is(err, ErrInvalidHost):
	case errors.Is(err, ErrStoreUnavailable) && m.failurePolicy == TreatAsNotFound:
		m.logger.ErrorContext(ctx, "tenant store unavailable, treating host as unknown", slog.String("host", host), slog.String("error", err.Error()))
	default:
		m.logger.ErrorContext(ctx, "tenant resolution failed", slog.String("host", host), slog.String("error", err.Error()))
		m.errorHandler(w, r, err)
		return
	}

	if m.allowsDefault(r, host) {
		if id, err := cur.Default(); err == nil {
			_ = cur.Set(id)
			next.ServeHTTP(w, r)
			return
		}
	}

	m.runFallback(w, r, cur)
}

func (m *middleware) allowsDefault(r *http.Request, host string) bool {
	if m.testHost != "" && host == m.testHost {
		return true
	}
	if m.localDebug || environment.IsDevelopment(r.Context()) {
		return !strings.Contains(host, ".")
	}
	return false
}

func (m *middleware) runFallback(w http.ResponseWriter, r *http.Request, cur *Current) {
	cur.Reset()
	if m.fallback == nil {
		m.errorHandler(w, r, ErrNotFound)
		return
	}
	ctx := withFallbackParams(r.Context(), m.fallbackParams)
	m.fallback.ServeHTTP(w, r.WithContext(ctx))
}

func canonicalURL(r *http.Request, canonical string) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     canonical,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
		Fragment: r.URL.Fragment,
	}
	return u.String()
}

// RequireTenant creates middleware that ensures a tenant is present in the context.
// This is useful for protecting routes that require tenant context.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
