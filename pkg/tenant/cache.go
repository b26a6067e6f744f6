package tenant

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/multisite/pkg/cache"
)

// CacheKeyNamespace starts every resolution cache key.
const CacheKeyNamespace = "multisite.tenant_id"

// CachedResolution is what the middleware stores per host.
type CachedResolution struct {
	Alias           *Alias `json:"alias"`
	TenantID        int64  `json:"tenant_id"`
	CanonicalDomain string `json:"canonical_domain,omitempty"`
}

// ShouldRedirect reports whether the request must be sent to the canonical domain.
func (r *CachedResolution) ShouldRedirect() bool {
	return r.Alias != nil && r.Alias.ShouldRedirect() && r.CanonicalDomain != ""
}

type cacheOptions struct {
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// CacheOption configures Cache and TenantCache.
type CacheOption func(*cacheOptions)

// WithKeyPrefix namespaces cache keys so several deployments can share a backend.
func WithKeyPrefix(prefix string) CacheOption {
	return func(o *cacheOptions) {
		o.prefix = prefix
	}
}

// WithTTL sets the entry lifetime. Zero keeps entries until invalidated.
func WithTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = ttl
	}
}

// WithCacheLogger sets the logger used to report invalidations.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = logger
	}
}

func newCacheOptions(opts []CacheOption) cacheOptions {
	o := cacheOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Cache maps hosts to resolutions. It is shared by every request and must be
// invalidated whenever tenant domains or aliases change, see OnTenantSaved,
// OnTenantDeleted and OnAliasChanged.
type Cache struct {
	backend cache.Backend
	cacheOptions
}

// NewCache wraps backend. A nil backend disables caching.
func NewCache(backend cache.Backend, opts ...CacheOption) *Cache {
	if backend == nil {
		backend = cache.NewNoop()
	}
	return &Cache{backend: backend, cacheOptions: newCacheOptions(opts)}
}

// Key returns the cache key for a host or "host:port" value, ignoring case.
func (c *Cache) Key(host string) string {
	sum := md5.Sum([]byte(strings.ToLower(host)))
	return CacheKeyNamespace + "." + c.prefix + "." + hex.EncodeToString(sum[:])
}

// Get returns the cached resolution stored under key.
func (c *Cache) Get(ctx context.Context, key string) (*CachedResolution, bool, error) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false, errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, false, nil
	}

	var res CachedResolution
	if err := json.Unmarshal(raw, &res); err != nil {
		// A value written by an incompatible version is a miss.
		_ = c.backend.Delete(ctx, key)
		return nil, false, nil
	}
	return &res, true, nil
}

// Set stores res under key.
func (c *Cache) Set(ctx context.Context, key string, res *CachedResolution) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode cached resolution: %w", err)
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Delete drops a single entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Clear drops every entry of the backend.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// OnTenantSaved clears the cache when t's domain differs from the one it was
// loaded with. It must run in the same call as the write.
func (c *Cache) OnTenantSaved(ctx context.Context, t *Tenant) error {
	if !t.DomainChanged() {
		return nil
	}
	old, _ := t.Loaded()
	c.logger.InfoContext(ctx, "tenant domain changed, clearing resolution cache",
		slog.Int64("tenant_id", t.ID),
		slog.String("old_domain", old),
		slog.String("new_domain", t.Domain),
	)
	return c.Clear(ctx)
}

// OnTenantDeleted clears the cache.
func (c *Cache) OnTenantDeleted(ctx context.Context, id int64) error {
	c.logger.InfoContext(ctx, "tenant deleted, clearing resolution cache", slog.Int64("tenant_id", id))
	return c.Clear(ctx)
}

// OnAliasChanged clears the cache after any alias write.
func (c *Cache) OnAliasChanged(ctx context.Context, a *Alias) error {
	c.logger.DebugContext(ctx, "alias changed, clearing resolution cache", slog.String("domain", a.Domain))
	return c.Clear(ctx)
}
