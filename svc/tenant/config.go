package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/multisite/pkg/cache"
	"github.com/dmitrymomot/multisite/pkg/cookiedomain"
	"github.com/dmitrymomot/multisite/pkg/redis"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
)

// Store names accepted by MULTISITE_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the MULTISITE_* settings.
type Config struct {
	Store string `env:"MULTISITE_STORE" envDefault:"postgres"` // Store is postgres or memory.

	CacheBackend   string        `env:"MULTISITE_CACHE_BACKEND" envDefault:"memory"` // CacheBackend is memory, redis or noop.
	CacheKeyPrefix string        `env:"MULTISITE_CACHE_KEY_PREFIX"`                  // CacheKeyPrefix separates deployments sharing a backend.
	CacheTTL       time.Duration `env:"MULTISITE_CACHE_TTL" envDefault:"0"`          // CacheTTL of zero keeps entries until invalidated.

	FallbackURL    string            `env:"MULTISITE_FALLBACK_URL"`                     // FallbackURL receives requests for unknown hosts. Empty answers 404.
	FallbackStatus int               `env:"MULTISITE_FALLBACK_STATUS" envDefault:"302"` // FallbackStatus is the redirect status used with FallbackURL.
	FallbackParams map[string]string `env:"MULTISITE_FALLBACK_PARAMS"`                  // FallbackParams are exposed to the fallback handler, as "key:value,key:value".

	// ExtraHosts bypass alias lookup, see tenant.MatchHost.
	ExtraHosts []string `env:"MULTISITE_EXTRA_HOSTS" envSeparator:","`
	// DefaultTenantID applies when nothing else sets the tenant.
	DefaultTenantID int64 `env:"MULTISITE_DEFAULT_TENANT_ID"`
	// DefaultDomain derives the default tenant from a domain instead of an id.
	DefaultDomain string `env:"MULTISITE_DEFAULT_DOMAIN"`
	// TestHost resolves to the default tenant. Empty disables it.
	TestHost string `env:"MULTISITE_TEST_HOST"`
	// LocalDebug lets single-label hosts use the default tenant.
	LocalDebug    bool     `env:"MULTISITE_LOCAL_DEBUG"`
	FailurePolicy string   `env:"MULTISITE_FAILURE_POLICY" envDefault:"fail_fast"`
	SkipPaths     []string `env:"MULTISITE_SKIP_PATHS" envSeparator:"," envDefault:"/health,/health/ready"`

	Cookie cookiedomain.Config
}

// NewBackend returns the cache backend named by cfg.CacheBackend. rdb may be
// nil unless the redis backend is selected.
func NewBackend(cfg Config, rdb goredis.UniversalClient, rcfg redis.Config) (cache.Backend, error) {
	registry := cache.NewRegistry()
	if rdb != nil {
		registry.Register(cache.BackendRedis, redis.NewStorageFromConfig(rdb, rcfg))
	}

	name := strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if name == "" {
		name = cache.BackendMemory
	}
	if name == cache.BackendRedis && rdb == nil {
		return nil, fmt.Errorf("%w: redis cache backend needs a redis connection", mt.ErrConfiguration)
	}

	backend, err := registry.Lookup(name)
	if err != nil {
		return nil, errors.Join(mt.ErrConfiguration, err)
	}
	return backend, nil
}

// CacheOptions returns the options shared by the resolution and tenant caches.
func (cfg Config) CacheOptions(log *slog.Logger) []mt.CacheOption {
	return []mt.CacheOption{
		mt.WithKeyPrefix(cfg.CacheKeyPrefix),
		mt.WithTTL(cfg.CacheTTL),
		mt.WithCacheLogger(log),
	}
}

// MiddlewareOptions turns cfg into tenant middleware options. store is used to
// look up DefaultDomain.
func (cfg Config) MiddlewareOptions(store mt.AliasStore, log *slog.Logger) ([]mt.Option, error) {
	policy, err := mt.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	opts := []mt.Option{
		mt.WithFailurePolicy(policy),
		mt.WithExtraHosts(cfg.ExtraHosts...),
		mt.WithTestHost(cfg.TestHost),
		mt.WithLocalDebug(cfg.LocalDebug),
		mt.WithSkipPaths(cfg.SkipPaths),
		mt.WithLogger(log),
	}

	switch {
	case cfg.DefaultDomain != "" && cfg.DefaultTenantID != 0:
		return nil, fmt.Errorf("%w: set either a default tenant id or a default domain", mt.ErrConfiguration)
	case cfg.DefaultDomain != "":
		cur, err := mt.NewCurrentWithDomain(cfg.DefaultDomain, domainLookup(store))
		if err != nil {
			return nil, err
		}
		opts = append(opts, mt.WithCurrentPrototype(cur))
	case cfg.DefaultTenantID != 0:
		opts = append(opts, mt.WithDefaultTenant(cfg.DefaultTenantID))
	}

	if cfg.FallbackURL != "" {
		h, err := mt.FallbackRedirect(cfg.FallbackURL, cfg.FallbackStatus)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mt.WithFallback(h, cfg.FallbackParams))
	}

	return opts, nil
}

// domainLookup finds the tenant whose canonical alias is domain.
func domainLookup(store mt.AliasStore) mt.DomainLookup {
	return func(domain string) (int64, error) {
		aliases, err := store.FindByDomains(context.Background(), []string{domain})
		if err != nil {
			return 0, err
		}
		for _, a := range aliases {
			if a.IsCanonical() {
				return a.TenantID, nil
			}
		}
		return 0, fmt.Errorf("default domain %q: %w", domain, mt.ErrNotFound)
	}
}
