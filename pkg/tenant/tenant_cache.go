package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/multisite/pkg/cache"
)

// TenantCacheKeyNamespace starts every tenant record cache key.
const TenantCacheKeyNamespace = "sites"

// TenantCache caches tenant records by id in front of a TenantStore.
type TenantCache struct {
	store   TenantStore
	backend cache.Backend
	cacheOptions
}

// NewTenantCache wraps store. A nil backend disables caching.
func NewTenantCache(store TenantStore, backend cache.Backend, opts ...CacheOption) *TenantCache {
	if backend == nil {
		backend = cache.NewNoop()
	}
	return &TenantCache{store: store, backend: backend, cacheOptions: newCacheOptions(opts)}
}

// Key returns the cache key of tenant id.
func (c *TenantCache) Key(id int64) string {
	return TenantCacheKeyNamespace + "." + c.prefix + "." + strconv.FormatInt(id, 10)
}

// Get returns the tenant, loading and caching it on a miss. Backend failures
// fall through to the store.
func (c *TenantCache) Get(ctx context.Context, id int64) (*Tenant, error) {
	key := c.Key(id)

	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "tenant cache read failed", "key", key, "error", err)
	}
	if ok && err == nil {
		var t Tenant
		if err := json.Unmarshal(raw, &t); err == nil {
			t.MarkLoaded()
			return &t, nil
		}
	}

	t, err := c.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, t); err != nil {
		c.logger.WarnContext(ctx, "tenant cache write failed", "key", key, "error", err)
	}
	return t, nil
}

// Refresh stores the saved record. Call it after every tenant write.
func (c *TenantCache) Refresh(ctx context.Context, t *Tenant) error {
	return c.set(ctx, t)
}

// Delete drops the record of tenant id.
func (c *TenantCache) Delete(ctx context.Context, id int64) error {
	if err := c.backend.Delete(ctx, c.Key(id)); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (c *TenantCache) set(ctx context.Context, t *Tenant) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tenant: %w", err)
	}
	if err := c.backend.Set(ctx, c.Key(t.ID), raw, c.ttl); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
