package tenant_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/cache"
	"github.com/dmitrymomot/multisite/pkg/memstore"
	"github.com/dmitrymomot/multisite/pkg/tenant"
)

// failingBackend fails every operation.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}

func (failingBackend) Delete(context.Context, string) error {
	return errors.New("backend down")
}

func (failingBackend) Clear(context.Context) error {
	return errors.New("backend down")
}

func TestCache_Key(t *testing.T) {
	t.Parallel()

	c := tenant.NewCache(cache.NewMemory(), tenant.WithKeyPrefix("prod"))

	sum := md5.Sum([]byte("example.com:8000"))
	assert.Equal(t, "multisite.tenant_id.prod."+hex.EncodeToString(sum[:]), c.Key("Example.COM:8000"))
	assert.Equal(t, c.Key("example.com"), c.Key("EXAMPLE.com"))
	assert.NotEqual(t, c.Key("example.com"), c.Key("example.com:8000"))

	unprefixed := tenant.NewCache(cache.NewMemory())
	assert.NotEqual(t, c.Key("example.com"), unprefixed.Key("example.com"))
}

func TestCache_GetSetClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := tenant.NewCache(cache.NewMemory())
	key := c.Key("www.example.com")

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	res := &tenant.CachedResolution{
		Alias:           &tenant.Alias{ID: 3, Domain: "www.example.com", TenantID: 1, RedirectToCanonical: true},
		TenantID:        1,
		CanonicalDomain: "example.com",
	}
	require.NoError(t, c.Set(ctx, key, res))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, got)
	assert.True(t, got.ShouldRedirect())

	require.NoError(t, c.Delete(ctx, key))
	_, ok, _ = c.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, res))
	require.NoError(t, c.Clear(ctx))
	_, ok, _ = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	backend := cache.NewMemory()
	c := tenant.NewCache(backend)
	key := c.Key("example.com")
	require.NoError(t, backend.Set(ctx, key, []byte("not json"), 0))

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_BackendErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := tenant.NewCache(failingBackend{})

	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, tenant.ErrStoreUnavailable)
	assert.ErrorIs(t, c.Set(ctx, "k", &tenant.CachedResolution{}), tenant.ErrStoreUnavailable)
	assert.ErrorIs(t, c.Clear(ctx), tenant.ErrStoreUnavailable)
}

func TestCache_Invalidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fill := func(t *testing.T, c *tenant.Cache) string {
		t.Helper()
		key := c.Key("example.com")
		require.NoError(t, c.Set(ctx, key, &tenant.CachedResolution{TenantID: 1}))
		return key
	}
	cached := func(c *tenant.Cache, key string) bool {
		_, ok, _ := c.Get(ctx, key)
		return ok
	}

	t.Run("domain change clears", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		c := tenant.NewCache(cache.NewMemory())
		key := fill(t, c)

		rec.Domain = "example.org"
		require.NoError(t, c.OnTenantSaved(ctx, rec))
		assert.False(t, cached(c, key))
	})

	t.Run("unchanged domain keeps entries", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		c := tenant.NewCache(cache.NewMemory())
		key := fill(t, c)

		rec.Name = "renamed only"
		require.NoError(t, c.OnTenantSaved(ctx, rec))
		assert.True(t, cached(c, key))
	})

	t.Run("new tenant keeps entries", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewCache(cache.NewMemory())
		key := fill(t, c)

		require.NoError(t, c.OnTenantSaved(ctx, &tenant.Tenant{ID: 9, Domain: "new.example"}))
		assert.True(t, cached(c, key))
	})

	t.Run("delete clears", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewCache(cache.NewMemory())
		key := fill(t, c)

		require.NoError(t, c.OnTenantDeleted(ctx, 1))
		assert.False(t, cached(c, key))
	})

	t.Run("alias change clears", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewCache(cache.NewMemory())
		key := fill(t, c)

		require.NoError(t, c.OnAliasChanged(ctx, &tenant.Alias{Domain: "www.example.com"}))
		assert.False(t, cached(c, key))
	})
}

func TestTenantCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("loads once and serves from cache", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		backend := cache.NewMemory()
		tc := tenant.NewTenantCache(s, backend, tenant.WithKeyPrefix("p"))

		assert.Equal(t, "sites.p.1", tc.Key(1))

		got, err := tc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", got.Domain)

		_, ok, err := backend.Get(ctx, tc.Key(rec.ID))
		require.NoError(t, err)
		assert.True(t, ok)

		// The store changes but the cached record is served until refreshed.
		rec.Name = "changed"
		require.NoError(t, s.UpdateTenant(ctx, rec))
		got, err = tc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", got.Name)

		require.NoError(t, tc.Refresh(ctx, rec))
		got, err = tc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "changed", got.Name)
		assert.False(t, got.DomainChanged())
	})

	t.Run("delete drops the record", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		tc := tenant.NewTenantCache(s, cache.NewMemory())

		_, err := tc.Get(ctx, rec.ID)
		require.NoError(t, err)

		require.NoError(t, s.DeleteTenant(ctx, rec.ID))
		require.NoError(t, tc.Delete(ctx, rec.ID))

		_, err = tc.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, tenant.ErrNotFound)
	})

	t.Run("backend failure falls through to store", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		tc := tenant.NewTenantCache(s, failingBackend{})

		got, err := tc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
	})
}
