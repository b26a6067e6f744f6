package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/cache"
	"github.com/dmitrymomot/multisite/pkg/memstore"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
	tenantsvc "github.com/dmitrymomot/multisite/svc/tenant"
)

type fixture struct {
	store       *memstore.Store
	backend     *cache.Memory
	resolutions *mt.Cache
	tenants     *mt.TenantCache
	svc         *tenantsvc.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{store: memstore.New(), backend: cache.NewMemory()}
	f.resolutions = mt.NewCache(f.backend)
	f.tenants = mt.NewTenantCache(f.store, f.backend)
	f.svc = tenantsvc.NewService(f.store, f.resolutions, tenantsvc.WithTenantCache(f.tenants))
	return f
}

// warm puts a resolution for host in the cache and returns its key.
func (f *fixture) warm(t *testing.T, host string) string {
	t.Helper()

	key := f.resolutions.Key(host)
	require.NoError(t, f.resolutions.Set(context.Background(), key, &mt.CachedResolution{TenantID: 1}))
	return key
}

func (f *fixture) cached(t *testing.T, key string) bool {
	t.Helper()

	_, ok, err := f.resolutions.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

func (f *fixture) createTenant(t *testing.T, domain string) *mt.Tenant {
	t.Helper()

	rec := &mt.Tenant{Domain: domain, Name: domain}
	require.NoError(t, f.svc.CreateTenant(context.Background(), rec))
	return rec
}

func TestService_CreateTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates canonical alias", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.createTenant(t, "example.com")
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.DomainChanged())

		alias, err := f.store.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", alias.Domain)

		got, err := f.svc.Tenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", got.Domain)
	})

	t.Run("without domain has no alias", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.createTenant(t, "")
		aliases, err := f.svc.Aliases(ctx, rec.ID)
		require.NoError(t, err)
		assert.Empty(t, aliases)
	})

	t.Run("rejects domain of a non-canonical alias", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		owner := f.createTenant(t, "example.com")
		require.NoError(t, f.svc.CreateAlias(ctx, mt.NewAlias(owner.ID, "www.example.com")))

		err := f.svc.CreateTenant(ctx, &mt.Tenant{Domain: "WWW.example.com"})
		assert.ErrorIs(t, err, mt.ErrValidation)

		tenants, err := f.svc.Tenants(ctx)
		require.NoError(t, err)
		assert.Len(t, tenants, 1)
	})

	t.Run("rejects invalid domain", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.svc.CreateTenant(ctx, &mt.Tenant{Domain: "*.example.com"})
		assert.ErrorIs(t, err, mt.ErrValidation)
	})
	t.Run("create tenant shadowing a wildcard alias clears cache", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		catchAll := f.createTenant(t, "example.com")
		wildcard := mt.NewAlias(catchAll.ID, "*")
		wildcard.RedirectToCanonical = false
		require.NoError(t, f.svc.CreateAlias(ctx, wildcard))

		h := mt.Middleware(mt.NewResolver(f.store), f.resolutions)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, _ := mt.IDFromContext(r.Context())
				_, _ = w.Write([]byte(strconv.FormatInt(id, 10)))
			}),
		)
		resolve := func(host string) string {
			req := httptest.NewRequest(http.MethodGet, "http://"+host+"/", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			return w.Body.String()
		}

		require.Equal(t, strconv.FormatInt(catchAll.ID, 10), resolve("new.com"))
		require.True(t, f.cached(t, f.resolutions.Key("new.com")))

		rec := f.createTenant(t, "new.com")
		assert.False(t, f.cached(t, f.resolutions.Key("new.com")))
		assert.Equal(t, strconv.FormatInt(rec.ID, 10), resolve("new.com"))
	})
}

func TestService_UpdateTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rename moves canonical alias and clears cache", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		before, err := f.store.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)
		key := f.warm(t, "example.com")

		rec.Domain = "example.org"
		require.NoError(t, f.svc.UpdateTenant(ctx, rec))

		after, err := f.store.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "example.org", after.Domain)
		assert.False(t, f.cached(t, key))
		assert.False(t, rec.DomainChanged())

		got, err := f.svc.Tenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.org", got.Domain)
	})

	t.Run("record built by hand is compared with the stored one", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		key := f.warm(t, "example.com")

		detached := &mt.Tenant{ID: rec.ID, Domain: "example.net", Name: "renamed"}
		require.NoError(t, f.svc.UpdateTenant(ctx, detached))
		assert.False(t, f.cached(t, key))

		stored, err := f.store.GetTenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.net", stored.Domain)
		assert.Equal(t, "renamed", stored.Name)
	})

	t.Run("name change keeps cache", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		key := f.warm(t, "example.com")

		rec.Name = "Example Inc"
		require.NoError(t, f.svc.UpdateTenant(ctx, rec))
		assert.True(t, f.cached(t, key))

		got, err := f.svc.Tenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Example Inc", got.Name)
	})

	t.Run("clearing domain removes canonical alias", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")

		rec.Domain = ""
		require.NoError(t, f.svc.UpdateTenant(ctx, rec))

		_, err := f.store.FindCanonical(ctx, rec.ID)
		assert.ErrorIs(t, err, mt.ErrNotFound)
	})

	t.Run("clearing domain with other aliases fails before writing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		require.NoError(t, f.svc.CreateAlias(ctx, mt.NewAlias(rec.ID, "www.example.com")))

		rec.Domain = ""
		err := f.svc.UpdateTenant(ctx, rec)
		assert.ErrorIs(t, err, mt.ErrMultipleMatch)

		stored, err := f.store.GetTenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "example.com", stored.Domain)
	})

	t.Run("missing tenant", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.svc.UpdateTenant(ctx, &mt.Tenant{ID: 42, Domain: "example.com"})
		assert.ErrorIs(t, err, mt.ErrNotFound)
	})
}

func TestService_DeleteTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes tenant and aliases and clears caches", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		require.NoError(t, f.svc.CreateAlias(ctx, mt.NewAlias(rec.ID, "www.example.com")))
		_, err := f.svc.Tenant(ctx, rec.ID)
		require.NoError(t, err)
		key := f.warm(t, "example.com")

		require.NoError(t, f.svc.DeleteTenant(ctx, rec.ID))

		assert.False(t, f.cached(t, key))
		_, err = f.svc.Tenant(ctx, rec.ID)
		assert.ErrorIs(t, err, mt.ErrNotFound)
		aliases, err := f.svc.Aliases(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, aliases)
	})

	t.Run("missing tenant", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		assert.ErrorIs(t, f.svc.DeleteTenant(ctx, 7), mt.ErrNotFound)
	})
}

func TestService_Aliases(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create clears cache", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		key := f.warm(t, "www.example.com")

		a := mt.NewAlias(rec.ID, "www.example.com")
		require.NoError(t, f.svc.CreateAlias(ctx, a))
		assert.NotZero(t, a.ID)
		assert.False(t, f.cached(t, key))

		got, err := f.svc.Alias(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "www.example.com", got.Domain)
	})

	t.Run("canonical aliases are managed by the tenant", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		canonical, err := f.store.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)

		err = f.svc.CreateAlias(ctx, mt.NewCanonicalAlias(rec))
		assert.ErrorIs(t, err, mt.ErrValidation)

		err = f.svc.DeleteAlias(ctx, canonical.ID)
		assert.ErrorIs(t, err, mt.ErrValidation)

		canonical.Canonical = nil
		err = f.svc.UpdateAlias(ctx, canonical)
		assert.ErrorIs(t, err, mt.ErrValidation)
	})

	t.Run("update and delete clear cache", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")
		a := mt.NewAlias(rec.ID, "www.example.com")
		require.NoError(t, f.svc.CreateAlias(ctx, a))

		key := f.warm(t, "www.example.com")
		a.RedirectToCanonical = false
		require.NoError(t, f.svc.UpdateAlias(ctx, a))
		assert.False(t, f.cached(t, key))

		key = f.warm(t, "www.example.com")
		require.NoError(t, f.svc.DeleteAlias(ctx, a.ID))
		assert.False(t, f.cached(t, key))

		aliases, err := f.svc.Aliases(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, aliases, 1)
		assert.True(t, aliases[0].IsCanonical())
	})

	t.Run("duplicate domain is rejected case-insensitively", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.createTenant(t, "example.com")

		err := f.svc.CreateAlias(ctx, mt.NewAlias(rec.ID, "EXAMPLE.com"))
		assert.ErrorIs(t, err, mt.ErrValidation)
	})
}

func TestService_SyncAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	drifted := f.createTenant(t, "example.com")
	drifted.Domain = "example.org"
	require.NoError(t, f.store.UpdateTenant(ctx, drifted))

	missing := &mt.Tenant{Domain: "example.net"}
	require.NoError(t, f.store.CreateTenant(ctx, missing))
	key := f.warm(t, "example.com")

	res, err := f.svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, tenantsvc.SyncResult{Updated: 1, Created: 1}, res)
	assert.False(t, f.cached(t, key))

	hosts, err := f.svc.AllowedHosts(ctx, []string{"localhost"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"localhost", "example.org", "example.net"}, hosts)

	ok, err := mt.IsAllowedHost(ctx, f.store, []string{".internal.example.com"}, "api.internal.example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mt.IsAllowedHost(ctx, f.store, nil, "EXAMPLE.net")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mt.IsAllowedHost(ctx, f.store, nil, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
