package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/memstore"
	"github.com/dmitrymomot/multisite/pkg/tenant"
)

func TestSync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates missing canonical alias", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := &tenant.Tenant{Domain: "example.com"}
		require.NoError(t, s.CreateTenant(ctx, rec))

		alias, err := tenant.Sync(ctx, s, rec)
		require.NoError(t, err)
		assert.True(t, alias.IsCanonical())
		assert.Equal(t, "example.com", alias.Domain)
		assert.Equal(t, rec.ID, alias.TenantID)
		assert.NotZero(t, alias.ID)
	})

	t.Run("rename keeps alias id", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		before, err := s.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)

		rec.Domain = "example.org"
		require.NoError(t, s.UpdateTenant(ctx, rec))
		after, err := tenant.Sync(ctx, s, rec)
		require.NoError(t, err)

		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, "example.org", after.Domain)

		aliases, err := s.FindByTenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Len(t, aliases, 1)
	})

	t.Run("unchanged domain is a no-op", func(t *testing.T) {
		t.Parallel()

		store := &mockAliasStore{}
		rec := &tenant.Tenant{ID: 1, Domain: "example.com"}
		store.On("FindCanonical", ctx, int64(1)).Return(tenant.NewCanonicalAlias(rec), nil)

		_, err := tenant.Sync(ctx, store, rec)
		require.NoError(t, err)
		store.AssertNotCalled(t, "Update")
		store.AssertNotCalled(t, "Create")
	})

	t.Run("blank domain deletes canonical alias", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")

		rec.Domain = ""
		alias, err := tenant.Sync(ctx, s, rec)
		require.NoError(t, err)
		assert.Nil(t, alias)

		aliases, err := s.FindByTenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Empty(t, aliases)
	})

	t.Run("blank domain without aliases", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := &tenant.Tenant{Name: "no domain"}
		require.NoError(t, s.CreateTenant(ctx, rec))

		_, err := tenant.Sync(ctx, s, rec)
		assert.NoError(t, err)
	})

	t.Run("blank domain with other aliases fails", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		seedAlias(t, s, rec.ID, "www.example.com", true)

		rec.Domain = ""
		_, err := tenant.Sync(ctx, s, rec)
		assert.ErrorIs(t, err, tenant.ErrMultipleMatch)

		aliases, err := s.FindByTenant(ctx, rec.ID)
		require.NoError(t, err)
		assert.Len(t, aliases, 2)
	})

	t.Run("blank domain with only a non-canonical alias fails", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := &tenant.Tenant{Name: "no domain"}
		require.NoError(t, s.CreateTenant(ctx, rec))
		seedAlias(t, s, rec.ID, "www.example.com", true)

		_, err := tenant.Sync(ctx, s, rec)
		assert.ErrorIs(t, err, tenant.ErrMultipleMatch)
	})

	t.Run("rename onto another alias fails validation", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := seedTenant(t, s, "example.com")
		seedAlias(t, s, rec.ID, "www.example.com", true)

		rec.Domain = "WWW.example.com"
		_, err := tenant.Sync(ctx, s, rec)
		assert.ErrorIs(t, err, tenant.ErrValidation)
	})
}

func TestSyncCanonical(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reports writes", func(t *testing.T) {
		t.Parallel()
		s := memstore.New()
		rec := &tenant.Tenant{Domain: "example.com", Name: "example"}
		require.NoError(t, s.CreateTenant(ctx, rec))

		alias, changed, err := tenant.SyncCanonical(ctx, s, rec)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "example.com", alias.Domain)

		_, changed, err = tenant.SyncCanonical(ctx, s, rec)
		require.NoError(t, err)
		assert.False(t, changed)

		rec.Domain = "example.org"
		_, changed, err = tenant.SyncCanonical(ctx, s, rec)
		require.NoError(t, err)
		assert.True(t, changed)

		rec.Domain = ""
		alias, changed, err = tenant.SyncCanonical(ctx, s, rec)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Nil(t, alias)

		_, changed, err = tenant.SyncCanonical(ctx, s, rec)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestSyncMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memstore.New()
	a := seedTenant(t, s, "a.example")
	b := seedTenant(t, s, "b.example")
	c := seedTenant(t, s, "c.example")

	// Change tenant domains behind the aliases' back.
	for _, rec := range []*tenant.Tenant{a, b} {
		rec.Domain = "new-" + rec.Domain
		require.NoError(t, s.UpdateTenant(ctx, rec))
	}

	updated, err := tenant.SyncMany(ctx, s, s, func(alias *tenant.Alias) bool {
		return alias.TenantID == a.ID
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = tenant.SyncMany(ctx, s, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	for _, rec := range []*tenant.Tenant{a, b, c} {
		canonical, err := s.FindCanonical(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.Domain, canonical.Domain)
	}
}

func TestSyncMissingAndAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memstore.New()
	synced := seedTenant(t, s, "synced.example")

	missing := &tenant.Tenant{Domain: "missing.example"}
	blank := &tenant.Tenant{Name: "blank"}
	require.NoError(t, s.CreateTenant(ctx, missing))
	require.NoError(t, s.CreateTenant(ctx, blank))

	synced.Domain = "renamed.example"
	require.NoError(t, s.UpdateTenant(ctx, synced))

	updated, created, err := tenant.SyncAll(ctx, s, s)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, created)

	canonical, err := s.FindCanonical(ctx, missing.ID)
	require.NoError(t, err)
	assert.Equal(t, "missing.example", canonical.Domain)

	_, err = s.FindCanonical(ctx, blank.ID)
	assert.ErrorIs(t, err, tenant.ErrNotFound)

	created, err = tenant.SyncMissing(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCheckTenantDomain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memstore.New()
	rec := seedTenant(t, s, "example.com")
	other := seedTenant(t, s, "other.com")
	seedAlias(t, s, rec.ID, "www.example.com", true)

	tests := []struct {
		name    string
		tenant  *tenant.Tenant
		wantErr bool
	}{
		{"own canonical domain", &tenant.Tenant{ID: rec.ID, Domain: "example.com"}, false},
		{"free domain", &tenant.Tenant{ID: rec.ID, Domain: "example.net"}, false},
		{"blank domain", &tenant.Tenant{ID: rec.ID}, false},
		{"own non-canonical alias", &tenant.Tenant{ID: rec.ID, Domain: "www.example.com"}, true},
		{"other tenant canonical", &tenant.Tenant{ID: other.ID, Domain: "EXAMPLE.com"}, true},
		{"new tenant on alias", &tenant.Tenant{Domain: "www.example.com"}, true},
		{"wildcard domain", &tenant.Tenant{ID: rec.ID, Domain: "*.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tenant.CheckTenantDomain(ctx, s, tt.tenant)
			if tt.wantErr {
				assert.ErrorIs(t, err, tenant.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
