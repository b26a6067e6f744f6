package tenant_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mt "github.com/dmitrymomot/multisite/pkg/tenant"
	tenantsvc "github.com/dmitrymomot/multisite/svc/tenant"
)

func loadFixture(t *testing.T) *tenantsvc.Fixture {
	t.Helper()

	file, err := os.Open("testdata/fixture.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	f, err := tenantsvc.LoadFixture(file)
	require.NoError(t, err)
	return f
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	t.Run("decodes tenants and aliases", func(t *testing.T) {
		t.Parallel()

		f := loadFixture(t)
		require.Len(t, f.Tenants, 3)
		assert.Equal(t, int64(1), f.Tenants[0].ID)
		require.Len(t, f.Tenants[0].Aliases, 2)
		assert.Nil(t, f.Tenants[0].Aliases[0].Redirect)
		require.NotNil(t, f.Tenants[0].Aliases[1].Redirect)
		assert.False(t, *f.Tenants[0].Aliases[1].Redirect)
		assert.Empty(t, f.Tenants[2].Domain)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		f, err := tenantsvc.LoadFixture(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, f.Tenants)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()

		_, err := tenantsvc.LoadFixture(strings.NewReader("tenants:\n  - domian: example.com\n"))
		assert.ErrorIs(t, err, tenantsvc.ErrInvalidFixture)
	})

	t.Run("aliases need a tenant domain", func(t *testing.T) {
		t.Parallel()

		_, err := tenantsvc.LoadFixture(strings.NewReader("tenants:\n  - name: x\n    aliases:\n      - domain: a.example.com\n"))
		assert.ErrorIs(t, err, tenantsvc.ErrInvalidFixture)
	})
}

func TestService_Seed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("writes fixture", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		res, err := f.svc.Seed(ctx, loadFixture(t))
		require.NoError(t, err)
		assert.Equal(t, tenantsvc.SeedResult{Tenants: 3, Aliases: 2}, res)

		aliases, err := f.svc.Aliases(ctx, 1)
		require.NoError(t, err)
		require.Len(t, aliases, 3)
		assert.True(t, aliases[0].IsCanonical())
		assert.Equal(t, "example.com", aliases[0].Domain)
		assert.True(t, aliases[1].RedirectToCanonical)
		assert.False(t, aliases[2].RedirectToCanonical)

		canonical, err := f.store.FindCanonical(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "shop.example.org", canonical.Domain)

		tenants, err := f.svc.Tenants(ctx)
		require.NoError(t, err)
		require.Len(t, tenants, 3)
		assert.Equal(t, "Draft", tenants[2].Name)
	})

	t.Run("is idempotent for tenants with ids", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		fixture := &tenantsvc.Fixture{Tenants: []tenantsvc.FixtureTenant{{
			ID:      5,
			Domain:  "example.com",
			Name:    "Example",
			Aliases: []tenantsvc.FixtureAlias{{Domain: "www.example.com"}},
		}}}

		_, err := f.svc.Seed(ctx, fixture)
		require.NoError(t, err)

		fixture.Tenants[0].Domain = "example.net"
		res, err := f.svc.Seed(ctx, fixture)
		require.NoError(t, err)
		assert.Equal(t, tenantsvc.SeedResult{Tenants: 1}, res)

		got, err := f.svc.Tenant(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "example.net", got.Domain)

		aliases, err := f.svc.Aliases(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, aliases, 2)
	})

	t.Run("stops on conflicting alias", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		fixture := &tenantsvc.Fixture{Tenants: []tenantsvc.FixtureTenant{
			{Domain: "example.com"},
			{Domain: "example.org", Aliases: []tenantsvc.FixtureAlias{{Domain: "example.com"}}},
		}}

		res, err := f.svc.Seed(ctx, fixture)
		assert.ErrorIs(t, err, mt.ErrValidation)
		assert.Equal(t, 2, res.Tenants)
		assert.Zero(t, res.Aliases)
	})
}
