package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/memstore"
	"github.com/dmitrymomot/multisite/pkg/tenant"
)

// seedTenant creates a tenant with its canonical alias.
func seedTenant(t *testing.T, s *memstore.Store, domain string) *tenant.Tenant {
	t.Helper()
	ctx := context.Background()

	rec := &tenant.Tenant{Domain: domain, Name: domain}
	require.NoError(t, s.CreateTenant(ctx, rec))
	_, err := tenant.Sync(ctx, s, rec)
	require.NoError(t, err)

	loaded, err := s.GetTenant(ctx, rec.ID)
	require.NoError(t, err)
	return loaded
}

// seedAlias adds a non-canonical alias to tenantID.
func seedAlias(t *testing.T, s *memstore.Store, tenantID int64, domain string, redirect bool) *tenant.Alias {
	t.Helper()

	a := tenant.NewAlias(tenantID, domain)
	a.RedirectToCanonical = redirect
	require.NoError(t, s.Create(context.Background(), a))
	return a
}
