package tenant_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/multisite/pkg/tenant"
)

// mockAliasStore is a mock implementation of tenant.AliasStore.
type mockAliasStore struct {
	mock.Mock
}

func (m *mockAliasStore) FindByDomains(ctx context.Context, domains []string) ([]*tenant.Alias, error) {
	args := m.Called(ctx, domains)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Alias), args.Error(1)
}

func (m *mockAliasStore) Get(ctx context.Context, id int64) (*tenant.Alias, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Alias), args.Error(1)
}

func (m *mockAliasStore) List(ctx context.Context) ([]*tenant.Alias, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Alias), args.Error(1)
}

func (m *mockAliasStore) FindCanonical(ctx context.Context, tenantID int64) (*tenant.Alias, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Alias), args.Error(1)
}

func (m *mockAliasStore) FindByTenant(ctx context.Context, tenantID int64) ([]*tenant.Alias, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Alias), args.Error(1)
}

func (m *mockAliasStore) ListTenantsWithoutCanonical(ctx context.Context) ([]*tenant.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenant.Tenant), args.Error(1)
}

func (m *mockAliasStore) Create(ctx context.Context, alias *tenant.Alias) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}

func (m *mockAliasStore) Update(ctx context.Context, alias *tenant.Alias) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}

func (m *mockAliasStore) Delete(ctx context.Context, alias *tenant.Alias) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}
