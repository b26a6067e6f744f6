package tenant

import "context"

// AliasStore persists aliases. Domain lookups are case-insensitive.
//
// Create and Update must reject a domain that collides case-insensitively with
// another alias and a second canonical alias for the same tenant, returning an
// error matching ErrValidation. Lookups of a single record return ErrNotFound.
type AliasStore interface {
	// FindByDomains returns every alias whose domain equals one of domains,
	// ignoring case, in a single round trip.
	FindByDomains(ctx context.Context, domains []string) ([]*Alias, error)
	Get(ctx context.Context, id int64) (*Alias, error)
	List(ctx context.Context) ([]*Alias, error)
	FindCanonical(ctx context.Context, tenantID int64) (*Alias, error)
	FindByTenant(ctx context.Context, tenantID int64) ([]*Alias, error)
	// ListTenantsWithoutCanonical returns tenants that have no canonical alias.
	ListTenantsWithoutCanonical(ctx context.Context) ([]*Tenant, error)
	Create(ctx context.Context, alias *Alias) error
	Update(ctx context.Context, alias *Alias) error
	Delete(ctx context.Context, alias *Alias) error
}

// TenantStore persists tenants. Returned records have MarkLoaded called.
type TenantStore interface {
	GetTenant(ctx context.Context, id int64) (*Tenant, error)
	ListTenants(ctx context.Context) ([]*Tenant, error)
	CreateTenant(ctx context.Context, t *Tenant) error
	UpdateTenant(ctx context.Context, t *Tenant) error
	DeleteTenant(ctx context.Context, id int64) error
}

// Store combines both stores, which is what the shipped adapters implement.
type Store interface {
	AliasStore
	TenantStore
}
