package tenant

import (
	"context"
	"slices"
)

// ScopedByTenant is implemented by records that belong to one or more tenants.
type ScopedByTenant interface {
	TenantIDs() []int64
}

// InScope reports whether obj belongs to tenant id.
func InScope(obj ScopedByTenant, id int64) bool {
	return slices.Contains(obj.TenantIDs(), id)
}

// FilterScoped keeps the items that belong to tenant id.
func FilterScoped[T ScopedByTenant](items []T, id int64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if InScope(item, id) {
			out = append(out, item)
		}
	}
	return out
}

// FilterScopedContext keeps the items that belong to the current tenant of ctx.
// Returns ErrNoTenantInContext when ctx carries no effective tenant.
func FilterScopedContext[T ScopedByTenant](ctx context.Context, items []T) ([]T, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return nil, ErrNoTenantInContext
	}
	return FilterScoped(items, id), nil
}
