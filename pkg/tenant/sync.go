package tenant

import (
	"context"
	"errors"
	"fmt"
)

// Sync makes the canonical alias of t match t.Domain: it is created when missing
// and updated in place otherwise, keeping its id. When t.Domain is empty the
// canonical alias is deleted, unless other aliases still reference the tenant,
// in which case ErrMultipleMatch is returned and nothing changes.
// The returned alias is nil when t has no domain.
func Sync(ctx context.Context, store AliasStore, t *Tenant) (*Alias, error) {
	alias, _, err := SyncCanonical(ctx, store, t)
	return alias, err
}

// SyncCanonical is Sync that also reports whether an alias was written. Any
// write changes how hosts resolve, so callers holding a resolution cache must
// clear it when changed is true.
func SyncCanonical(ctx context.Context, store AliasStore, t *Tenant) (alias *Alias, changed bool, err error) {
	if t == nil {
		return nil, false, fmt.Errorf("sync canonical alias: %w", ErrNotFound)
	}
	if t.Domain == "" {
		changed, err := syncBlankDomain(ctx, store, t)
		return nil, changed, err
	}

	alias, err = store.FindCanonical(ctx, t.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		alias = NewCanonicalAlias(t)
		if err := alias.Validate(t); err != nil {
			return nil, false, err
		}
		if err := store.Create(ctx, alias); err != nil {
			return nil, false, fmt.Errorf("create canonical alias for %q: %w", t.Domain, err)
		}
		return alias, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("find canonical alias of tenant %d: %w", t.ID, err)
	}

	if alias.Domain == t.Domain {
		return alias, false, nil
	}

	alias.Domain = t.Domain
	if err := alias.Validate(t); err != nil {
		return nil, false, err
	}
	if err := store.Update(ctx, alias); err != nil {
		return nil, false, fmt.Errorf("update canonical alias to %q: %w", t.Domain, err)
	}
	return alias, true, nil
}

func syncBlankDomain(ctx context.Context, store AliasStore, t *Tenant) (bool, error) {
	aliases, err := store.FindByTenant(ctx, t.ID)
	if err != nil {
		return false, fmt.Errorf("find aliases of tenant %d: %w", t.ID, err)
	}

	switch {
	case len(aliases) == 0:
		return false, nil
	case len(aliases) > 1 || !aliases[0].IsCanonical():
		return false, fmt.Errorf("%w: tenant %d has %d alias(es)", ErrMultipleMatch, t.ID, len(aliases))
	}

	if err := store.Delete(ctx, aliases[0]); err != nil {
		return false, fmt.Errorf("delete canonical alias %q: %w", aliases[0].Domain, err)
	}
	return true, nil
}

// SyncMany rewrites canonical aliases whose domain drifted from their tenant's
// domain. When match is not nil only the canonical aliases it accepts are
// considered. Tenants without a domain are left alone. Returns the number of
// aliases updated.
func SyncMany(ctx context.Context, aliases AliasStore, tenants TenantStore, match func(*Alias) bool) (int, error) {
	all, err := aliases.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list aliases: %w", err)
	}

	updated := 0
	for _, a := range all {
		if !a.IsCanonical() || (match != nil && !match(a)) {
			continue
		}

		t, err := tenants.GetTenant(ctx, a.TenantID)
		if err != nil {
			return updated, fmt.Errorf("load tenant %d: %w", a.TenantID, err)
		}
		if t.Domain == "" || a.Domain == t.Domain {
			continue
		}

		a.Domain = t.Domain
		if err := aliases.Update(ctx, a); err != nil {
			return updated, fmt.Errorf("update canonical alias of tenant %d: %w", t.ID, err)
		}
		updated++
	}

	return updated, nil
}

// SyncMissing creates canonical aliases for tenants that have a domain but no
// canonical alias. Returns the number of aliases created.
func SyncMissing(ctx context.Context, aliases AliasStore) (int, error) {
	missing, err := aliases.ListTenantsWithoutCanonical(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants without canonical alias: %w", err)
	}

	created := 0
	for _, t := range missing {
		if t.Domain == "" {
			continue
		}
		if _, err := Sync(ctx, aliases, t); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// SyncAll runs SyncMany over every canonical alias, then SyncMissing.
func SyncAll(ctx context.Context, aliases AliasStore, tenants TenantStore) (updated, created int, err error) {
	if updated, err = SyncMany(ctx, aliases, tenants, nil); err != nil {
		return updated, 0, err
	}
	created, err = SyncMissing(ctx, aliases)
	return updated, created, err
}

// CheckTenantDomain rejects a tenant domain that is already taken by another
// tenant's alias or by a non-canonical alias. A tenant may keep or re-use its own
// canonical domain.
func CheckTenantDomain(ctx context.Context, store AliasStore, t *Tenant) error {
	if t.Domain == "" {
		return nil
	}
	if err := ValidateDomain(t.Domain, false); err != nil {
		return err
	}

	found, err := store.FindByDomains(ctx, []string{t.Domain})
	if err != nil {
		return fmt.Errorf("check tenant domain %q: %w", t.Domain, err)
	}
	for _, a := range found {
		if !SameDomain(a.Domain, t.Domain) {
			continue
		}
		if a.TenantID == t.ID && a.IsCanonical() {
			return nil
		}
		return NewValidationError("domain", "cannot overwrite non-canonical alias %q", a.Domain)
	}
	return nil
}
