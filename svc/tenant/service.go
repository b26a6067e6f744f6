package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/multisite/pkg/logger"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
)

// Service is the write path for tenants and aliases. Every write keeps the
// canonical alias in sync and invalidates the caches before returning, so the
// next request observes the change.
type Service struct {
	store   mt.Store
	cache   *mt.Cache
	tenants *mt.TenantCache
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTenantCache refreshes tc on tenant writes.
func WithTenantCache(tc *mt.TenantCache) ServiceOption {
	return func(s *Service) { s.tenants = tc }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewService returns a Service writing to store. A nil cache disables
// resolution cache invalidation.
func NewService(store mt.Store, cache *mt.Cache, opts ...ServiceOption) *Service {
	if cache == nil {
		cache = mt.NewCache(nil)
	}
	s := &Service{store: store, cache: cache, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tenant returns the tenant with id, through the tenant cache when configured.
func (s *Service) Tenant(ctx context.Context, id int64) (*mt.Tenant, error) {
	if s.tenants != nil {
		return s.tenants.Get(ctx, id)
	}
	return s.store.GetTenant(ctx, id)
}

// Tenants lists all tenants.
func (s *Service) Tenants(ctx context.Context) ([]*mt.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// CreateTenant stores t and creates its canonical alias.
func (s *Service) CreateTenant(ctx context.Context, t *mt.Tenant) error {
	if err := s.validateTenant(ctx, t); err != nil {
		return err
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	if err := s.afterSave(ctx, t); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "tenant created", logger.TenantID(t.ID), logger.Domain(t.Domain))
	return nil
}

// UpdateTenant stores t and moves its canonical alias to t.Domain. A record not
// obtained from the store is compared against the stored one to detect a
// domain change.
func (s *Service) UpdateTenant(ctx context.Context, t *mt.Tenant) error {
	if _, ok := t.Loaded(); !ok {
		prev, err := s.store.GetTenant(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("load tenant %d: %w", t.ID, err)
		}
		prev.Domain, prev.Name = t.Domain, t.Name
		*t = *prev
	}

	if err := s.validateTenant(ctx, t); err != nil {
		return err
	}
	if err := s.checkClearDomain(ctx, t); err != nil {
		return err
	}
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return fmt.Errorf("update tenant %d: %w", t.ID, err)
	}
	return s.afterSave(ctx, t)
}

// DeleteTenant removes the tenant and its aliases.
func (s *Service) DeleteTenant(ctx context.Context, id int64) error {
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return fmt.Errorf("delete tenant %d: %w", id, err)
	}

	var errs []error
	if err := s.cache.OnTenantDeleted(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if s.tenants != nil {
		if err := s.tenants.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalidate caches for tenant %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "tenant deleted", logger.TenantID(id))
	return nil
}

// validateTenant checks the domain and refuses to take over another alias.
func (s *Service) validateTenant(ctx context.Context, t *mt.Tenant) error {
	if t.Domain == "" {
		return nil
	}
	return mt.CheckTenantDomain(ctx, s.store, t)
}

// checkClearDomain refuses to blank the domain of a tenant that still has
// non-canonical aliases, before anything is written.
func (s *Service) checkClearDomain(ctx context.Context, t *mt.Tenant) error {
	if t.Domain != "" {
		return nil
	}
	aliases, err := s.store.FindByTenant(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("aliases of tenant %d: %w", t.ID, err)
	}
	for _, a := range aliases {
		if !a.IsCanonical() {
			return fmt.Errorf("tenant %d still has alias %q: %w", t.ID, a.Domain, mt.ErrMultipleMatch)
		}
	}
	return nil
}

// afterSave runs the canonical sync and the cache hooks, then marks t as
// loaded with its new domain. A canonical alias written for a new tenant can
// shadow a wildcard alias of another tenant, so it clears the cache too.
func (s *Service) afterSave(ctx context.Context, t *mt.Tenant) error {
	canonical, changed, err := mt.SyncCanonical(ctx, s.store, t)
	if err != nil {
		return fmt.Errorf("sync canonical alias: %w", err)
	}

	switch {
	case t.DomainChanged():
		err = s.cache.OnTenantSaved(ctx, t)
	case changed && canonical != nil:
		err = s.cache.OnAliasChanged(ctx, canonical)
	case changed:
		err = s.cache.Clear(ctx)
	}
	if err != nil {
		return fmt.Errorf("invalidate resolution cache: %w", err)
	}
	t.MarkLoaded()
	if s.tenants != nil {
		if err := s.tenants.Refresh(ctx, t); err != nil {
			return fmt.Errorf("refresh tenant cache: %w", err)
		}
	}
	return nil
}

// Alias returns the alias with id.
func (s *Service) Alias(ctx context.Context, id int64) (*mt.Alias, error) {
	return s.store.Get(ctx, id)
}

// Aliases lists aliases, all of them when tenantID is zero.
func (s *Service) Aliases(ctx context.Context, tenantID int64) ([]*mt.Alias, error) {
	if tenantID == 0 {
		return s.store.List(ctx)
	}
	return s.store.FindByTenant(ctx, tenantID)
}

// CreateAlias adds a non-canonical alias. Canonical aliases are managed
// through the tenant's domain.
func (s *Service) CreateAlias(ctx context.Context, a *mt.Alias) error {
	if a.IsCanonical() {
		return mt.NewValidationError("is_canonical", "canonical aliases follow the tenant domain")
	}
	if err := s.store.Create(ctx, a); err != nil {
		return fmt.Errorf("create alias %q: %w", a.Domain, err)
	}
	if err := s.cache.OnAliasChanged(ctx, a); err != nil {
		return fmt.Errorf("invalidate resolution cache: %w", err)
	}

	s.logger.InfoContext(ctx, "alias created",
		logger.AliasID(a.ID), logger.Domain(a.Domain), logger.TenantID(a.TenantID))
	return nil
}

// UpdateAlias stores a. The canonical flag cannot be changed this way.
func (s *Service) UpdateAlias(ctx context.Context, a *mt.Alias) error {
	prev, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load alias %d: %w", a.ID, err)
	}
	if prev.IsCanonical() != a.IsCanonical() {
		return mt.NewValidationError("is_canonical", "cannot change whether alias %q is canonical", prev.Domain)
	}

	if err := s.store.Update(ctx, a); err != nil {
		return fmt.Errorf("update alias %d: %w", a.ID, err)
	}
	if err := s.cache.OnAliasChanged(ctx, a); err != nil {
		return fmt.Errorf("invalidate resolution cache: %w", err)
	}
	return nil
}

// DeleteAlias removes a non-canonical alias.
func (s *Service) DeleteAlias(ctx context.Context, id int64) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load alias %d: %w", id, err)
	}
	if a.IsCanonical() {
		return mt.NewValidationError("is_canonical", "clear the tenant domain to remove alias %q", a.Domain)
	}

	if err := s.store.Delete(ctx, a); err != nil {
		return fmt.Errorf("delete alias %d: %w", id, err)
	}
	if err := s.cache.OnAliasChanged(ctx, a); err != nil {
		return fmt.Errorf("invalidate resolution cache: %w", err)
	}

	s.logger.InfoContext(ctx, "alias deleted", logger.AliasID(id), logger.Domain(a.Domain))
	return nil
}

// SyncResult counts the canonical aliases touched by SyncAll.
type SyncResult struct {
	Updated int
	Created int
}

// SyncAll repairs canonical aliases for every tenant and clears the cache.
func (s *Service) SyncAll(ctx context.Context) (SyncResult, error) {
	updated, created, err := mt.SyncAll(ctx, s.store, s.store)
	res := SyncResult{Updated: updated, Created: created}
	if err != nil {
		return res, err
	}
	if err := s.cache.Clear(ctx); err != nil {
		return res, fmt.Errorf("clear resolution cache: %w", err)
	}

	s.logger.InfoContext(ctx, "canonical aliases synced",
		slog.Int("updated", updated), slog.Int("created", created))
	return res, nil
}

// AllowedHosts returns the hosts the service answers for.
func (s *Service) AllowedHosts(ctx context.Context, extra []string) ([]string, error) {
	return mt.AllowedHosts(ctx, s.store, extra)
}
