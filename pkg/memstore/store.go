package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/cases"

	"github.com/dmitrymomot/multisite/pkg/tenant"
)

// Store keeps tenants and aliases in maps guarded by a RWMutex. Records are
// copied on the way in and out.
type Store struct {
	mu           sync.RWMutex
	tenants      map[int64]*tenant.Tenant
	aliases      map[int64]*tenant.Alias
	nextTenantID int64
	nextAliasID  int64
}

var _ tenant.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		tenants: make(map[int64]*tenant.Tenant),
		aliases: make(map[int64]*tenant.Alias),
	}
}

// fold maps a domain to its case-insensitive comparison form. A Caser is not safe
// for concurrent use, so one is created per call.
func fold(domain string) string {
	return cases.Fold().String(domain)
}

func loaded(t *tenant.Tenant) *tenant.Tenant {
	c := t.Clone()
	c.MarkLoaded()
	return c
}

// GetTenant implements tenant.TenantStore.
func (s *Store) GetTenant(_ context.Context, id int64) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %d: %w", id, tenant.ErrNotFound)
	}
	return loaded(t), nil
}

// ListTenants returns tenants ordered by id.
func (s *Store) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, loaded(t))
	}
	sortTenants(out)
	return out, nil
}

// CreateTenant assigns an id when t.ID is zero.
func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == 0 {
		s.nextTenantID++
		t.ID = s.nextTenantID
	} else if _, exists := s.tenants[t.ID]; exists {
		return tenant.NewValidationError("id", "tenant %d already exists", t.ID)
	}
	s.nextTenantID = max(s.nextTenantID, t.ID)

	s.tenants[t.ID] = t.Clone()
	return nil
}

// UpdateTenant replaces the stored record. The load-time state of t is left
// untouched so callers can still detect a domain change afterwards.
func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return fmt.Errorf("tenant %d: %w", t.ID, tenant.ErrNotFound)
	}
	s.tenants[t.ID] = t.Clone()
	return nil
}

// DeleteTenant removes the tenant and its aliases.
func (s *Store) DeleteTenant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return fmt.Errorf("tenant %d: %w", id, tenant.ErrNotFound)
	}
	delete(s.tenants, id)
	for aid, a := range s.aliases {
		if a.TenantID == id {
			delete(s.aliases, aid)
		}
	}
	return nil
}

// FindByDomains implements tenant.AliasStore.
func (s *Store) FindByDomains(_ context.Context, domains []string) ([]*tenant.Alias, error) {
	want := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		want[fold(d)] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*tenant.Alias
	for _, a := range s.aliases {
		if _, ok := want[fold(a.Domain)]; ok {
			out = append(out, a.Clone())
		}
	}
	sortAliases(out)
	return out, nil
}

// Get returns the alias with the given id.
func (s *Store) Get(_ context.Context, id int64) (*tenant.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.aliases[id]
	if !ok {
		return nil, fmt.Errorf("alias %d: %w", id, tenant.ErrNotFound)
	}
	return a.Clone(), nil
}

// List returns every alias ordered by id.
func (s *Store) List(_ context.Context) ([]*tenant.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		out = append(out, a.Clone())
	}
	sortAliases(out)
	return out, nil
}

// FindCanonical returns the canonical alias of a tenant.
func (s *Store) FindCanonical(_ context.Context, tenantID int64) (*tenant.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.aliases {
		if a.TenantID == tenantID && a.IsCanonical() {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("canonical alias of tenant %d: %w", tenantID, tenant.ErrNotFound)
}

// FindByTenant returns the aliases of a tenant ordered by id.
func (s *Store) FindByTenant(_ context.Context, tenantID int64) ([]*tenant.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*tenant.Alias
	for _, a := range s.aliases {
		if a.TenantID == tenantID {
			out = append(out, a.Clone())
		}
	}
	sortAliases(out)
	return out, nil
}

// ListTenantsWithoutCanonical implements tenant.AliasStore.
func (s *Store) ListTenantsWithoutCanonical(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hasCanonical := make(map[int64]bool, len(s.tenants))
	for _, a := range s.aliases {
		if a.IsCanonical() {
			hasCanonical[a.TenantID] = true
		}
	}

	var out []*tenant.Tenant
	for id, t := range s.tenants {
		if !hasCanonical[id] {
			out = append(out, loaded(t))
		}
	}
	sortTenants(out)
	return out, nil
}

// Create validates and inserts a, assigning its id.
func (s *Store) Create(_ context.Context, a *tenant.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(a); err != nil {
		return err
	}
	s.nextAliasID++
	a.ID = s.nextAliasID
	s.aliases[a.ID] = a.Clone()
	return nil
}

// Update validates and replaces the stored alias.
func (s *Store) Update(_ context.Context, a *tenant.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[a.ID]; !ok {
		return fmt.Errorf("alias %d: %w", a.ID, tenant.ErrNotFound)
	}
	if err := s.checkLocked(a); err != nil {
		return err
	}
	s.aliases[a.ID] = a.Clone()
	return nil
}

// Delete removes the alias with a.ID.
func (s *Store) Delete(_ context.Context, a *tenant.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aliases[a.ID]; !ok {
		return fmt.Errorf("alias %d: %w", a.ID, tenant.ErrNotFound)
	}
	delete(s.aliases, a.ID)
	return nil
}

// checkLocked enforces the constraints the SQL schema declares.
func (s *Store) checkLocked(a *tenant.Alias) error {
	owner, ok := s.tenants[a.TenantID]
	if !ok {
		return tenant.NewValidationError("tenant_id", "tenant %d does not exist", a.TenantID)
	}
	if err := a.Validate(owner); err != nil {
		return err
	}

	domain := fold(a.Domain)
	for id, other := range s.aliases {
		if id == a.ID {
			continue
		}
		if fold(other.Domain) == domain {
			return tenant.NewValidationError("domain", "alias with domain %q already exists", other.Domain)
		}
		if a.IsCanonical() && other.IsCanonical() && other.TenantID == a.TenantID {
			return tenant.NewValidationError("is_canonical", "tenant %d already has a canonical alias", a.TenantID)
		}
	}
	return nil
}

func sortAliases(aliases []*tenant.Alias) {
	slices.SortFunc(aliases, func(a, b *tenant.Alias) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortTenants(tenants []*tenant.Tenant) {
	slices.SortFunc(tenants, func(a, b *tenant.Tenant) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
