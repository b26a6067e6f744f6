package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	mt "github.com/dmitrymomot/multisite/pkg/tenant"
)

// Fixture is the YAML document accepted by Seed:
//
//	tenants:
//	  - id: 1
//	    domain: example.com
//	    name: Example
//	    aliases:
//	      - domain: www.example.com
//	      - domain: "*.example.com"
//	        redirect: false
type Fixture struct {
	Tenants []FixtureTenant `yaml:"tenants"`
}

// FixtureTenant is a tenant with its non-canonical aliases.
type FixtureTenant struct {
	ID      int64          `yaml:"id"`
	Domain  string         `yaml:"domain"`
	Name    string         `yaml:"name"`
	Aliases []FixtureAlias `yaml:"aliases"`
}

// FixtureAlias is a non-canonical alias. Redirect defaults to true.
type FixtureAlias struct {
	Domain   string `yaml:"domain"`
	Redirect *bool  `yaml:"redirect"`
}

// LoadFixture decodes a fixture, rejecting unknown fields.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, errors.Join(ErrInvalidFixture, err)
	}

	for i, t := range f.Tenants {
		if t.Domain == "" && len(t.Aliases) > 0 {
			return nil, fmt.Errorf("%w: tenant #%d has aliases but no domain", ErrInvalidFixture, i+1)
		}
	}
	return &f, nil
}

// SeedResult counts the records written by Seed.
type SeedResult struct {
	Tenants int
	Aliases int
}

// Seed writes f through the service. Tenants with an id that already exists are
// updated, aliases whose domain is already taken by the same tenant are
// skipped, so seeding twice is a no-op.
func (s *Service) Seed(ctx context.Context, f *Fixture) (SeedResult, error) {
	var res SeedResult
	for _, ft := range f.Tenants {
		t, err := s.seedTenant(ctx, ft)
		if err != nil {
			return res, err
		}
		res.Tenants++

		existing, err := s.store.FindByTenant(ctx, t.ID)
		if err != nil {
			return res, fmt.Errorf("aliases of tenant %d: %w", t.ID, err)
		}
		for _, fa := range ft.Aliases {
			if hasDomain(existing, fa.Domain) {
				continue
			}
			a := mt.NewAlias(t.ID, fa.Domain)
			if fa.Redirect != nil {
				a.RedirectToCanonical = *fa.Redirect
			}
			if err := s.CreateAlias(ctx, a); err != nil {
				return res, err
			}
			res.Aliases++
		}
	}
	return res, nil
}

func (s *Service) seedTenant(ctx context.Context, ft FixtureTenant) (*mt.Tenant, error) {
	if ft.ID != 0 {
		t, err := s.store.GetTenant(ctx, ft.ID)
		switch {
		case err == nil:
			t.Domain, t.Name = ft.Domain, ft.Name
			return t, s.UpdateTenant(ctx, t)
		case !mt.IsNotFound(err):
			return nil, fmt.Errorf("load tenant %d: %w", ft.ID, err)
		}
	}

	t := &mt.Tenant{ID: ft.ID, Domain: ft.Domain, Name: ft.Name}
	return t, s.CreateTenant(ctx, t)
}

func hasDomain(aliases []*mt.Alias, domain string) bool {
	for _, a := range aliases {
		if mt.SameDomain(a.Domain, domain) {
			return true
		}
	}
	return false
}
