package tenant

import (
	"strconv"
	"strings"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// MaxDomainLength bounds Alias.Domain and Tenant.Domain.
const MaxDomainLength = 100

// Alias maps a host name (optionally with port) to a tenant.
//
// Canonical is tri-state: nil means a plain alias, true marks the single alias that
// mirrors the tenant's domain. A non-nil false is rejected by Validate so that the
// storage uniqueness constraint on (canonical, tenant) only covers canonical rows.
type Alias struct {
	ID                  int64  `json:"id"`
	Domain              string `json:"domain"`
	TenantID            int64  `json:"tenant_id"`
	Canonical           *bool  `json:"is_canonical,omitempty"`
	RedirectToCanonical bool   `json:"redirect_to_canonical"`
}

// NewAlias returns a non-canonical alias that redirects to the canonical domain.
func NewAlias(tenantID int64, domain string) *Alias {
	return &Alias{
		Domain:              domain,
		TenantID:            tenantID,
		RedirectToCanonical: true,
	}
}

// NewCanonicalAlias returns the canonical alias for t.
func NewCanonicalAlias(t *Tenant) *Alias {
	return &Alias{
		Domain:              t.Domain,
		TenantID:            t.ID,
		Canonical:           Canonical(),
		RedirectToCanonical: true,
	}
}

// Canonical returns a pointer to true for Alias.Canonical.
func Canonical() *bool {
	v := true
	return &v
}

// IsCanonical reports whether the alias is the tenant's canonical one.
func (a *Alias) IsCanonical() bool {
	return a.Canonical != nil && *a.Canonical
}

// ShouldRedirect reports whether requests matched by this alias are sent to the
// canonical domain.
func (a *Alias) ShouldRedirect() bool {
	return !a.IsCanonical() && a.RedirectToCanonical
}

// Clone returns a deep copy.
func (a *Alias) Clone() *Alias {
	if a == nil {
		return nil
	}
	c := *a
	if a.Canonical != nil {
		v := *a.Canonical
		c.Canonical = &v
	}
	return &c
}

func (a *Alias) String() string {
	return a.Domain + " -> " + strconv.FormatInt(a.TenantID, 10)
}

// Validate checks field-level invariants. When owner is not nil, a canonical alias
// must carry exactly the owner's domain.
// Uniqueness is checked by stores.
func (a *Alias) Validate(owner *Tenant) error {
	if a.Canonical != nil && !*a.Canonical {
		return NewValidationError("is_canonical", "%v must be true or unset", *a.Canonical)
	}
	if a.TenantID == 0 {
		return NewValidationError("tenant_id", "is required")
	}
	if err := ValidateDomain(a.Domain, !a.IsCanonical()); err != nil {
		return err
	}
	if owner != nil && a.IsCanonical() && a.Domain != owner.Domain {
		return NewValidationError("domain", "does not match tenant domain %q", owner.Domain)
	}
	return nil
}

// ValidateDomain checks that domain is "host" or "host:port". Leading wildcard
// labels are accepted only when allowWildcard is set: "*", "*:8000", "*.example.com".
func ValidateDomain(domain string, allowWildcard bool) error {
	if domain == "" {
		return NewValidationError("domain", "is required")
	}
	if len(domain) > MaxDomainLength {
		return NewValidationError("domain", "must be at most %d characters", MaxDomainLength)
	}

	rest := domain
	if strings.HasPrefix(rest, netloc.Wildcard) {
		if !allowWildcard {
			return NewValidationError("domain", "wildcards are not allowed in %q", domain)
		}
		rest = strings.TrimPrefix(rest, netloc.Wildcard)
		switch {
		case rest == "":
			return nil
		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
		case strings.HasPrefix(rest, ":"):
			rest = "wildcard" + rest
		default:
			return NewValidationError("domain", "invalid wildcard in %q", domain)
		}
	}
	if strings.Contains(rest, netloc.Wildcard) {
		return NewValidationError("domain", "wildcards are only allowed as the leading label in %q", domain)
	}

	if _, _, err := netloc.SplitHostPort(rest); err != nil {
		return NewValidationError("domain", "%q is not a valid host name", domain)
	}
	return nil
}

// SameDomain compares domains the way uniqueness is enforced: case-insensitively.
func SameDomain(a, b string) bool {
	return strings.EqualFold(a, b)
}
