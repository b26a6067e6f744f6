package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// Resolver finds the alias that serves a host.
type Resolver struct {
	store AliasStore
}

// NewResolver creates a resolver over store.
func NewResolver(store AliasStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the most specific alias matching host and port. Exact
// "host:port" wins over "host", which wins over wildcards, shorter wildcards
// losing to longer ones. The store is queried once regardless of host depth.
// A port <= 0 means none. Returns ErrNotFound when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, host string, port int) (*Alias, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" || strings.Contains(host, netloc.Wildcard) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	// IPv6 literals are stored bracketed, like in a Host header.
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") && netloc.IsIP(host) {
		host = "[" + host + "]"
	}

	candidates, err := netloc.Expand(host, port)
	if err != nil {
		return nil, err
	}

	aliases, err := r.store.FindByDomains(ctx, candidates)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if len(aliases) == 0 {
		return nil, ErrNotFound
	}

	byDomain := make(map[string]*Alias, len(aliases))
	for _, a := range aliases {
		byDomain[strings.ToLower(a.Domain)] = a
	}
	for _, c := range candidates {
		if a, ok := byDomain[c]; ok {
			return a, nil
		}
	}

	return nil, ErrNotFound
}

// ResolveNetloc parses a raw "host[:port]" value and resolves it.
func (r *Resolver) ResolveNetloc(ctx context.Context, raw string) (*Alias, error) {
	host, port, err := netloc.SplitHostPort(raw)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, host, port)
}

// CanonicalDomain returns the domain of the canonical alias of a's tenant.
func (r *Resolver) CanonicalDomain(ctx context.Context, a *Alias) (string, error) {
	if a.IsCanonical() {
		return a.Domain, nil
	}
	canonical, err := r.store.FindCanonical(ctx, a.TenantID)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", ErrNotFound
	case err != nil:
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	return canonical.Domain, nil
}
