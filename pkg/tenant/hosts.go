package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/multisite/pkg/netloc"
)

// MatchHost reports whether host matches one of patterns. Patterns follow the
// usual allowed-hosts syntax: "*" matches anything, ".example.com" matches
// example.com and every subdomain, anything else must match exactly. Comparison
// ignores case, a trailing dot and the port of host.
func MatchHost(host string, patterns []string) bool {
	if h, _, err := netloc.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}

	for _, p := range patterns {
		p = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(p)), ".")
		switch {
		case p == "":
			continue
		case p == netloc.Wildcard:
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}

// AllowedHosts returns extra followed by every alias domain. Extra hosts come
// first so wildcard patterns short-circuit before the aliases are needed.
func AllowedHosts(ctx context.Context, store AliasStore, extra []string) ([]string, error) {
	aliases, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alias domains: %w", err)
	}

	hosts := make([]string, 0, len(extra)+len(aliases))
	hosts = append(hosts, extra...)
	for _, a := range aliases {
		hosts = append(hosts, a.Domain)
	}
	return hosts, nil
}

// IsAllowedHost reports whether host matches an extra host or an alias domain.
// Extra hosts are checked first and the store is queried only when they miss.
func IsAllowedHost(ctx context.Context, store AliasStore, extra []string, host string) (bool, error) {
	if MatchHost(host, extra) {
		return true, nil
	}
	_, err := NewResolver(store).ResolveNetloc(ctx, host)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
