// Package tenant resolves the tenant ("site") serving a request from its host name.
//
// A tenant owns any number of aliases: host names, optionally with a port, that
// route to it. Exactly one alias per tenant with a domain is canonical and mirrors
// Tenant.Domain; Sync keeps the two in step on every tenant write. Non-canonical
// aliases may start with a wildcard label ("*.example.com", "*") and may redirect
// to the canonical domain.
//
// # Architecture
//
// The package is built around four pieces:
//
// 1. Resolver - expands the host into match candidates and finds the most specific alias
// 2. Cache - a shared host -> resolution cache, cleared whenever domains change
// 3. Current - the mutable per-request tenant id, carried in the request context
// 4. Middleware - orchestrates cache, resolver, canonical redirects and the fallback
//
// Storage is abstracted by AliasStore and TenantStore. The memstore and pg
// packages provide implementations.
//
// # Usage
//
//	import "github.com/dmitrymomot/multisite/pkg/tenant"
//
//	resolver := tenant.NewResolver(store)
//	resolutions := tenant.NewCache(cache.NewMemory(), tenant.WithKeyPrefix("prod"))
//
//	mw := tenant.Middleware(resolver, resolutions,
//		tenant.WithDefaultTenant(1),
//		tenant.WithExtraHosts(".internal.example.com"),
//		tenant.WithSkipPaths([]string{"/health"}),
//	)
//	router.Use(mw)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		id, ok := tenant.IDFromContext(r.Context())
//		if !ok {
//			http.Error(w, "no tenant", http.StatusNotFound)
//			return
//		}
//		// ...
//	}
//
// # Overrides
//
// Code that must act on behalf of another tenant overrides the current cell and
// restores it on every exit path:
//
//	cur := tenant.CurrentFrom(ctx)
//	err := cur.Do(otherTenantID, func() error {
//		return sendDigest(ctx)
//	})
//
// # Invalidation
//
// Writes to tenants or aliases must call Cache.OnTenantSaved, Cache.OnTenantDeleted
// or Cache.OnAliasChanged before returning. The svc/tenant package does this.
//
// # Errors
//
// ErrNotFound is a result state (no alias matched) rather than a failure.
// ErrStoreUnavailable wraps store and cache outages; WithFailurePolicy decides
// whether those answer 503 or are handled like unknown hosts.
package tenant
