package tenant

import (
	"context"
	"log/slog"
)

// Private key types prevent collisions with other packages.
type (
	currentKey  struct{}
	aliasKey    struct{}
	tenantKey   struct{}
	fallbackKey struct{}
)

// WithCurrent stores the per-request tenant cell in ctx.
func WithCurrent(ctx context.Context, cur *Current) context.Context {
	return context.WithValue(ctx, currentKey{}, cur)
}

// CurrentFromContext returns the tenant cell stored in ctx.
func CurrentFromContext(ctx context.Context) (*Current, bool) {
	cur, ok := ctx.Value(currentKey{}).(*Current)
	return cur, ok && cur != nil
}

// CurrentFrom returns the tenant cell stored in ctx or a new unset cell, so
// callers outside a request can still call Get and receive ErrNotConfigured.
func CurrentFrom(ctx context.Context) *Current {
	if cur, ok := CurrentFromContext(ctx); ok {
		return cur
	}
	return NewCurrent()
}

// IDFromContext returns the effective current tenant id.
func IDFromContext(ctx context.Context) (int64, bool) {
	cur, ok := CurrentFromContext(ctx)
	if !ok {
		return 0, false
	}
	id, err := cur.Get()
	return id, err == nil
}

// WithAlias stores the alias the request was matched by.
func WithAlias(ctx context.Context, alias *Alias) context.Context {
	return context.WithValue(ctx, aliasKey{}, alias)
}

// AliasFromContext returns the alias the request was matched by.
func AliasFromContext(ctx context.Context) (*Alias, bool) {
	alias, ok := ctx.Value(aliasKey{}).(*Alias)
	return alias, ok && alias != nil
}

// WithTenant adds a tenant record to the context.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext retrieves the tenant record from the context. It is only present
// when the middleware was given a TenantCache.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	return t, ok && t != nil
}

// MustFromContext retrieves the tenant from the context.
// Panics if no tenant is found.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// FallbackParamsFromContext returns the static parameters configured with
// WithFallback. Only set while the fallback handler runs.
func FallbackParamsFromContext(ctx context.Context) (map[string]string, bool) {
	params, ok := ctx.Value(fallbackKey{}).(map[string]string)
	return params, ok
}

func withFallbackParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, fallbackKey{}, params)
}

// LoggerExtractor returns a ContextExtractor for the logger that extracts tenant ID from context
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.Int64("tenant_id", id), true
		}
		return slog.Attr{}, false
	}
}
