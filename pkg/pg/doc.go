// Package pg stores tenants and aliases in PostgreSQL.
//
// Connect opens a pgx pool with retries, Migrate applies the embedded goose
// migrations that create the multisite_tenant and multisite_alias tables, and
// Store implements tenant.Store on top of them with queries built by squirrel.
//
// Alias domains are unique regardless of case through a unique index on
// lower(domain), and each tenant holds at most one canonical alias through a
// unique (is_canonical, tenant_id) constraint where non-canonical rows store
// NULL. Constraint violations are reported as tenant.ErrValidation, missing
// rows as tenant.ErrNotFound and connectivity failures as
// tenant.ErrStoreUnavailable.
//
// Usage:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
//	store := pg.NewStore(pool)
package pg
