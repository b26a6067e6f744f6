// Package tenant composes the multisite packages into an application service.
//
// Service is the write path: it stores tenants and aliases, keeps each tenant's
// canonical alias in step with its domain and invalidates the resolution and
// tenant caches in the same call. Config carries the MULTISITE_* environment
// settings and turns them into cache backends and middleware options. Seed
// loads YAML fixtures for local setups and tests.
//
//	cfg, err := config.Parse[tenant.Config]()
//	backend, err := tenant.NewBackend(cfg, nil, redis.Config{})
//	resolutions := mt.NewCache(backend, cfg.CacheOptions(log)...)
//	svc := tenant.NewService(store, resolutions, tenant.WithLogger(log))
//
//	t := &mt.Tenant{Domain: "example.com", Name: "Example"}
//	err = svc.CreateTenant(ctx, t) // also creates the canonical alias
package tenant
