package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/multisite/pkg/cache"
	"github.com/dmitrymomot/multisite/pkg/config"
	"github.com/dmitrymomot/multisite/pkg/httpserver"
	"github.com/dmitrymomot/multisite/pkg/logger"
	"github.com/dmitrymomot/multisite/pkg/memstore"
	"github.com/dmitrymomot/multisite/pkg/pg"
	"github.com/dmitrymomot/multisite/pkg/redis"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
	tenantsvc "github.com/dmitrymomot/multisite/svc/tenant"
)

// deps holds the connections opened for a command. close releases them in
// reverse order.
type deps struct {
	store   mt.Store
	backend cache.Backend
	pool    *pgxpool.Pool
	checks  []httpserver.Check
	closers []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (a *app) connectPostgres(ctx context.Context) (*pgxpool.Pool, pg.Config, error) {
	var cfg pg.Config
	if err := config.Parse(&cfg); err != nil {
		return nil, cfg, fmt.Errorf("load postgres config: %w", err)
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return pool, cfg, nil
}

// open connects the store and the cache backend selected by the configuration.
func (a *app) open(ctx context.Context) (*deps, error) {
	d := &deps{}

	switch strings.ToLower(a.cfg.Tenant.Store) {
	case tenantsvc.StorePostgres, "":
		pool, _, err := a.connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		d.store = pg.NewStore(pool)
		d.checks = append(d.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		d.closers = append(d.closers, pool.Close)
	case tenantsvc.StoreMemory:
		a.log.WarnContext(ctx, "using in-memory tenant store, data is lost on exit")
		d.store = memstore.New()
	default:
		return nil, fmt.Errorf("%w: %q", tenantsvc.ErrUnknownStore, a.cfg.Tenant.Store)
	}

	var (
		rdb  goredis.UniversalClient
		rcfg redis.Config
	)
	if strings.EqualFold(a.cfg.Tenant.CacheBackend, cache.BackendRedis) {
		if err := config.Parse(&rcfg); err != nil {
			d.close()
			return nil, fmt.Errorf("load redis config: %w", err)
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			d.close()
			return nil, err
		}
		rdb = client
		d.checks = append(d.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		d.closers = append(d.closers, func() {
			if err := client.Close(); err != nil {
				a.log.ErrorContext(ctx, "close redis client", logger.Error(err))
			}
		})
	}

	backend, err := tenantsvc.NewBackend(a.cfg.Tenant, rdb, rcfg)
	if err != nil {
		d.close()
		return nil, err
	}
	d.backend = backend

	return d, nil
}

// service builds the write-path service on top of d.
func (a *app) service(d *deps) (*tenantsvc.Service, *mt.Cache, *mt.TenantCache) {
	opts := a.cfg.Tenant.CacheOptions(a.log)
	resolutions := mt.NewCache(d.backend, opts...)
	tenants := mt.NewTenantCache(d.store, d.backend, opts...)
	svc := tenantsvc.NewService(d.store, resolutions,
		tenantsvc.WithTenantCache(tenants),
		tenantsvc.WithLogger(a.log),
	)
	return svc, resolutions, tenants
}
