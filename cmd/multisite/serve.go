package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/multisite/pkg/config"
	"github.com/dmitrymomot/multisite/pkg/cookiedomain"
	"github.com/dmitrymomot/multisite/pkg/environment"
	"github.com/dmitrymomot/multisite/pkg/httpserver"
	"github.com/dmitrymomot/multisite/pkg/logger"
	"github.com/dmitrymomot/multisite/pkg/requestid"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
	tenantsvc "github.com/dmitrymomot/multisite/svc/tenant"
)

func serveCmd(a *app) *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP with tenant resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var httpCfg httpserver.Config
			if err := config.Parse(&httpCfg); err != nil {
				return fmt.Errorf("load http config: %w", err)
			}

			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			svc, resolutions, tenants := a.service(d)

			if seedFile != "" {
				if err := seedFromFile(cmd, svc, seedFile); err != nil {
					return err
				}
			}

			handler, err := a.router(d, resolutions, tenants)
			if err != nil {
				return err
			}

			server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(a.log))
			return server.Run(ctx, handler)
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "load a YAML fixture before serving")

	return cmd
}

// router mounts the health endpoints and the tenant-aware application routes.
func (a *app) router(d *deps, resolutions *mt.Cache, tenants *mt.TenantCache) (http.Handler, error) {
	opts, err := a.cfg.Tenant.MiddlewareOptions(d.store, a.log)
	if err != nil {
		return nil, err
	}
	opts = append(opts, mt.WithTenantCache(tenants))

	cookies, err := cookiedomain.Middleware(a.cfg.Tenant.Cookie, cookiedomain.WithLogger(a.log))
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		requestid.Middleware,
		environment.Middleware(a.env),
		mt.Middleware(mt.NewResolver(d.store), resolutions, opts...),
		cookies,
	)

	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(a.log, d.checks...))

	r.Group(func(r chi.Router) {
		r.Use(mt.RequireTenant(nil))
		r.Get("/", a.whoami)
		r.Get("/*", a.whoami)
	})

	return r, nil
}

type whoamiResponse struct {
	TenantID  int64  `json:"tenant_id"`
	Name      string `json:"name,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Canonical bool   `json:"canonical"`
	RequestID string `json:"request_id"`
}

// whoami reports the tenant the request resolved to.
func (a *app) whoami(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := whoamiResponse{RequestID: requestid.FromContext(ctx)}
	resp.TenantID, _ = mt.IDFromContext(ctx)
	if t, ok := mt.FromContext(ctx); ok {
		resp.Name, resp.Domain = t.Name, t.Domain
	}
	if alias, ok := mt.AliasFromContext(ctx); ok {
		resp.Alias, resp.Canonical = alias.Domain, alias.IsCanonical()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.log.ErrorContext(ctx, "write response", logger.Error(err))
	}
}

func seedFromFile(cmd *cobra.Command, svc *tenantsvc.Service, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()

	fixture, err := tenantsvc.LoadFixture(file)
	if err != nil {
		return err
	}
	res, err := svc.Seed(cmd.Context(), fixture)
	if err != nil {
		return err
	}

	cmd.Printf("seeded %d tenant(s) and %d alias(es)\n", res.Tenants, res.Aliases)
	return nil
}
