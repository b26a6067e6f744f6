// Package httpserver runs an http.Handler with graceful shutdown.
//
// A Server binds its listener up front, so address errors surface from Run
// immediately, and shuts down when the context passed to Run is cancelled.
// The CLI wires it to signal.NotifyContext:
//
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// LivenessHandler and ReadinessHandler back the /health endpoints. Readiness
// runs named checks such as pg.Healthcheck and redis.Healthcheck.
package httpserver
