// Package environment propagates the application environment (development,
// staging, production, test) through context.Context, HTTP requests and logs.
//
// The multisite server sets it once from APP_ENV with Middleware. The tenant
// middleware reads it to decide whether single-label hosts such as "localhost"
// may fall back to the default tenant, which is only allowed in development.
//
// # Usage
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	handler = environment.Middleware(env)(handler)
//
//	if environment.IsDevelopment(r.Context()) {
//		// local-only behaviour
//	}
//
// LoggerExtractor adds an "env" attribute to slog records through the logger
// package's context extractors.
package environment
