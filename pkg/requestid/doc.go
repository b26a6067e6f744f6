// Package requestid attaches a correlation id to every request.
//
// The middleware reuses a well-formed X-Request-ID header sent by the client
// and generates a UUIDv7 otherwise. The id is stored in the request context,
// echoed in the response and added to log records by LoggerExtractor:
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
package requestid
