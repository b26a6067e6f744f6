// Package logger builds *slog.Logger values for the multisite services.
//
// New assembles a text or JSON handler from Option values and wraps it with a
// LogHandlerDecorator that runs ContextExtractor callbacks on every record.
// The request id and current tenant reach the logs this way:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "multisite"),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// NewFromConfig does the same from a Config read with pkg/config, honouring
// LOG_LEVEL and LOG_FORMAT over the environment defaults.
//
// Attribute helpers such as TenantID, Host and Error keep key names consistent.
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
