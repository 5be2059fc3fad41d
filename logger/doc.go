// Package logger provides structured logging on top of zerolog.
//
// Loggers are created from a Config, scoped with WithComponent and enriched
// from a request context with WithContext, which picks up the request id
// placed there by ContextWithRequestID.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "transcribe").WithComponent("saga")
//	log.WithContext(ctx).Info("job submitted", logger.Fields(logger.FieldJob, name))
package logger
