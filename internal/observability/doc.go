// Package observability groups the logging, metrics and tracing packages.
//
// Subpackages:
//   - logging: slog logger construction and request ID propagation
//   - metrics: business metrics for copy generation requests
//   - tracing: OpenTelemetry tracer access and HTTP server spans
package observability
