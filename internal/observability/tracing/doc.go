// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created against the global tracer provider, so whatever provider
// the process installs with otel.SetTracerProvider receives them. Without one
// the otel no-op provider is used and tracing costs nothing.
//
// Example usage:
//
//	handler := tracing.Middleware(mux)
//
//	ctx, span := tracing.GetTracer().Start(ctx, "generator.claude")
//	defer span.End()
package tracing
