package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for every span in this module.
const TracerName = "agency-site"

// GetTracer returns the tracer for creating spans.
// It resolves the global provider on every call, so a provider installed
// after start-up is picked up.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}
