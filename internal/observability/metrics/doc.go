// Package metrics provides the business-level Prometheus metrics of the
// copy generation API.
//
// Transport metrics live next to the HTTP middleware, limiter metrics on the
// rate limiter's own registry and provider metrics in the generator package.
// What remains here is the outcome of each generation request as a visitor
// experienced it, plus build information.
//
// All metrics are registered with the Prometheus default registry and
// exposed via the admin /metrics endpoint.
//
// Example usage:
//
//	metrics.RecordGenerateRequest(metrics.KindAd, metrics.OutcomeRateLimited)
package metrics
