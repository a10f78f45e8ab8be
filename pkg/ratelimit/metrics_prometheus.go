package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
//
// All metrics use a custom registry for better testability and isolation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// requestsTotal tracks rate limit decisions.
	// Labels:
	//   - limiter: limiter name (e.g. "ai")
	//   - status: "allowed" or "denied"
	requestsTotal *prometheus.CounterVec

	// checkDuration tracks the duration of rate limit checks. The memory
	// store answers in microseconds; the upper buckets cover Redis round trips.
	checkDuration *prometheus.HistogramVec

	// activeEntries tracks the number of identifiers held by the store.
	activeEntries *prometheus.GaugeVec

	// evictionsTotal tracks capacity (LRU) evictions.
	evictionsTotal *prometheus.CounterVec

	// resetsTotal tracks administrative resets.
	resetsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a custom registry.
//
// The registry can be passed to promhttp.HandlerFor() to expose metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limit_requests_total",
			Help: "Total rate limit decisions by limiter and status",
		},
		[]string{"limiter", "status"},
	)

	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_rate_limit_check_duration_seconds",
			Help:    "Duration of rate limit check operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"limiter"},
	)

	activeEntries := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_rate_limit_active_entries",
			Help: "Current number of tracked identifiers by limiter",
		},
		[]string{"limiter"},
	)

	evictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limit_evictions_total",
			Help: "Total LRU evictions by limiter",
		},
		[]string{"limiter"},
	)

	resetsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_rate_limit_resets_total",
			Help: "Total administrative quota resets by limiter",
		},
		[]string{"limiter"},
	)

	registry.MustRegister(
		requestsTotal,
		checkDuration,
		activeEntries,
		evictionsTotal,
		resetsTotal,
	)

	return &PrometheusMetrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		checkDuration:  checkDuration,
		activeEntries:  activeEntries,
		evictionsTotal: evictionsTotal,
		resetsTotal:    resetsTotal,
	}
}

// Registry returns the Prometheus registry containing all rate limit metrics.
//
//	metrics := NewPrometheusMetrics()
//	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAllowed records a rate limit check that admitted the request.
func (m *PrometheusMetrics) RecordAllowed(limiter string) {
	m.requestsTotal.WithLabelValues(limiter, "allowed").Inc()
}

// RecordDenied records a rate limit violation (request denied).
func (m *PrometheusMetrics) RecordDenied(limiter string) {
	m.requestsTotal.WithLabelValues(limiter, "denied").Inc()
}

// RecordCheckDuration records the duration of a rate limit check operation.
func (m *PrometheusMetrics) RecordCheckDuration(limiter string, duration time.Duration) {
	m.checkDuration.WithLabelValues(limiter).Observe(duration.Seconds())
}

// SetActiveEntries records the current number of tracked identifiers.
//
// Sustained values near MaxEntries mean live quotas are being evicted early.
func (m *PrometheusMetrics) SetActiveEntries(limiter string, count int) {
	m.activeEntries.WithLabelValues(limiter).Set(float64(count))
}

// RecordEviction records that entries were evicted from the store.
//
// A high eviction rate usually means many distinct clients (or a spoofing
// attempt); raise MaxEntries or move to the Redis store.
func (m *PrometheusMetrics) RecordEviction(limiter string, count int) {
	m.evictionsTotal.WithLabelValues(limiter).Add(float64(count))
}

// RecordReset records an administrative reset.
func (m *PrometheusMetrics) RecordReset(limiter string) {
	m.resetsTotal.WithLabelValues(limiter).Inc()
}

// Compile-time interface check
var _ Metrics = (*PrometheusMetrics)(nil)
