package generator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Call outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
)

// MetricsRecorder defines the interface for recording generation metrics.
// It keeps the backends independent of Prometheus so tests can inject a
// recording fake.
type MetricsRecorder interface {
	// RecordGeneration records one Generate call, including its retries.
	RecordGeneration(provider, outcome string, duration time.Duration)

	// RecordTokens records provider-reported token usage.
	RecordTokens(provider string, input, output int64)

	// RecordCircuitState records the breaker state after a transition.
	RecordCircuitState(provider string, state gobreaker.State)
}

// PrometheusMetrics implements MetricsRecorder using Prometheus metrics
// registered on the default registry.
type PrometheusMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	tokens       *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// registerOrExisting registers c, returning the already registered collector
// when an identical one exists.
func registerOrExisting[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// NewPrometheusMetrics returns the process-wide Prometheus recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			requests: registerOrExisting(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "copy_generation_requests_total",
				Help: "Total number of copy generation calls by provider and outcome",
			}, []string{"provider", "outcome"})),
			duration: registerOrExisting(prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "copy_generation_duration_seconds",
				Help:    "Time taken by a copy generation call, retries included",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			}, []string{"provider", "outcome"})),
			tokens: registerOrExisting(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "copy_generation_tokens_total",
				Help: "Tokens reported by the provider, by direction",
			}, []string{"provider", "direction"})),
			circuitState: registerOrExisting(prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "copy_generation_circuit_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			}, []string{"provider"})),
		}
	})
	return prometheusMetricsInstance
}

// RecordGeneration implements MetricsRecorder.RecordGeneration
func (p *PrometheusMetrics) RecordGeneration(provider, outcome string, duration time.Duration) {
	p.requests.WithLabelValues(provider, outcome).Inc()
	p.duration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// RecordTokens implements MetricsRecorder.RecordTokens
func (p *PrometheusMetrics) RecordTokens(provider string, input, output int64) {
	p.tokens.WithLabelValues(provider, "input").Add(float64(input))
	p.tokens.WithLabelValues(provider, "output").Add(float64(output))
}

// RecordCircuitState implements MetricsRecorder.RecordCircuitState
func (p *PrometheusMetrics) RecordCircuitState(provider string, state gobreaker.State) {
	p.circuitState.WithLabelValues(provider).Set(float64(state))
}

type noopMetrics struct{}

func (noopMetrics) RecordGeneration(string, string, time.Duration) {}
func (noopMetrics) RecordTokens(string, int64, int64)              {}
func (noopMetrics) RecordCircuitState(string, gobreaker.State)     {}
