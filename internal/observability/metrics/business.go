package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Copy kinds.
const (
	KindAd    = "ad"
	KindEmail = "email"
)

// Generation request outcomes, in the order the dispatcher can reach them.
const (
	OutcomeInvalid      = "invalid"
	OutcomeNoIdentifier = "no_identifier"
	OutcomeStoreError   = "store_error"
	OutcomeRateLimited  = "rate_limited"
	OutcomeGenerated    = "generated"
	OutcomeFailed       = "failed"
	OutcomeUnavailable  = "unavailable"
	OutcomeTimeout      = "timeout"
	OutcomeCanceled     = "canceled"
)

var (
	// GenerateRequestsTotal counts generation requests by copy kind and outcome.
	GenerateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copy_requests_total",
			Help: "Total number of copy generation requests by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// CopyLength measures generated copy length in characters.
	CopyLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copy_length_characters",
			Help:    "Length of generated copy in characters",
			Buckets: prometheus.ExponentialBuckets(50, 2, 8),
		},
		[]string{"kind"},
	)

	// BuildInfo is always 1; the version label carries the build.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agency_site_build_info",
			Help: "Build information of the running binary",
		},
		[]string{"version"},
	)
)

// RecordGenerateRequest records the outcome of one generation request.
func RecordGenerateRequest(kind, outcome string) {
	GenerateRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCopyGenerated records a successful generation and its length.
func RecordCopyGenerated(kind string, characters int) {
	GenerateRequestsTotal.WithLabelValues(kind, OutcomeGenerated).Inc()
	CopyLength.WithLabelValues(kind).Observe(float64(characters))
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version).Set(1)
}
