package generator

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_Singleton(t *testing.T) {
	assert.Same(t, NewPrometheusMetrics(), NewPrometheusMetrics())
}

func TestPrometheusMetrics_Record(t *testing.T) {
	m := NewPrometheusMetrics()

	before := testutil.ToFloat64(m.requests.WithLabelValues("metrics-test", OutcomeSuccess))
	m.RecordGeneration("metrics-test", OutcomeSuccess, 1500*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(m.requests.WithLabelValues("metrics-test", OutcomeSuccess)))

	inBefore := testutil.ToFloat64(m.tokens.WithLabelValues("metrics-test", "input"))
	m.RecordTokens("metrics-test", 40, 10)
	assert.Equal(t, inBefore+40, testutil.ToFloat64(m.tokens.WithLabelValues("metrics-test", "input")))

	m.RecordCircuitState("metrics-test", gobreaker.StateOpen)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.circuitState.WithLabelValues("metrics-test")))

	m.RecordCircuitState("metrics-test", gobreaker.StateClosed)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.circuitState.WithLabelValues("metrics-test")))
}
