package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"agency-site/internal/resilience/circuitbreaker"
	"agency-site/internal/resilience/retry"
	"agency-site/internal/usecase/copywriting"
)

type generationRecord struct {
	provider string
	outcome  string
}

type recordingMetrics struct {
	mu          sync.Mutex
	generations []generationRecord
	input       int64
	output      int64
	states      []gobreaker.State
}

func (m *recordingMetrics) RecordGeneration(provider, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations = append(m.generations, generationRecord{provider, outcome})
}

func (m *recordingMetrics) RecordTokens(_ string, input, output int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.input += input
	m.output += output
}

func (m *recordingMetrics) RecordCircuitState(_ string, state gobreaker.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *recordingMetrics) outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.generations))
	for _, g := range m.generations {
		out = append(out, g.outcome)
	}
	return out
}

// testConfig returns a Config with fast retries and a breaker that opens
// after two failed calls.
func testConfig(baseURL string, metrics MetricsRecorder) Config {
	return Config{
		Model:     "test-model",
		BaseURL:   baseURL,
		MaxTokens: 256,
		Timeout:   5 * time.Second,
		CircuitBreaker: circuitbreaker.Config{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      2,
		},
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
			Multiplier:   2,
		},
		Metrics: metrics,
	}
}

func testRequest() copywriting.Request {
	return copywriting.Request{
		Prompt:       "Write one advertisement.",
		SystemPrompt: "You are a copywriter.",
		MaxTokens:    128,
		Temperature:  0.7,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestPipeline_BreakerOpensAndRejects(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, claudeErrorBody("api_error", "boom"))
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	cfg := testConfig(server.URL, metrics)
	cfg.Retry.MaxAttempts = 1
	gen := NewClaude("test-key", cfg)

	for i := 0; i < 2; i++ {
		_, err := gen.Generate(context.Background(), testRequest())
		require.Error(t, err)
		assert.NotErrorIs(t, err, copywriting.ErrGeneratorUnavailable)
	}
	assert.True(t, gen.pipeline.breaker.IsOpen())
	assert.Equal(t, gobreaker.StateOpen, gen.CircuitState())

	_, err := gen.Generate(context.Background(), testRequest())
	require.ErrorIs(t, err, copywriting.ErrGeneratorUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the provider")

	assert.Equal(t, []string{OutcomeError, OutcomeError, OutcomeUnavailable}, metrics.outcomes())
	assert.Contains(t, metrics.states, gobreaker.StateOpen)
}

func TestPipeline_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, claudeErrorBody("invalid_request_error", "bad prompt"))
	}))
	defer server.Close()

	gen := NewClaude("test-key", testConfig(server.URL, &recordingMetrics{}))

	for i := 0; i < 5; i++ {
		_, err := gen.Generate(context.Background(), testRequest())
		require.Error(t, err)

		var httpErr *retry.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	}

	assert.Equal(t, gobreaker.StateClosed, gen.CircuitState())
	assert.Equal(t, int32(5), calls.Load(), "400 must not be retried")
}

func TestPipeline_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	metrics := &recordingMetrics{}
	cfg := testConfig(server.URL, metrics)
	cfg.Timeout = 50 * time.Millisecond
	gen := NewClaude("test-key", cfg)

	_, err := gen.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, []string{OutcomeTimeout}, metrics.outcomes())
}

func TestPipeline_DefaultMaxTokens(t *testing.T) {
	var gotMaxTokens float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotMaxTokens, _ = body["max_tokens"].(float64)
		writeJSON(w, http.StatusOK, claudeMessageBody("ok"))
	}))
	defer server.Close()

	gen := NewClaude("test-key", testConfig(server.URL, &recordingMetrics{}))

	req := testRequest()
	req.MaxTokens = 0
	_, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, float64(256), gotMaxTokens)
}

func TestPipeline_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, claudeErrorBody("overloaded_error", "busy"))
			return
		}
		writeJSON(w, http.StatusOK, claudeMessageBody("Fresh copy"))
	}))
	defer server.Close()

	gen := NewClaude("test-key", testConfig(server.URL, &recordingMetrics{}))
	out, err := gen.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Fresh copy", out)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "generator.claude", span.Name)
	assert.NotEqual(t, codes.Error, span.Status.Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, a := range span.Attributes {
		attrs[a.Key] = a.Value
	}
	assert.Equal(t, "test-model", attrs["gen_ai.request.model"].AsString())
	assert.Equal(t, int64(2), attrs["gen_ai.attempts"].AsInt64())
	assert.Equal(t, int64(12), attrs["gen_ai.usage.input_tokens"].AsInt64())
	assert.Equal(t, int64(7), attrs["gen_ai.usage.output_tokens"].AsInt64())
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "seconds", value: "3", want: 3 * time.Second},
		{name: "empty", value: "", want: 0},
		{name: "http date ignored", value: "Wed, 21 Oct 2015 07:28:00 GMT", want: 0},
		{name: "negative ignored", value: "-5", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			assert.Equal(t, tt.want, parseRetryAfter(h))
		})
	}

	assert.Zero(t, parseRetryAfter(nil))
}

func TestIsCallerFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "400", err: &retry.HTTPError{StatusCode: 400}, want: true},
		{name: "401", err: &retry.HTTPError{StatusCode: 401}, want: true},
		{name: "429", err: &retry.HTTPError{StatusCode: 429}, want: false},
		{name: "408", err: &retry.HTTPError{StatusCode: 408}, want: false},
		{name: "500", err: &retry.HTTPError{StatusCode: 500}, want: false},
		{name: "canceled", err: context.Canceled, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isCallerFault(tt.err))
		})
	}
}
