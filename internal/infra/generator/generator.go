// Package generator provides copy generation backends for the copywriting
// use case. It includes adapters for Claude (Anthropic) and OpenAI with the
// same reliability envelope around every call: a per-call timeout, an
// outbound throttle, retry with backoff, a circuit breaker, a client span
// and Prometheus metrics.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agency-site/internal/observability/tracing"
	"agency-site/internal/resilience/circuitbreaker"
	"agency-site/internal/resilience/retry"
	"agency-site/internal/usecase/copywriting"
)

// Config holds the settings shared by every provider backend.
type Config struct {
	// Model is the provider model identifier.
	Model string

	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL string

	// MaxTokens is used when a request does not set its own.
	MaxTokens int

	// Timeout bounds a whole Generate call, retries included.
	Timeout time.Duration

	// Throttle is shared by all callers. Nil disables outbound throttling.
	Throttle *Throttle

	CircuitBreaker circuitbreaker.Config
	Retry          retry.Config

	// Metrics defaults to the Prometheus recorder.
	Metrics MetricsRecorder
}

// pipeline wraps a single provider call with the reliability envelope.
type pipeline struct {
	provider  string
	model     string
	maxTokens int
	timeout   time.Duration
	throttle  *Throttle
	breaker   *circuitbreaker.CircuitBreaker
	retry     retry.Config
	metrics   MetricsRecorder
}

func newPipeline(provider string, cfg Config) *pipeline {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewPrometheusMetrics()
	}

	cbCfg := cfg.CircuitBreaker
	if cbCfg.MaxRequests == 0 {
		cbCfg = circuitbreaker.GeneratorConfig(cbCfg.Name)
	}
	if cbCfg.Name == "" {
		cbCfg.Name = provider + "-api"
	}
	cbCfg.IsSuccessful = isCallerFault
	cbCfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		metrics.RecordCircuitState(provider, to)
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.GeneratorConfig()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &pipeline{
		provider:  provider,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		throttle:  cfg.Throttle,
		breaker:   circuitbreaker.New(cbCfg),
		retry:     retryCfg,
		metrics:   metrics,
	}
}

// circuitState reports the breaker state for health checks.
func (p *pipeline) circuitState() gobreaker.State {
	return p.breaker.State()
}

// callFunc performs exactly one provider request.
type callFunc func(ctx context.Context, req copywriting.Request) (completion, error)

type completion struct {
	text         string
	inputTokens  int64
	outputTokens int64
}

func (p *pipeline) run(ctx context.Context, req copywriting.Request, call callFunc) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = p.maxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := tracing.GetTracer().Start(ctx, "generator."+p.provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", p.provider),
			attribute.String("gen_ai.request.model", p.model),
			attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
			attribute.Float64("gen_ai.request.temperature", req.Temperature),
		),
	)
	defer span.End()

	callID := uuid.New().String()
	start := time.Now()
	attempts := 0

	slog.DebugContext(ctx, "generation started",
		slog.String("call_id", callID),
		slog.String("provider", p.provider),
		slog.String("model", p.model),
		slog.Int("prompt_length", len([]rune(req.Prompt))))

	out, err := retry.Do(ctx, p.retry, func() (completion, error) {
		attempts++
		if err := p.throttle.Wait(ctx); err != nil {
			return completion{}, fmt.Errorf("outbound throttle: %w", err)
		}

		res, err := p.breaker.Execute(func() (interface{}, error) {
			return call(ctx, req)
		})
		if err != nil {
			if circuitbreaker.IsRejection(err) {
				slog.WarnContext(ctx, "generator circuit breaker rejected call",
					slog.String("call_id", callID),
					slog.String("provider", p.provider),
					slog.String("state", p.breaker.State().String()))
				return completion{}, fmt.Errorf("%s api: %w", p.provider, copywriting.ErrGeneratorUnavailable)
			}
			return completion{}, err
		}
		return res.(completion), nil
	})

	duration := time.Since(start)
	span.SetAttributes(attribute.Int("gen_ai.attempts", attempts))

	if err != nil {
		outcome := classify(err)
		p.metrics.RecordGeneration(p.provider, outcome, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		slog.ErrorContext(ctx, "generation failed",
			slog.String("call_id", callID),
			slog.String("provider", p.provider),
			slog.String("outcome", outcome),
			slog.Int("attempts", attempts),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return "", fmt.Errorf("%s generate: %w", p.provider, err)
	}

	p.metrics.RecordGeneration(p.provider, OutcomeSuccess, duration)
	p.metrics.RecordTokens(p.provider, out.inputTokens, out.outputTokens)
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", out.inputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", out.outputTokens),
	)

	slog.InfoContext(ctx, "generation completed",
		slog.String("call_id", callID),
		slog.String("provider", p.provider),
		slog.Int("attempts", attempts),
		slog.Int64("output_tokens", out.outputTokens),
		slog.Duration("duration", duration))

	return out.text, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, copywriting.ErrGeneratorUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// isCallerFault reports errors that say nothing about provider health:
// non-retryable 4xx answers and the caller giving up. They do not count
// toward tripping the breaker.
func isCallerFault(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && !httpErr.Temporary()
	}
	return false
}

// httpError converts a provider status into a retry.HTTPError so the retry
// loop and the breaker can classify it.
func httpError(status int, message string, header http.Header) *retry.HTTPError {
	return &retry.HTTPError{
		StatusCode: status,
		Message:    message,
		RetryAfter: parseRetryAfter(header),
	}
}

// parseRetryAfter reads a delay-seconds Retry-After header. HTTP-date values
// and malformed headers yield zero.
func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
