package generator

import (
	"fmt"

	"agency-site/internal/config"
	"agency-site/internal/resilience/circuitbreaker"
	"agency-site/internal/resilience/retry"
	"agency-site/internal/usecase/copywriting"
)

// New builds the generator selected by cfg.Provider.
func New(cfg *config.AIConfig, metrics MetricsRecorder) (copywriting.Generator, error) {
	if cfg.Provider == config.ProviderNoOp {
		return NewNoOp(), nil
	}

	shared := Config{
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
		Throttle:  NewThrottle(cfg.Outbound.RPS, cfg.Outbound.Burst),
		CircuitBreaker: circuitbreaker.Config{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			MinRequests:      cfg.CircuitBreaker.MinRequests,
		},
		Retry:   retry.GeneratorConfig(),
		Metrics: metrics,
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewClaude(cfg.APIKey, shared), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, shared), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}
