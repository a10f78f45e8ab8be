package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNoOp      = "noop"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// AIConfig holds configuration for the copy generation backend.
type AIConfig struct {
	// Provider selects the backend: anthropic, openai or noop.
	// Default: "noop"
	Provider string

	// APIKey is the credential for the selected provider. Read from
	// ANTHROPIC_API_KEY or OPENAI_API_KEY depending on Provider.
	APIKey string

	// Model is the provider model identifier. Defaults depend on Provider.
	Model string

	// BaseURL overrides the provider endpoint (proxies, tests). Empty uses the SDK default.
	BaseURL string

	// MaxTokens caps a single completion. Default: 1024
	MaxTokens int

	// Timeout bounds one generation call including retries. Default: 60s
	Timeout time.Duration

	// Outbound throttles calls to the provider across all clients.
	Outbound OutboundConfig

	// CircuitBreaker for provider calls.
	CircuitBreaker CircuitBreakerConfig
}

// OutboundConfig configures the outbound token bucket.
type OutboundConfig struct {
	// RPS is the sustained request rate. Default: 2
	RPS float64
	// Burst is the bucket size. Default: 5
	Burst int
}

// CircuitBreakerConfig for provider resilience.
type CircuitBreakerConfig struct {
	// MaxRequests in half-open state.
	MaxRequests uint32

	// Interval for clearing failure counts.
	Interval time.Duration

	// Timeout before transitioning from open to half-open.
	Timeout time.Duration

	// FailureThreshold ratio to trip circuit (0.0 to 1.0).
	FailureThreshold float64

	// MinRequests before calculating failure ratio.
	MinRequests uint32
}

// LoadAIConfig loads generation backend configuration from environment variables.
// Returns a config with defaults if environment variables are not set.
//
// Environment variables:
//   - AI_PROVIDER: anthropic, openai or noop (default: noop)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: required for the matching provider
//   - AI_MODEL: model identifier (default depends on provider)
//   - AI_BASE_URL: endpoint override
//   - AI_MAX_TOKENS: completion token cap (default: 1024)
//   - AI_TIMEOUT: per-call timeout (default: 60s)
//   - AI_OUTBOUND_RPS / AI_OUTBOUND_BURST: outbound throttle (default: 2 / 5)
//   - AI_CB_MAX_REQUESTS, AI_CB_INTERVAL, AI_CB_TIMEOUT: circuit breaker
func LoadAIConfig() (*AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderNoOp))

	config := &AIConfig{
		Provider:  provider,
		BaseURL:   strings.TrimRight(os.Getenv("AI_BASE_URL"), "/"),
		MaxTokens: getEnvInt("AI_MAX_TOKENS", 1024),
		Timeout:   getEnvDuration("AI_TIMEOUT", 60*time.Second),
		Outbound: OutboundConfig{
			RPS:   getEnvFloat("AI_OUTBOUND_RPS", 2),
			Burst: getEnvInt("AI_OUTBOUND_BURST", 5),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      uint32(getEnvInt("AI_CB_MAX_REQUESTS", 3)),
			Interval:         getEnvDuration("AI_CB_INTERVAL", 10*time.Second),
			Timeout:          getEnvDuration("AI_CB_TIMEOUT", 30*time.Second),
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
	}

	switch provider {
	case ProviderAnthropic:
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		config.Model = getEnvOrDefault("AI_MODEL", DefaultAnthropicModel)
	case ProviderOpenAI:
		config.APIKey = os.Getenv("OPENAI_API_KEY")
		config.Model = getEnvOrDefault("AI_MODEL", DefaultOpenAIModel)
	default:
		config.Model = getEnvOrDefault("AI_MODEL", "noop")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *AIConfig) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.APIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic")
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case ProviderNoOp:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of %s, %s, %s; got %q",
			ProviderAnthropic, ProviderOpenAI, ProviderNoOp, c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("AI_MODEL cannot be empty")
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}

	if c.Outbound.RPS <= 0 {
		return fmt.Errorf("AI_OUTBOUND_RPS must be positive")
	}

	if c.Outbound.Burst <= 0 {
		return fmt.Errorf("AI_OUTBOUND_BURST must be positive")
	}

	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("AI_CB_MAX_REQUESTS must be positive")
	}

	if c.CircuitBreaker.Interval <= 0 {
		return fmt.Errorf("AI_CB_INTERVAL must be positive")
	}

	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("AI_CB_TIMEOUT must be positive")
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat parses float environment variable with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
