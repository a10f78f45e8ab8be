package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"agency-site/pkg/ratelimit"
)

// Rate limit store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// maxWindowMS is the longest window in milliseconds a time.Duration can hold.
const maxWindowMS = math.MaxInt64 / int64(time.Millisecond)

// DefaultSweepSchedule is the cron schedule for expired-entry sweeps.
const DefaultSweepSchedule = "@every 5m"

// RateLimitSettings is the full rate limiting configuration of the process.
type RateLimitSettings struct {
	// Limiter holds the quota parameters handed to ratelimit.New.
	Limiter ratelimit.Config

	// Backend selects the store: BackendMemory or BackendRedis.
	Backend string

	Redis RedisSettings

	// SweepSchedule is a cron expression for periodic expired-entry removal.
	SweepSchedule string

	// TrustProxy enables forwarded-address headers for identifier derivation.
	TrustProxy bool

	// TrustedProxies lists CIDRs whose forwarded headers are honored.
	TrustedProxies []string
}

// RedisSettings configures the Redis store.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// LoadRateLimitConfig loads rate limiting configuration from environment variables.
//
// Unlike the lenient GetEnv* helpers, every malformed value here is returned
// as an error: a limiter running with a silently substituted quota is worse
// than a process that refuses to start.
//
// Environment variables:
//   - AI_RATE_LIMIT_MAX_REQUESTS: requests per window per identifier (default: 20)
//   - AI_RATE_LIMIT_WINDOW_MS: window length in milliseconds (default: 3600000)
//   - AI_RATE_LIMIT_MAX_ENTRIES: maximum tracked identifiers (default: 500)
//   - RATE_LIMIT_BACKEND: "memory" or "redis" (default: memory)
//   - RATE_LIMIT_REDIS_ADDR: Redis address (default: localhost:6379)
//   - RATE_LIMIT_REDIS_PASSWORD: Redis password (default: empty)
//   - RATE_LIMIT_REDIS_DB: Redis database number (default: 0)
//   - RATE_LIMIT_REDIS_PREFIX: Redis key prefix (default: agency:rl:)
//   - RATE_LIMIT_SWEEP_SCHEDULE: cron schedule for sweeps (default: @every 5m)
//   - RATE_LIMIT_TRUST_PROXY: honor X-Forwarded-For / X-Real-IP (default: false)
//   - RATE_LIMIT_TRUSTED_PROXIES: comma-separated proxy CIDRs
func LoadRateLimitConfig() (*RateLimitSettings, error) {
	var errs []error

	maxRequests, err := ParseEnvPositiveInt("AI_RATE_LIMIT_MAX_REQUESTS", ratelimit.DefaultMaxRequests)
	errs = append(errs, err)

	windowMS, err := ParseEnvPositiveInt("AI_RATE_LIMIT_WINDOW_MS", int(ratelimit.DefaultWindow.Milliseconds()))
	errs = append(errs, err)
	if err == nil && int64(windowMS) > maxWindowMS {
		errs = append(errs, fmt.Errorf("AI_RATE_LIMIT_WINDOW_MS: must be at most %d, got %d", maxWindowMS, windowMS))
	}

	maxEntries, err := ParseEnvPositiveInt("AI_RATE_LIMIT_MAX_ENTRIES", ratelimit.DefaultMaxEntries)
	errs = append(errs, err)

	backend := strings.ToLower(GetEnvString("RATE_LIMIT_BACKEND", BackendMemory))
	if backend != BackendMemory && backend != BackendRedis {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND: must be %q or %q, got %q", BackendMemory, BackendRedis, backend))
	}

	redisDB, err := ParseEnvNonNegativeInt("RATE_LIMIT_REDIS_DB", 0)
	errs = append(errs, err)

	schedule := GetEnvString("RATE_LIMIT_SWEEP_SCHEDULE", DefaultSweepSchedule)
	if err := ValidateCronSchedule(schedule); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_SWEEP_SCHEDULE: %w", err))
	}

	trustProxy, err := ParseEnvBool("RATE_LIMIT_TRUST_PROXY", false)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("rate limit configuration: %w", err)
	}

	settings := &RateLimitSettings{
		Limiter: ratelimit.Config{
			MaxRequests: maxRequests,
			Window:      time.Duration(windowMS) * time.Millisecond,
			MaxEntries:  maxEntries,
		},
		Backend: backend,
		Redis: RedisSettings{
			Addr:     GetEnvString("RATE_LIMIT_REDIS_ADDR", "localhost:6379"),
			Password: GetEnvString("RATE_LIMIT_REDIS_PASSWORD", ""),
			DB:       redisDB,
			Prefix:   GetEnvString("RATE_LIMIT_REDIS_PREFIX", ratelimit.DefaultRedisPrefix),
		},
		SweepSchedule:  schedule,
		TrustProxy:     trustProxy,
		TrustedProxies: GetEnvStringList("RATE_LIMIT_TRUSTED_PROXIES", nil),
	}

	if err := settings.Limiter.Validate(); err != nil {
		return nil, fmt.Errorf("rate limit configuration: %w", err)
	}

	return settings, nil
}
