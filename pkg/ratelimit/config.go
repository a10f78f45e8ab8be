package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxRequests is the default number of admitted requests per window.
	DefaultMaxRequests = 20

	// DefaultWindow is the default fixed window length (one hour).
	DefaultWindow = time.Hour

	// DefaultMaxEntries is the default bound on tracked identifiers.
	DefaultMaxEntries = 500
)

// ErrInvalidConfig is returned by Config.Validate for non-positive settings.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// Config contains the process-wide rate limiter settings.
//
// A Config is immutable once it has been handed to New.
type Config struct {
	// MaxRequests is the ceiling of admitted requests per window per identifier.
	MaxRequests int

	// Window is the fixed window length. It is configured in milliseconds
	// and must be at least one millisecond.
	Window time.Duration

	// MaxEntries bounds the number of identifiers tracked at once.
	// When a new identifier arrives at capacity the least recently used
	// entry is evicted.
	MaxEntries int
}

// DefaultConfig returns a Config with the default limits (20 requests per hour,
// 500 tracked identifiers).
func DefaultConfig() Config {
	return Config{
		MaxRequests: DefaultMaxRequests,
		Window:      DefaultWindow,
		MaxEntries:  DefaultMaxEntries,
	}
}

// Validate checks that every setting is positive.
//
// Zero and negative values have no defined behavior and are rejected so that
// a misconfigured process fails at startup instead of per request.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: MaxRequests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.Window < time.Millisecond {
		return fmt.Errorf("%w: Window must be at least 1ms, got %s", ErrInvalidConfig, c.Window)
	}
	if c.MaxEntries <= 0 {
		return fmt.Errorf("%w: MaxEntries must be positive, got %d", ErrInvalidConfig, c.MaxEntries)
	}
	return nil
}

// WindowMillis returns the window length in whole milliseconds.
func (c Config) WindowMillis() int64 {
	return c.Window.Milliseconds()
}
