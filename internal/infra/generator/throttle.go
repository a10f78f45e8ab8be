package generator

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle is a token bucket shared by every caller of a provider.
// It protects the provider account (and its bill) from bursts that the
// per-visitor quota alone would allow, since many visitors may each be
// within their own limit at the same time.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing requestsPerSecond sustained calls
// with bursts of up to burst.
//
// Example:
//
//	throttle := NewThrottle(2.0, 5) // 2 req/s with burst of 5
func NewThrottle(requestsPerSecond float64, burst int) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available or the context is done.
// It fails immediately when the wait would outlast the context deadline.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
