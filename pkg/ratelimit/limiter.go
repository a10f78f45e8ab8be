package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyIdentifier is returned when a check is attempted without an identifier.
var ErrEmptyIdentifier = errors.New("rate limit identifier is empty")

// DefaultLimiterName is the metrics label used when WithName is not given.
const DefaultLimiterName = "ai"

// Limiter is a fixed-window rate limiter keyed by opaque identifiers.
//
// Each identifier gets MaxRequests admissions per window. The window starts
// at the identifier's first admitted request and is never extended; once it
// ends the next request opens a fresh window. Limiter is safe for concurrent
// use; atomicity of each check is delegated to the Store.
type Limiter struct {
	config  Config
	store   Store
	clock   Clock
	metrics Metrics
	name    string
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore sets the backing store. Default: a MemoryStore bounded by
// Config.MaxEntries.
func WithStore(store Store) Option {
	return func(l *Limiter) {
		l.store = store
	}
}

// WithClock sets the time source. Default: SystemClock.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// WithMetrics sets the metrics sink. Default: NoOpMetrics.
func WithMetrics(metrics Metrics) Option {
	return func(l *Limiter) {
		l.metrics = metrics
	}
}

// WithName sets the limiter label used in metrics.
func WithName(name string) Option {
	return func(l *Limiter) {
		l.name = name
	}
}

// New creates a Limiter. It returns an error wrapping ErrInvalidConfig if any
// setting is non-positive.
func New(config Config, opts ...Option) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		config: config,
		name:   DefaultLimiterName,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.clock == nil {
		l.clock = &SystemClock{}
	}
	if l.metrics == nil {
		l.metrics = NewNoOpMetrics()
	}
	if l.store == nil {
		metrics, name := l.metrics, l.name
		l.store = NewMemoryStore(MemoryStoreConfig{
			MaxEntries: config.MaxEntries,
			OnEvict: func(count int) {
				metrics.RecordEviction(name, count)
			},
		})
	}

	return l, nil
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Check decides whether one more request from identifier is admitted and
// records it if so.
//
// Decision steps, evaluated in order at the current clock time:
//  1. No entry, or its window has ended: a new entry is created with Count=1
//     and ResetAt=now+Window (evicting the least recently used entry at
//     capacity). Allowed, Remaining=MaxRequests-1.
//  2. Count >= MaxRequests: denied, Remaining=0, entry unchanged.
//  3. Otherwise Count is incremented. Allowed, Remaining=MaxRequests-Count.
//
// A non-nil error means the store could not be consulted; the returned Result
// is nil in that case.
func (l *Limiter) Check(ctx context.Context, identifier string) (*Result, error) {
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}

	start := time.Now()
	now := l.clock.Now()

	entry, allowed, err := l.store.CheckAndIncrement(ctx, identifier, now, l.config.Window, l.config.MaxRequests)
	l.metrics.RecordCheckDuration(l.name, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	if !allowed {
		l.metrics.RecordDenied(l.name)
		return newDeniedResult(entry, l.config.MaxRequests), nil
	}

	l.metrics.RecordAllowed(l.name)
	return newAllowedResult(entry, l.config.MaxRequests), nil
}

// Reset removes identifier's entry so its next request starts a fresh window.
// Resetting an unknown identifier is not an error.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if identifier == "" {
		return ErrEmptyIdentifier
	}
	if err := l.store.Delete(ctx, identifier); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	l.metrics.RecordReset(l.name)
	return nil
}

// Status reports identifier's quota without consuming it.
//
// Status never creates, increments, refreshes or evicts an entry. For an
// unknown or expired identifier it reports a full quota with a reset time of
// now+Window, although no window has actually started.
func (l *Limiter) Status(ctx context.Context, identifier string) (*Result, error) {
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}

	now := l.clock.Now()

	entry, ok, err := l.store.Peek(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("rate limit status: %w", err)
	}

	if !ok || entry.Expired(now) {
		return &Result{
			Identifier: identifier,
			Allowed:    true,
			Remaining:  l.config.MaxRequests,
			ResetAt:    now.Add(l.config.Window),
			Limit:      l.config.MaxRequests,
		}, nil
	}

	if entry.Count >= l.config.MaxRequests {
		return newDeniedResult(entry, l.config.MaxRequests), nil
	}
	return newAllowedResult(entry, l.config.MaxRequests), nil
}

// EnforcesMaxEntries reports whether the store evicts at Config.MaxEntries.
// It is false for stores that leave memory bounds to the backend, such as
// RedisStore.
func (l *Limiter) EnforcesMaxEntries() bool {
	_, ok := l.store.(BoundedStore)
	return ok
}

// ActiveEntries returns the number of entries held by the store and updates
// the active entries gauge.
func (l *Limiter) ActiveEntries(ctx context.Context) (int, error) {
	n, err := l.store.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("rate limit active entries: %w", err)
	}
	l.metrics.SetActiveEntries(l.name, n)
	return n, nil
}

// Sweep removes entries whose window has ended and returns how many were
// removed. It only reclaims memory; expired entries are already ignored by
// Check and Status.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	removed, err := l.store.Sweep(ctx, l.clock.Now())
	if err != nil {
		return removed, fmt.Errorf("rate limit sweep: %w", err)
	}
	if _, err := l.ActiveEntries(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}
