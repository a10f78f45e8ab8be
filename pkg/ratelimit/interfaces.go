// Package ratelimit provides the fixed-window rate limiter that gates
// outbound AI generation requests.
//
// A Limiter tracks a request count per identifier inside a fixed window.
// State lives in a pluggable Store: a bounded in-memory LRU by default, or
// Redis when several processes must share quotas. The package has no HTTP
// dependencies so it can be reused from handlers, CLIs and background jobs.
package ratelimit

import (
	"context"
	"time"
)

// Store holds rate limit entries for the Limiter.
//
// Implementations must be safe for concurrent use. CheckAndIncrement is the
// critical section of a rate limit check and must run atomically with respect
// to other calls for the same identifier.
type Store interface {
	// CheckAndIncrement applies the fixed-window decision for identifier at now.
	//
	// If no live entry exists (absent, or now >= ResetAt) a new entry with
	// Count=1 and ResetAt=now+window is stored and allowed is true.
	// If the live entry already holds limit requests it is left untouched and
	// allowed is false. Otherwise the entry's Count is incremented.
	//
	// The returned Entry reflects the state after the decision.
	CheckAndIncrement(ctx context.Context, identifier string, now time.Time, window time.Duration, limit int) (entry Entry, allowed bool, err error)

	// Peek returns the entry for identifier without creating, mutating or
	// refreshing its recency. Expired entries are returned as-is; callers
	// decide how to interpret them.
	Peek(ctx context.Context, identifier string) (Entry, bool, error)

	// Delete removes the entry for identifier. Deleting an absent identifier
	// is not an error.
	Delete(ctx context.Context, identifier string) error

	// Len returns the number of entries currently held.
	Len(ctx context.Context) (int, error)

	// Sweep removes entries whose window ended at or before now and returns
	// how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// BoundedStore is a Store that evicts once it holds Capacity entries.
// Stores without a fixed entry bound (RedisStore) do not implement it.
type BoundedStore interface {
	Store
	Capacity() int
}

// Metrics records rate limiter activity.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
type Metrics interface {
	// RecordAllowed records an admitted request.
	RecordAllowed(limiter string)

	// RecordDenied records a rejected request.
	RecordDenied(limiter string)

	// RecordCheckDuration records the time spent deciding a single check.
	RecordCheckDuration(limiter string, duration time.Duration)

	// SetActiveEntries records the number of tracked identifiers.
	SetActiveEntries(limiter string, count int)

	// RecordEviction records capacity evictions from the store.
	RecordEviction(limiter string, count int)

	// RecordReset records an administrative reset of an identifier.
	RecordReset(limiter string)
}

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
