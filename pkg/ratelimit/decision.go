package ratelimit

import (
	"fmt"
	"time"
)

// Entry is the quota bucket for a single identifier.
type Entry struct {
	// Identifier is the opaque bucket key (for example "ip:203.0.113.7").
	Identifier string

	// Count is the number of admitted requests in the current window.
	// It starts at 1 when the entry is created.
	Count int

	// ResetAt is the instant the window ends. It is fixed when the entry is
	// created and never extended by later requests.
	ResetAt time.Time
}

// Expired reports whether the entry's window has ended at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// Result is the outcome of a rate limit check or status read.
//
// A rejected request is a normal outcome, not an error: callers branch on
// Allowed.
type Result struct {
	// Identifier is the bucket key the result refers to.
	Identifier string

	// Allowed indicates whether the request is admitted.
	Allowed bool

	// Remaining is the number of requests still available in the window.
	// It is 0 when the limit has been reached.
	Remaining int

	// ResetAt is the time the current window ends.
	ResetAt time.Time

	// Limit is the configured ceiling per window.
	Limit int
}

// String returns a human-readable representation of the result.
func (r *Result) String() string {
	return fmt.Sprintf(
		"Result{Allowed: %t, Identifier: %s, Remaining: %d/%d, ResetAt: %s}",
		r.Allowed,
		r.Identifier,
		r.Remaining,
		r.Limit,
		r.ResetAt.UTC().Format(time.RFC3339Nano),
	)
}

// ResetAtUnix returns the reset time as a Unix timestamp in seconds.
//
// This is the value sent in the X-RateLimit-Reset header.
func (r *Result) ResetAtUnix() int64 {
	return r.ResetAt.Unix()
}

// ResetAtUnixMilli returns the reset time in milliseconds since the epoch.
func (r *Result) ResetAtUnixMilli() int64 {
	return r.ResetAt.UnixMilli()
}

// ResetAtISO returns the reset time formatted as ISO-8601 in UTC with
// millisecond precision.
func (r *Result) ResetAtISO() string {
	return r.ResetAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// RetryAfter returns how long a rejected client should wait at now.
// It never returns a negative duration.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, suitable
// for the Retry-After header.
func (r *Result) RetryAfterSeconds(now time.Time) int64 {
	d := r.RetryAfter(now)
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func newAllowedResult(entry Entry, limit int) *Result {
	remaining := limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Identifier: entry.Identifier,
		Allowed:    true,
		Remaining:  remaining,
		ResetAt:    entry.ResetAt,
		Limit:      limit,
	}
}

func newDeniedResult(entry Entry, limit int) *Result {
	return &Result{
		Identifier: entry.Identifier,
		Allowed:    false,
		Remaining:  0,
		ResetAt:    entry.ResetAt,
		Limit:      limit,
	}
}
