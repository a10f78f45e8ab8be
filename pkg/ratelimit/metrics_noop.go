package ratelimit

import "time"

// NoOpMetrics implements the Metrics interface with no-op implementations.
//
// It is the default when no Metrics is supplied to New, and is useful in
// tests and benchmarks.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new NoOpMetrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordAllowed is a no-op implementation.
func (m *NoOpMetrics) RecordAllowed(limiter string) {}

// RecordDenied is a no-op implementation.
func (m *NoOpMetrics) RecordDenied(limiter string) {}

// RecordCheckDuration is a no-op implementation.
func (m *NoOpMetrics) RecordCheckDuration(limiter string, duration time.Duration) {}

// SetActiveEntries is a no-op implementation.
func (m *NoOpMetrics) SetActiveEntries(limiter string, count int) {}

// RecordEviction is a no-op implementation.
func (m *NoOpMetrics) RecordEviction(limiter string, count int) {}

// RecordReset is a no-op implementation.
func (m *NoOpMetrics) RecordReset(limiter string) {}

var _ Metrics = (*NoOpMetrics)(nil)
