// Package http provides the HTTP plumbing shared by the public site API and
// the admin listener: health endpoints, request logging, panic recovery,
// metrics collection, request deadlines and the rate limit sweep scheduler.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"agency-site/pkg/ratelimit"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each check item
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// LimiterProbe is the part of *ratelimit.Limiter the health check reads.
type LimiterProbe interface {
	ActiveEntries(ctx context.Context) (int, error)
	Config() ratelimit.Config
	EnforcesMaxEntries() bool
}

// GeneratorProbe reports the copy generator backend.
// CircuitState is optional: generators without a breaker only implement Name.
type GeneratorProbe interface {
	Name() string
}

type circuitReporter interface {
	CircuitState() gobreaker.State
}

// HealthHandler handles health check endpoint requests.
//
// The rate limiter check fails when its store cannot be read (a Redis outage
// turns every generation request into a 503, so the process is unhealthy).
// An open generator circuit is reported as degraded: quota and validation
// still work, only generation is refused.
type HealthHandler struct {
	Limiter   LimiterProbe
	Generator GeneratorProbe
	Version   string
}

// ServeHTTP performs health checks and returns the application health status.
// Returns 200 OK if healthy or degraded, or 503 Service Unavailable if any check fails.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	status := StatusHealthy

	if h.Limiter != nil {
		check := h.checkRateLimiter(ctx)
		checks["rate_limiter"] = check
		status = worst(status, check.Status)
	}

	if h.Generator != nil {
		check := h.checkGenerator()
		checks["generator"] = check
		status = worst(status, check.Status)
	}

	statusCode := http.StatusOK
	if status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("health: failed to encode response", slog.Any("error", err))
	}
}

// checkRateLimiter reads the store once and reports quota settings.
func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	cfg := h.Limiter.Config()
	details := map[string]any{
		"max_requests": cfg.MaxRequests,
		"window_ms":    cfg.WindowMillis(),
		"max_entries":  cfg.MaxEntries,
	}

	active, err := h.Limiter.ActiveEntries(ctx)
	if err != nil {
		return CheckStatus{
			Status:  StatusUnhealthy,
			Message: "rate limit store unavailable",
			Details: details,
		}
	}
	details["active_entries"] = active

	if !h.Limiter.EnforcesMaxEntries() {
		// Redis 側の maxmemory に任せるので容量判定はしない
		details["max_entries_enforced"] = false
		return CheckStatus{Status: StatusHealthy, Details: details}
	}

	// 上限の 90% を超えたら LRU 退避が近い
	if cfg.MaxEntries > 0 && active*10 >= cfg.MaxEntries*9 {
		return CheckStatus{
			Status:  StatusDegraded,
			Message: "rate limit store near capacity",
			Details: details,
		}
	}

	return CheckStatus{Status: StatusHealthy, Details: details}
}

func (h *HealthHandler) checkGenerator() CheckStatus {
	details := map[string]any{"provider": h.Generator.Name()}

	cr, ok := h.Generator.(circuitReporter)
	if !ok {
		return CheckStatus{Status: StatusHealthy, Details: details}
	}

	state := cr.CircuitState()
	details["circuit_breaker"] = state.String()
	if state == gobreaker.StateOpen {
		return CheckStatus{
			Status:  StatusDegraded,
			Message: "generator circuit breaker is open",
			Details: details,
		}
	}
	return CheckStatus{Status: StatusHealthy, Details: details}
}

// ReadyHandler handles readiness probe requests.
// The process is ready when the rate limit store answers; without it no
// generation request can be admitted.
type ReadyHandler struct {
	Limiter LimiterProbe
}

// ServeHTTP returns 200 OK if ready, or 503 Service Unavailable otherwise.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.Limiter == nil {
		http.Error(w, "rate limiter not configured", http.StatusServiceUnavailable)
		return
	}

	if _, err := h.Limiter.ActiveEntries(ctx); err != nil {
		http.Error(w, "rate limit store not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		slog.Error("ready: failed to write response", slog.Any("error", err))
	}
}

// LiveHandler handles liveness probe requests.
type LiveHandler struct{}

// ServeHTTP always returns 200 OK if the application is able to respond.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		slog.Error("alive: failed to write response", slog.Any("error", err))
	}
}

func worst(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
