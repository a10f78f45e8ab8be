package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-site/pkg/ratelimit"
)

type fakeLimiter struct {
	active    int
	err       error
	cfg       ratelimit.Config
	unbounded bool
}

func (f *fakeLimiter) ActiveEntries(ctx context.Context) (int, error) { return f.active, f.err }
func (f *fakeLimiter) Config() ratelimit.Config                      { return f.cfg }
func (f *fakeLimiter) EnforcesMaxEntries() bool                      { return !f.unbounded }

type fakeGenerator struct {
	name string
}

func (f *fakeGenerator) Name() string { return f.name }

type fakeBreakerGenerator struct {
	fakeGenerator
	state gobreaker.State
}

func (f *fakeBreakerGenerator) CircuitState() gobreaker.State { return f.state }

func limiterConfig() ratelimit.Config {
	return ratelimit.Config{MaxRequests: 20, Window: time.Hour, MaxEntries: 500}
}

func serveHealth(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		limiter         *fakeLimiter
		generator       GeneratorProbe
		expectedCode    int
		expectedStatus  string
		expectedLimiter string
		expectedGen     string
	}{
		{
			name:            "all healthy",
			limiter:         &fakeLimiter{active: 12, cfg: limiterConfig()},
			generator:       &fakeBreakerGenerator{fakeGenerator: fakeGenerator{name: "claude"}, state: gobreaker.StateClosed},
			expectedCode:    http.StatusOK,
			expectedStatus:  StatusHealthy,
			expectedLimiter: StatusHealthy,
			expectedGen:     StatusHealthy,
		},
		{
			name:            "store unavailable",
			limiter:         &fakeLimiter{err: errors.New("dial tcp: connection refused"), cfg: limiterConfig()},
			generator:       &fakeGenerator{name: "noop"},
			expectedCode:    http.StatusServiceUnavailable,
			expectedStatus:  StatusUnhealthy,
			expectedLimiter: StatusUnhealthy,
			expectedGen:     StatusHealthy,
		},
		{
			name:            "store near capacity",
			limiter:         &fakeLimiter{active: 460, cfg: limiterConfig()},
			generator:       &fakeGenerator{name: "noop"},
			expectedCode:    http.StatusOK,
			expectedStatus:  StatusDegraded,
			expectedLimiter: StatusDegraded,
			expectedGen:     StatusHealthy,
		},
		{
			name:            "unbounded store above max entries",
			limiter:         &fakeLimiter{active: 9000, cfg: limiterConfig(), unbounded: true},
			generator:       &fakeGenerator{name: "noop"},
			expectedCode:    http.StatusOK,
			expectedStatus:  StatusHealthy,
			expectedLimiter: StatusHealthy,
			expectedGen:     StatusHealthy,
		},
		{
			name:            "circuit open",
			limiter:         &fakeLimiter{active: 1, cfg: limiterConfig()},
			generator:       &fakeBreakerGenerator{fakeGenerator: fakeGenerator{name: "openai"}, state: gobreaker.StateOpen},
			expectedCode:    http.StatusOK,
			expectedStatus:  StatusDegraded,
			expectedLimiter: StatusHealthy,
			expectedGen:     StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := serveHealth(t, &HealthHandler{
				Limiter:   tt.limiter,
				Generator: tt.generator,
				Version:   "1.2.3",
			})

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedStatus, resp.Status)
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Equal(t, tt.expectedLimiter, resp.Checks["rate_limiter"].Status)
			assert.Equal(t, tt.expectedGen, resp.Checks["generator"].Status)

			_, err := time.Parse(time.RFC3339, resp.Timestamp)
			assert.NoError(t, err)
		})
	}
}

func TestHealthHandler_Details(t *testing.T) {
	_, resp := serveHealth(t, &HealthHandler{
		Limiter:   &fakeLimiter{active: 3, cfg: limiterConfig()},
		Generator: &fakeBreakerGenerator{fakeGenerator: fakeGenerator{name: "claude"}, state: gobreaker.StateHalfOpen},
	})

	limiter := resp.Checks["rate_limiter"].Details
	assert.EqualValues(t, 20, limiter["max_requests"])
	assert.EqualValues(t, 3600000, limiter["window_ms"])
	assert.EqualValues(t, 500, limiter["max_entries"])
	assert.EqualValues(t, 3, limiter["active_entries"])
	assert.NotContains(t, limiter, "max_entries_enforced")

	gen := resp.Checks["generator"].Details
	assert.Equal(t, "claude", gen["provider"])
	assert.Equal(t, "half-open", gen["circuit_breaker"])
}

func TestHealthHandler_StoreErrorIsNotLeaked(t *testing.T) {
	rr, resp := serveHealth(t, &HealthHandler{
		Limiter: &fakeLimiter{err: errors.New("redis://:hunter2@cache:6379 refused"), cfg: limiterConfig()},
	})

	assert.Equal(t, "rate limit store unavailable", resp.Checks["rate_limiter"].Message)
	assert.NotContains(t, rr.Body.String(), "hunter2")
}

func TestHealthHandler_NoChecksConfigured(t *testing.T) {
	rr, resp := serveHealth(t, &HealthHandler{})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestHealthHandler_CacheControl(t *testing.T) {
	rr, _ := serveHealth(t, &HealthHandler{})

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))
}

func TestHealthHandler_RealLimiter(t *testing.T) {
	limiter, err := ratelimit.New(limiterConfig())
	require.NoError(t, err)
	_, err = limiter.Check(context.Background(), "ip:203.0.113.9")
	require.NoError(t, err)

	_, resp := serveHealth(t, &HealthHandler{Limiter: limiter})

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.EqualValues(t, 1, resp.Checks["rate_limiter"].Details["active_entries"])
}

func TestReadyHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		limiter      LimiterProbe
		expectedCode int
		expectedBody string
	}{
		{name: "ready", limiter: &fakeLimiter{cfg: limiterConfig()}, expectedCode: http.StatusOK, expectedBody: "ready"},
		{name: "store down", limiter: &fakeLimiter{err: errors.New("down")}, expectedCode: http.StatusServiceUnavailable, expectedBody: "rate limit store not ready\n"},
		{name: "not configured", limiter: nil, expectedCode: http.StatusServiceUnavailable, expectedBody: "rate limiter not configured\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			(&ReadyHandler{Limiter: tt.limiter}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestLiveHandler_ServeHTTP(t *testing.T) {
	rr := httptest.NewRecorder()
	(&LiveHandler{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alive", rr.Body.String())
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
}

func TestHealthHandler_RedisLimiterIgnoresCapacity(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := ratelimit.Config{MaxRequests: 20, Window: time.Hour, MaxEntries: 2}
	limiter, err := ratelimit.New(cfg, ratelimit.WithStore(ratelimit.NewRedisStore(client, ratelimit.RedisStoreConfig{})))
	require.NoError(t, err)
	for _, id := range []string{"ip:203.0.113.1", "ip:203.0.113.2", "ip:203.0.113.3"} {
		_, err := limiter.Check(context.Background(), id)
		require.NoError(t, err)
	}

	_, resp := serveHealth(t, &HealthHandler{Limiter: limiter})

	check := resp.Checks["rate_limiter"]
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Empty(t, check.Message)
	assert.EqualValues(t, 3, check.Details["active_entries"])
	assert.Equal(t, false, check.Details["max_entries_enforced"])
}

func TestHealthHandler_MemoryLimiterNearCapacity(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Config{MaxRequests: 20, Window: time.Hour, MaxEntries: 2})
	require.NoError(t, err)
	for _, id := range []string{"ip:203.0.113.1", "ip:203.0.113.2"} {
		_, err := limiter.Check(context.Background(), id)
		require.NoError(t, err)
	}

	_, resp := serveHealth(t, &HealthHandler{Limiter: limiter})

	assert.Equal(t, StatusDegraded, resp.Checks["rate_limiter"].Status)
	assert.Equal(t, "rate limit store near capacity", resp.Checks["rate_limiter"].Message)
}
