package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForContext blocks until the request context ends or d elapses.
func waitForContext(d time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("completed"))
		case <-r.Context().Done():
		}
	}
}

func TestTimeout_Success(t *testing.T) {
	handler := Timeout(time.Second)(waitForContext(0))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", rec.Body.String())
}

func TestTimeout_DeadlineWritesGatewayTimeout(t *testing.T) {
	handler := Timeout(50 * time.Millisecond)(waitForContext(5 * time.Second))

	rec := httptest.NewRecorder()
	start := time.Now()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate/ad", nil))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"request timeout"}`, rec.Body.String())
}

func TestTimeout_HandlerResponseWins(t *testing.T) {
	// The handler maps the deadline to its own response.
	handler := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTimeout_ZeroDuration(t *testing.T) {
	handler := Timeout(0)(waitForContext(time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestTimeout_ContextPropagation(t *testing.T) {
	var deadline time.Time
	var ok bool

	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	}))

	start := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	require.True(t, ok, "expected context to have deadline")
	assert.WithinDuration(t, start.Add(time.Second), deadline, 100*time.Millisecond)
}

func TestTimeout_ParentCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := Timeout(time.Second)(waitForContext(time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx))

	// Client went away; nothing is written on its behalf.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTimeout_ShorterParentDeadlineWins(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	handler := Timeout(10 * time.Second)(waitForContext(5 * time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(parent))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
