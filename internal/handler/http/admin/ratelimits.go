// Package admin provides operator-only HTTP handlers. They are mounted on the
// internal admin listener and never on the public server.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"agency-site/internal/handler/http/middleware"
	"agency-site/internal/handler/http/respond"
	"agency-site/internal/observability/logging"
	"agency-site/pkg/ratelimit"
)

// Limiter is the subset of *ratelimit.Limiter the admin handlers need.
type Limiter interface {
	Reset(ctx context.Context, identifier string) error
	Status(ctx context.Context, identifier string) (*ratelimit.Result, error)
}

// QuotaStatus is the admin view of one identifier's quota.
type QuotaStatus struct {
	Identifier string `json:"identifier"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	ResetAt    string `json:"resetAt"`
	Allowed    bool   `json:"allowed"`
}

// Register registers the rate limit override routes.
func Register(mux *http.ServeMux, limiter Limiter, logger *slog.Logger) {
	mux.Handle("GET /admin/rate-limits/{identifier}", StatusHandler{Limiter: limiter, Logger: logger})
	mux.Handle("DELETE /admin/rate-limits/{identifier}", ResetHandler{Limiter: limiter, Logger: logger})
}

// ResetHandler clears an identifier's quota so its next request opens a
// fresh window.
type ResetHandler struct {
	Limiter Limiter
	Logger  *slog.Logger
}

func (h ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	logger := requestLogger(r, h.Logger)

	if err := h.Limiter.Reset(r.Context(), identifier); err != nil {
		logger.Error("rate limit reset failed",
			slog.String("identifier", identifier),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusServiceUnavailable, "rate limit store unavailable")
		return
	}

	logger.Info("rate limit reset", slog.String("identifier", identifier))
	w.WriteHeader(http.StatusNoContent)
}

// StatusHandler reports an identifier's quota without consuming it.
type StatusHandler struct {
	Limiter Limiter
	Logger  *slog.Logger
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}

	result, err := h.Limiter.Status(r.Context(), identifier)
	if err != nil {
		requestLogger(r, h.Logger).Error("rate limit status failed",
			slog.String("identifier", identifier),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusServiceUnavailable, "rate limit store unavailable")
		return
	}

	respond.JSON(w, http.StatusOK, QuotaStatus{
		Identifier: result.Identifier,
		Limit:      result.Limit,
		Remaining:  result.Remaining,
		ResetAt:    result.ResetAtISO(),
		Allowed:    result.Allowed,
	})
}

// pathIdentifier reads {identifier}. A bare IP address is accepted and
// normalized to the form the extractor produces ("ip:<addr>").
func pathIdentifier(w http.ResponseWriter, r *http.Request) (string, bool) {
	identifier := strings.TrimSpace(r.PathValue("identifier"))
	if identifier == "" {
		respond.Message(w, http.StatusBadRequest, "identifier is required")
		return "", false
	}
	if addr, err := netip.ParseAddr(identifier); err == nil {
		identifier = middleware.IdentifierPrefix + addr.Unmap().String()
	}
	return identifier, true
}

func requestLogger(r *http.Request, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logging.WithRequestID(r.Context(), logger)
}
