package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"agency-site/internal/handler/http/middleware"
	"agency-site/internal/handler/http/respond"
	"agency-site/internal/observability/logging"
	"agency-site/internal/observability/metrics"
	"agency-site/internal/usecase/copywriting"
	"agency-site/internal/utils/text"
	"agency-site/pkg/ratelimit"
)

// RateLimitedMessage is the error text of every 429 response.
const RateLimitedMessage = "Too many requests. Please try again later."

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Limiter is the subset of *ratelimit.Limiter used by the public handlers.
type Limiter interface {
	Check(ctx context.Context, identifier string) (*ratelimit.Result, error)
	Status(ctx context.Context, identifier string) (*ratelimit.Result, error)
}

// Copywriter validates briefs and generates copy. Implemented by
// *copywriting.Service.
type Copywriter interface {
	ValidateAd(b *copywriting.AdBrief) error
	ValidateEmail(b *copywriting.EmailBrief) error
	GenerateAd(ctx context.Context, b copywriting.AdBrief) (string, error)
	GenerateEmail(ctx context.Context, b copywriting.EmailBrief) (string, error)
}

// Deps holds everything the generation handlers share.
type Deps struct {
	Limiter   Limiter
	Copy      Copywriter
	Extractor middleware.IdentifierExtractor
	Logger    *slog.Logger

	// Clock computes Retry-After. Defaults to the system clock and should
	// be the limiter's clock in tests.
	Clock ratelimit.Clock
}

// AdHandler serves POST /api/generate/ad.
type AdHandler struct{ Deps }

// ServeHTTP 広告コピー生成
func (h AdHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req AdRequest
	if !decode(w, r, &req) {
		metrics.RecordGenerateRequest(metrics.KindAd, metrics.OutcomeInvalid)
		return
	}
	brief := req.brief()
	if err := h.Copy.ValidateAd(&brief); err != nil {
		metrics.RecordGenerateRequest(metrics.KindAd, metrics.OutcomeInvalid)
		writeInvalid(w, err)
		return
	}

	result, ok := h.admit(w, r, metrics.KindAd)
	if !ok {
		return
	}

	content, err := h.Copy.GenerateAd(r.Context(), brief)
	if err != nil {
		h.generationFailed(w, r, metrics.KindAd, err)
		return
	}
	writeGenerated(w, metrics.KindAd, content, result)
}

// EmailHandler serves POST /api/generate/email.
type EmailHandler struct{ Deps }

// ServeHTTP メールコピー生成
func (h EmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req EmailRequest
	if !decode(w, r, &req) {
		metrics.RecordGenerateRequest(metrics.KindEmail, metrics.OutcomeInvalid)
		return
	}
	brief := req.brief()
	if err := h.Copy.ValidateEmail(&brief); err != nil {
		metrics.RecordGenerateRequest(metrics.KindEmail, metrics.OutcomeInvalid)
		writeInvalid(w, err)
		return
	}

	result, ok := h.admit(w, r, metrics.KindEmail)
	if !ok {
		return
	}

	content, err := h.Copy.GenerateEmail(r.Context(), brief)
	if err != nil {
		h.generationFailed(w, r, metrics.KindEmail, err)
		return
	}
	writeGenerated(w, metrics.KindEmail, content, result)
}

// QuotaHandler serves GET /api/generate/quota. It reports the caller's
// quota without consuming any of it.
type QuotaHandler struct{ Deps }

func (h QuotaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	logger := h.logger(r)
	identifier, err := h.Extractor.Identify(r)
	if err != nil {
		logger.Warn("client identifier unavailable",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		respond.Message(w, http.StatusBadRequest, "client could not be identified")
		return
	}

	result, err := h.Limiter.Status(r.Context(), identifier)
	if err != nil {
		logger.Error("rate limit status failed",
			slog.String("identifier", identifier),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}

	setRateLimitHeaders(w, result)
	respond.JSON(w, http.StatusOK, QuotaResponse{
		Limit:     result.Limit,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAtISO(),
		Allowed:   result.Allowed,
	})
}

// admit charges one request to the caller's quota. It writes the response
// and returns false when the request must not proceed to generation.
func (d Deps) admit(w http.ResponseWriter, r *http.Request, kind string) (*ratelimit.Result, bool) {
	logger := d.logger(r)

	identifier, err := d.Extractor.Identify(r)
	if err != nil {
		metrics.RecordGenerateRequest(kind, metrics.OutcomeNoIdentifier)
		logger.Warn("client identifier unavailable",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		respond.Message(w, http.StatusBadRequest, "client could not be identified")
		return nil, false
	}

	result, err := d.Limiter.Check(r.Context(), identifier)
	if err != nil {
		// fail closed: 上限を確認できない場合は生成しない
		metrics.RecordGenerateRequest(kind, metrics.OutcomeStoreError)
		logger.Error("rate limit check failed",
			slog.String("identifier", identifier),
			slog.String("kind", kind),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return nil, false
	}

	setRateLimitHeaders(w, result)

	if !result.Allowed {
		metrics.RecordGenerateRequest(kind, metrics.OutcomeRateLimited)
		logger.Warn("rate limit exceeded",
			slog.String("identifier", identifier),
			slog.String("kind", kind),
			slog.Int("limit", result.Limit),
			slog.String("reset_at", result.ResetAtISO()))
		w.Header().Set(HeaderRetryAfter, strconv.FormatInt(result.RetryAfterSeconds(d.now()), 10))
		respond.JSON(w, http.StatusTooManyRequests, RateLimitedResponse{
			Error:   RateLimitedMessage,
			ResetAt: result.ResetAtISO(),
		})
		return nil, false
	}

	logger.Debug("rate limit admitted",
		slog.String("identifier", identifier),
		slog.String("kind", kind),
		slog.Int("remaining", result.Remaining))
	return result, true
}

// generationFailed maps a copywriting error to a response. The quota already
// charged for the attempt is kept.
func (d Deps) generationFailed(w http.ResponseWriter, r *http.Request, kind string, err error) {
	logger := d.logger(r)

	switch {
	case errors.Is(err, copywriting.ErrInvalidBrief):
		metrics.RecordGenerateRequest(kind, metrics.OutcomeInvalid)
		writeInvalid(w, err)
	case errors.Is(err, copywriting.ErrGeneratorUnavailable):
		metrics.RecordGenerateRequest(kind, metrics.OutcomeUnavailable)
		respond.Message(w, http.StatusServiceUnavailable, "copy generation is temporarily unavailable")
	case errors.Is(err, context.Canceled):
		// client went away; nobody to answer
		metrics.RecordGenerateRequest(kind, metrics.OutcomeCanceled)
		logger.Info("copy generation canceled by client", slog.String("kind", kind))
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordGenerateRequest(kind, metrics.OutcomeTimeout)
		respond.Message(w, http.StatusGatewayTimeout, "copy generation timed out")
	case errors.Is(err, copywriting.ErrEmptyCompletion):
		metrics.RecordGenerateRequest(kind, metrics.OutcomeFailed)
		respond.Message(w, http.StatusBadGateway, "copy generation returned no content")
	default:
		metrics.RecordGenerateRequest(kind, metrics.OutcomeFailed)
		logger.Warn("copy generation failed",
			slog.String("kind", kind),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusBadGateway, "copy generation failed")
	}
}

func (d Deps) logger(r *http.Request) *slog.Logger {
	base := d.Logger
	if base == nil {
		base = slog.Default()
	}
	return logging.WithRequestID(r.Context(), base)
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(result.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	h.Set(HeaderReset, strconv.FormatInt(result.ResetAtUnix(), 10))
}

func writeGenerated(w http.ResponseWriter, kind, content string, result *ratelimit.Result) {
	metrics.RecordCopyGenerated(kind, text.CountRunes(content))
	respond.JSON(w, http.StatusOK, GenerateResponse{
		Content:   content,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAtISO(),
	})
}

func writeInvalid(w http.ResponseWriter, err error) {
	if errors.Is(err, copywriting.ErrInvalidBrief) {
		respond.Message(w, http.StatusBadRequest, err.Error())
		return
	}
	respond.SafeError(w, http.StatusBadRequest, err)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	respond.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decode reads a single JSON object from the body.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Message(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respond.Message(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
