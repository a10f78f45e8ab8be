package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"agency-site/internal/handler/http/requestid"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the log level and output format.
type Config struct {
	Level  slog.Level
	Format string
}

// LoadConfig reads LOG_LEVEL (debug, info, warn, error; default info) and
// LOG_FORMAT (json or text; default json). Unknown values fall back to the
// defaults so a typo never prevents startup.
func LoadConfig() Config {
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format != FormatText {
		format = FormatJSON
	}
	return Config{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: format,
	}
}

// ParseLevel maps a level name to slog.Level. Unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w.
// Source locations are attached only at debug level.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// NewLogger creates the process logger on stdout from LoadConfig.
func NewLogger() *slog.Logger {
	return New(os.Stdout, LoadConfig())
}

// WithRequestID returns a new logger that includes the request ID from the context.
// This enables request tracing across log entries.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With("request_id", reqID)
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
