package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"agency-site/internal/handler/http/respond"
	"agency-site/internal/handler/http/responsewriter"
)

// Timeout returns middleware that bounds request processing with a context deadline.
//
// The handler runs on the calling goroutine and is expected to honor
// r.Context(). When it returns after the deadline without having written a
// response, a 504 Gateway Timeout is sent on its behalf. Handlers that
// already wrote their own status (for example a 504 mapped from a generator
// timeout) are left alone.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()

			rw := responsewriter.Wrap(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if !rw.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				respond.Message(rw, http.StatusGatewayTimeout, "request timeout")
			}
		})
	}
}
