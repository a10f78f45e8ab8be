package http

import (
	"mime"
	"net/http"

	"agency-site/internal/handler/http/respond"
)

// Input limits enforced by InputValidation.
const (
	MaxForwardedHeaderBytes = 4096
	MaxPathBytes            = 2048
)

// InputValidation returns middleware that rejects malformed requests before
// they reach a handler. It enforces:
//   - X-Forwarded-For size (4KB), since identifiers are derived from it
//   - URI path length (2KB)
//   - Content-Type application/json on requests that carry a body
func InputValidation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.Header.Get("X-Forwarded-For")) > MaxForwardedHeaderBytes {
				respond.Message(w, http.StatusBadRequest, "forwarded header too large")
				return
			}

			if len(r.URL.Path) > MaxPathBytes {
				respond.Message(w, http.StatusRequestURITooLong, "URI too long")
				return
			}

			if hasBody(r) && !isJSON(r.Header.Get("Content-Type")) {
				respond.Message(w, http.StatusUnsupportedMediaType, "content type must be application/json")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	default:
		return false
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
