package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{
			name:         "success with map",
			code:         http.StatusOK,
			data:         map[string]string{"content": "copy"},
			expectedBody: `{"content":"copy"}`,
		},
		{
			name:         "success with struct",
			code:         http.StatusOK,
			data:         struct{ Remaining int }{Remaining: 3},
			expectedBody: `{"Remaining":3}`,
		},
		{
			name:         "nil body",
			code:         http.StatusNoContent,
			data:         nil,
			expectedBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %v, want application/json", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.expectedBody {
				t.Errorf("Body = %v, want %v", body, tt.expectedBody)
			}
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()

	// channels cannot be encoded; the status is already written
	JSON(w, http.StatusOK, make(chan int))

	if w.Code != http.StatusOK {
		t.Errorf("Code = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")

	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Too many requests. Please try again later." {
		t.Errorf("error = %q", body.Error)
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		err         error
		expectedMsg string
	}{
		{
			name:        "validation error is returned",
			code:        http.StatusBadRequest,
			err:         errors.New("invalid brief: product is required"),
			expectedMsg: "invalid brief: product is required",
		},
		{
			name:        "length error is returned",
			code:        http.StatusBadRequest,
			err:         errors.New("invalid brief: platform exceeds 120 characters"),
			expectedMsg: "invalid brief: platform exceeds 120 characters",
		},
		{
			name:        "unknown 4xx error is hidden",
			code:        http.StatusBadRequest,
			err:         errors.New("redis: connection pool timeout"),
			expectedMsg: "internal server error",
		},
		{
			name:        "5xx is always hidden",
			code:        http.StatusBadGateway,
			err:         errors.New("invalid response from sk-ant-api03-abcdefghij"),
			expectedMsg: "internal server error",
		},
		{
			name:        "wrapped AppError wins",
			code:        http.StatusInternalServerError,
			err:         fmt.Errorf("handler: %w", NewAppError(http.StatusServiceUnavailable, "Copy generation is temporarily unavailable.", errors.New("circuit open"))),
			expectedMsg: "Copy generation is temporarily unavailable.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			var body ErrorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.expectedMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.expectedMsg)
			}
		})
	}
}

func TestSafeError_AppErrorStatus(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusInternalServerError, NewAppError(http.StatusServiceUnavailable, "busy", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %v, want %v", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSafeError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusInternalServerError, nil)

	if w.Body.Len() != 0 {
		t.Errorf("expected no body, got %q", w.Body.String())
	}
}

func TestAppError(t *testing.T) {
	inner := errors.New("inner")
	appErr := NewAppError(http.StatusBadGateway, "user message", inner)

	if appErr.Error() != "inner" {
		t.Errorf("Error() = %q, want inner", appErr.Error())
	}
	if !errors.Is(appErr, inner) {
		t.Error("AppError should unwrap to the inner error")
	}

	noInner := NewAppError(http.StatusBadRequest, "only user", nil)
	if noInner.Error() != "only user" {
		t.Errorf("Error() = %q, want user message", noInner.Error())
	}
}
