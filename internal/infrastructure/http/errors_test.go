package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"3tcapital/taxcore/internal/testutil"
)

type failingResponseWriter struct {
	http.ResponseWriter
}

func (f *failingResponseWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
		errors     []string
		withLogger bool
		wantErrors []string
	}{
		{
			name:       "validation failure",
			statusCode: http.StatusBadRequest,
			message:    "invalid transaction request",
			errors:     []string{"lines: required"},
			withLogger: true,
			wantErrors: []string{"lines: required"},
		},
		{
			name:       "provider messages",
			statusCode: http.StatusUnprocessableEntity,
			message:    "AvaTax rejected the transaction",
			errors:     []string{"CompanyNotFound", "Invalid address"},
			wantErrors: []string{"CompanyNotFound", "Invalid address"},
		},
		{
			name:       "nil errors become empty",
			statusCode: http.StatusInternalServerError,
			message:    "internal error",
			errors:     nil,
			withLogger: true,
			wantErrors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			var logger *slog.Logger
			if tt.withLogger {
				logger = testutil.NewNullLogger()
			}

			WriteError(w, tt.statusCode, tt.message, tt.errors, logger)

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			body := testutil.DecodeError(t, w, tt.statusCode)
			if body.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, body.Message)
			}
			if body.Errors == nil {
				t.Fatal("expected errors array, got null")
			}
			if len(body.Errors) != len(tt.wantErrors) {
				t.Fatalf("expected %d errors, got %d", len(tt.wantErrors), len(body.Errors))
			}
			for i := range tt.wantErrors {
				if body.Errors[i] != tt.wantErrors[i] {
					t.Errorf("expected error[%d] %q, got %q", i, tt.wantErrors[i], body.Errors[i])
				}
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"code": "INV-1"}, nil)

	var got map[string]string
	testutil.DecodeJSON(t, w, http.StatusCreated, &got)
	if got["code"] != "INV-1" {
		t.Errorf("expected code INV-1, got %q", got["code"])
	}
}

func TestWriteError_WriteFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &failingResponseWriter{ResponseWriter: rec}

	WriteError(w, http.StatusBadGateway, "upstream", nil, testutil.NewNullLogger())

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, rec.Code)
	}
}
