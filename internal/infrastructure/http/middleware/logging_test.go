package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	ctxutil "3tcapital/taxcore/internal/infrastructure/context"
	"3tcapital/taxcore/internal/testutil"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		statusCode int
		wantLevel  string
	}{
		{http.StatusCreated, "INFO"},
		{http.StatusMovedPermanently, "INFO"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			log, buf := captureLogger()
			handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte("body"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil))

			if w.Code != tt.statusCode {
				t.Errorf("expected status code %d, got %d", tt.statusCode, w.Code)
			}

			var record map[string]any
			if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("expected one JSON record: %v", err)
			}
			if record["level"] != tt.wantLevel {
				t.Errorf("expected level %s, got %v", tt.wantLevel, record["level"])
			}
			if record["status"] != float64(tt.statusCode) || record["bytes"] != float64(4) {
				t.Errorf("unexpected status/bytes in %v", record)
			}
		})
	}
}

func TestRequestLogger_CorrelationID(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		requestID string
		want      string
	}{
		{name: "inbound header wins", header: "caller-id", requestID: "req-1", want: "caller-id"},
		{name: "falls back to request id", requestID: "req-1", want: "req-1"},
		{name: "generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set(ctxutil.CorrelationIDHeader, tt.header)
			}
			if tt.requestID != "" {
				req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, tt.requestID))
			}

			var seen string
			handler := RequestLogger(testutil.NewNullLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = ctxutil.GetCorrelationID(r.Context())
			}))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("expected correlation ID in context")
			}
			if tt.want != "" && seen != tt.want {
				t.Errorf("expected correlation ID %q, got %q", tt.want, seen)
			}
			if got := w.Header().Get(ctxutil.CorrelationIDHeader); got != seen {
				t.Errorf("expected response header %q, got %q", seen, got)
			}
		})
	}
}

func TestRequestLogger_UserAgent(t *testing.T) {
	log, buf := captureLogger()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("User-Agent", "taxcore-cli/1.0")

	RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"user_agent":"taxcore-cli/1.0"`) {
		t.Errorf("expected user agent in log, got %s", buf.String())
	}
}

func TestResponseWriter(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: base}

	n, err := rw.Write([]byte("test data"))
	if err != nil || n != 9 {
		t.Fatalf("unexpected write result %d, %v", n, err)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 9 {
		t.Errorf("expected 9 bytes, got %d", rw.bytesWritten)
	}

	base = httptest.NewRecorder()
	rw = &responseWriter{ResponseWriter: base}
	rw.WriteHeader(http.StatusNotFound)
	rw.Write([]byte("x"))
	if rw.statusCode != http.StatusNotFound || base.Code != http.StatusNotFound {
		t.Errorf("expected 404 recorded, got %d/%d", rw.statusCode, base.Code)
	}
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline too far in the future: %v", deadline)
	}

	ok = false
	Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Error("expected no deadline for a zero timeout")
	}
}
