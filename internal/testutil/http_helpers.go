package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

// DecodeJSON checks the recorder status and decodes its body into v.
func DecodeJSON(t TB, w *httptest.ResponseRecorder, wantStatus int, v any) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("expected status %d, got %d (body: %s)", wantStatus, w.Code, w.Body.String())
		t.FailNow()
	}
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Errorf("failed to decode JSON response: %v", err)
		t.FailNow()
	}
}

// ErrorBody is the shape of error responses written by the gateway.
type ErrorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// DecodeError decodes an error response and checks its status.
func DecodeError(t TB, w *httptest.ResponseRecorder, wantStatus int) ErrorBody {
	t.Helper()
	var body ErrorBody
	DecodeJSON(t, w, wantStatus, &body)
	return body
}

// NewJSONRequest creates a request with body marshaled as JSON. A string or
// []byte body is sent as is.
func NewJSONRequest(method, path string, body any) *http.Request {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		raw, _ = json.Marshal(b)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
