package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"3tcapital/taxcore/internal/core/audit"
)

// MockHTTPClient is a func-field implementation of the Do-only HTTP client.
type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

// Do calls DoFunc if set, otherwise answers 200 with an empty JSON object.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return JSONResponse(http.StatusOK, "{}"), nil
}

// JSONResponse builds an *http.Response carrying body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// MockAuditRepository keeps saved audit logs in memory.
type MockAuditRepository struct {
	SaveFunc func(ctx context.Context, log audit.ProviderAuditLog) error

	mu    sync.Mutex
	saved []audit.ProviderAuditLog
	done  chan struct{}
}

var _ audit.Repository = (*MockAuditRepository)(nil)

// NewMockAuditRepository returns a repository whose Saved channel fires once
// per Save call.
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{done: make(chan struct{}, 64)}
}

func (m *MockAuditRepository) Save(ctx context.Context, log audit.ProviderAuditLog) error {
	m.mu.Lock()
	m.saved = append(m.saved, log)
	m.mu.Unlock()

	var err error
	if m.SaveFunc != nil {
		err = m.SaveFunc(ctx, log)
	}
	if m.done != nil {
		select {
		case m.done <- struct{}{}:
		default:
		}
	}
	return err
}

func (m *MockAuditRepository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.ProviderAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []audit.ProviderAuditLog
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].CorrelationID == correlationID {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

// Saved signals each completed Save.
func (m *MockAuditRepository) Saved() <-chan struct{} {
	return m.done
}

// Logs returns a copy of everything saved so far.
func (m *MockAuditRepository) Logs() []audit.ProviderAuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.ProviderAuditLog(nil), m.saved...)
}
