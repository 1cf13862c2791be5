package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"3tcapital/taxcore/internal/core/audit"
	ctxutil "3tcapital/taxcore/internal/infrastructure/context"
	"3tcapital/taxcore/internal/testutil"
)

func waitSaved(t *testing.T, repo *testutil.MockAuditRepository) audit.ProviderAuditLog {
	t.Helper()
	select {
	case <-repo.Saved():
	case <-time.After(3 * time.Second):
		t.Fatal("audit log was not saved")
	}
	logs := repo.Logs()
	return logs[len(logs)-1]
}

func TestTracedClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(ctxutil.CorrelationIDHeader) != "corr-123" {
			t.Errorf("expected correlation header, got %q", r.Header.Get(ctxutil.CorrelationIDHeader))
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"companyCode":"ACME"`) {
			t.Errorf("request body not forwarded: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"code":"INV-1","totalTax":6.25}`))
	}))
	defer server.Close()

	repo := testutil.NewMockAuditRepository()
	client := NewTracedClient(TracedClientConfig{
		AuditEnabled:    true,
		LogRequestBody:  true,
		LogResponseBody: true,
	}, testutil.NewNullLogger(), repo, "avatax")

	ctx := ctxutil.WithCorrelationID(context.Background(), "corr-123")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/v2/transactions/create?%24include=Lines",
		strings.NewReader(`{"companyCode":"ACME","licenseKey":"secret"}`))
	req.SetBasicAuth("1100012345", "LICENSE")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "INV-1") {
		t.Errorf("response body not restored: %s", body)
	}

	entry := waitSaved(t, repo)
	if entry.CorrelationID != "corr-123" {
		t.Errorf("expected correlation ID corr-123, got %q", entry.CorrelationID)
	}
	if entry.Provider != "avatax" || entry.Operation != "CreateTransaction" {
		t.Errorf("unexpected provider/operation %q/%q", entry.Provider, entry.Operation)
	}
	if entry.CompanyCode != "ACME" {
		t.Errorf("expected company ACME, got %q", entry.CompanyCode)
	}
	if entry.RequestHeaders["Authorization"] != "[REDACTED]" {
		t.Errorf("expected authorization redacted, got %q", entry.RequestHeaders["Authorization"])
	}
	if strings.Contains(string(entry.RequestBody), "secret") {
		t.Errorf("license key leaked into audit body: %s", entry.RequestBody)
	}
	if entry.ResponseStatus == nil || *entry.ResponseStatus != http.StatusCreated {
		t.Errorf("expected response status 201, got %v", entry.ResponseStatus)
	}
	if entry.Failed() {
		t.Error("expected successful audit entry")
	}
}

func TestTracedClient_PersistsAfterContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"INV-1"}`))
	}))
	defer server.Close()

	repo := testutil.NewMockAuditRepository()
	repo.SaveFunc = func(ctx context.Context, _ audit.ProviderAuditLog) error {
		return ctx.Err()
	}
	client := NewTracedClient(TracedClientConfig{AuditEnabled: true}, testutil.NewNullLogger(), repo, "avatax")

	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxutil.WithCorrelationID(ctx, "cancelled")
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/v2/companies/ACME/transactions/INV-1/adjust", strings.NewReader(`{}`))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	cancel()

	entry := waitSaved(t, repo)
	if entry.Operation != "AdjustTransaction" || entry.CompanyCode != "ACME" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestTracedClient_TransportError(t *testing.T) {
	repo := testutil.NewMockAuditRepository()
	client := NewTracedClient(TracedClientConfig{
		AuditEnabled: true,
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}),
	}, testutil.NewNullLogger(), repo, "avatax")

	req, _ := http.NewRequest(http.MethodGet, "https://sandbox-rest.avatax.com/api/v2/utilities/ping", nil)
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected transport error")
	}

	entry := waitSaved(t, repo)
	if entry.CorrelationID == "" {
		t.Error("expected generated correlation ID")
	}
	if entry.Operation != "Ping" || entry.ResponseStatus != nil || !entry.Failed() {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestTracedClient_AuditDisabled(t *testing.T) {
	repo := testutil.NewMockAuditRepository()
	client := NewTracedClient(TracedClientConfig{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return testutil.JSONResponse(http.StatusOK, `{}`), nil
		}),
	}, testutil.NewNullLogger(), repo, "avatax")

	req, _ := http.NewRequest(http.MethodGet, "https://sandbox-rest.avatax.com/api/v2/utilities/ping", nil)
	if _, err := client.Do(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-repo.Saved():
		t.Fatal("expected no audit log when auditing is disabled")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOperation(t *testing.T) {
	tests := []struct {
		method, url, want string
	}{
		{http.MethodPost, "https://sandbox-rest.avatax.com/api/v2/transactions/create", "CreateTransaction"},
		{http.MethodPost, "https://sandbox-rest.avatax.com/api/v2/companies/ACME/transactions/INV-1/adjust", "AdjustTransaction"},
		{http.MethodGet, "https://sandbox-rest.avatax.com/api/v2/utilities/ping", "Ping"},
		{http.MethodGet, "https://sandbox-rest.avatax.com/api/v2/definitions/taxcodes/", "GET_Taxcodes"},
		{http.MethodDelete, "https://sandbox-rest.avatax.com/", "DELETE"},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, tt.url, nil)
		if got := Operation(req); got != tt.want {
			t.Errorf("Operation(%s %s): expected %q, got %q", tt.method, tt.url, tt.want, got)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
