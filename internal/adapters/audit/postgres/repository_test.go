package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"3tcapital/taxcore/internal/core/audit"
	"3tcapital/taxcore/internal/testutil"
)

type fakeQuerier struct {
	execSQL  string
	execArgs []any
	execErr  error
	queryErr error
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func TestRepository_Save(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewRepository(db, testutil.NewNullLogger())

	status := 201
	entry := audit.ProviderAuditLog{
		CorrelationID:   "corr-1",
		Provider:        "avatax",
		Operation:       "CreateTransaction",
		CompanyCode:     "ACME",
		RequestMethod:   "POST",
		RequestURL:      "https://sandbox-rest.avatax.com/api/v2/transactions/create",
		RequestHeaders:  map[string]string{"Authorization": "[REDACTED]"},
		RequestBody:     json.RawMessage(`{"companyCode":"ACME"}`),
		ResponseStatus:  &status,
		ResponseHeaders: map[string]string{"Content-Type": "application/json"},
		DurationMs:      120,
	}

	if err := repo.Save(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(db.execSQL, "INSERT INTO provider_audit_log") {
		t.Errorf("unexpected sql %q", db.execSQL)
	}
	if len(db.execArgs) != 13 {
		t.Fatalf("expected 13 args, got %d", len(db.execArgs))
	}
	if db.execArgs[0] != "corr-1" || db.execArgs[3] != "ACME" {
		t.Errorf("unexpected leading args %v", db.execArgs[:4])
	}
	if string(db.execArgs[6].([]byte)) != `{"Authorization":"[REDACTED]"}` {
		t.Errorf("unexpected request headers %s", db.execArgs[6])
	}
	if db.execArgs[10] != nil {
		t.Errorf("expected empty response body stored as NULL, got %v", db.execArgs[10])
	}
	if db.execArgs[12] != nil {
		t.Errorf("expected empty error message stored as NULL, got %v", db.execArgs[12])
	}
}

func TestRepository_SaveError(t *testing.T) {
	db := &fakeQuerier{execErr: errors.New("relation does not exist")}
	repo := NewRepository(db, nil)

	err := repo.Save(context.Background(), audit.ProviderAuditLog{CorrelationID: "c", Provider: "avatax"})
	if err == nil || !strings.Contains(err.Error(), "insert audit log") {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

func TestRepository_FindByCorrelationIDQueryError(t *testing.T) {
	db := &fakeQuerier{queryErr: errors.New("timeout")}
	repo := NewRepository(db, nil)

	_, err := repo.FindByCorrelationID(context.Background(), "c")
	if err == nil || !strings.Contains(err.Error(), "query audit logs") {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

func TestProviderAuditLog_Failed(t *testing.T) {
	ok, bad := 200, 503
	tests := []struct {
		name  string
		entry audit.ProviderAuditLog
		want  bool
	}{
		{"success", audit.ProviderAuditLog{ResponseStatus: &ok}, false},
		{"server error", audit.ProviderAuditLog{ResponseStatus: &bad}, true},
		{"no response", audit.ProviderAuditLog{ErrorMessage: "dial tcp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Failed(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
