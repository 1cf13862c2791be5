package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"3tcapital/taxcore/internal/testutil"
)

type fakeRow struct {
	applied bool
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.applied
	return nil
}

type fakeDB struct {
	applied  map[string]bool
	execs    []string
	failOn   string
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	f.execs = append(f.execs, sql)
	if strings.HasPrefix(sql, recordMigration) {
		f.applied[args[0].(string)] = true
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	return fakeRow{applied: f.applied[args[0].(string)], err: f.queryErr}
}

func TestMigrations_Ordered(t *testing.T) {
	files, err := Migrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
	if files[0] != "migrations/001_create_provider_audit_log.sql" {
		t.Errorf("expected audit log migration first, got %q", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("migrations out of order: %v", files)
		}
	}
}

func TestRunMigrations(t *testing.T) {
	db := &fakeDB{applied: map[string]bool{}}

	if err := RunMigrations(context.Background(), db, testutil.NewNullLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !db.applied["001_create_provider_audit_log.sql"] || !db.applied["002_index_audit_company_code.sql"] {
		t.Errorf("expected both migrations recorded, got %v", db.applied)
	}
	if !strings.Contains(db.execs[1], "CREATE TABLE IF NOT EXISTS provider_audit_log") {
		t.Errorf("expected audit table migration after bookkeeping table, got %q", db.execs[1])
	}

	// A second run only ensures the bookkeeping table.
	db.execs = nil
	if err := RunMigrations(context.Background(), db, testutil.NewNullLogger()); err != nil {
		t.Fatalf("unexpected error on rerun: %v", err)
	}
	if len(db.execs) != 1 {
		t.Errorf("expected no migrations re-applied, got %d statements", len(db.execs))
	}
}

func TestRunMigrations_Errors(t *testing.T) {
	db := &fakeDB{applied: map[string]bool{}, failOn: "provider_audit_log ("}
	err := RunMigrations(context.Background(), db, testutil.NewNullLogger())
	if err == nil || !strings.Contains(err.Error(), "execute migration 001_create_provider_audit_log.sql") {
		t.Errorf("expected execute error, got %v", err)
	}

	db = &fakeDB{applied: map[string]bool{}, queryErr: errors.New("conn closed")}
	err = RunMigrations(context.Background(), db, testutil.NewNullLogger())
	if err == nil || !strings.Contains(err.Error(), "check migration") {
		t.Errorf("expected check error, got %v", err)
	}
}

func TestConfig_ConnString(t *testing.T) {
	cfg := Config{
		Host: "db", Port: 5432, Database: "taxcore", User: "app", Password: "pw", SSLMode: "disable",
		MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute,
	}
	want := "host=db port=5432 dbname=taxcore user=app password=pw sslmode=disable pool_max_conns=25 pool_min_conns=5 pool_max_conn_lifetime=30m0s"
	if got := cfg.ConnString(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
