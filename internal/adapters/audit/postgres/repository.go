package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"3tcapital/taxcore/internal/core/audit"
)

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository stores provider audit logs in PostgreSQL.
type Repository struct {
	db  Querier
	log *slog.Logger
}

var _ audit.Repository = (*Repository)(nil)

// NewRepository creates a repository. log may be nil.
func NewRepository(db Querier, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Repository{db: db, log: log}
}

const insertAuditLog = `
	INSERT INTO provider_audit_log (
		correlation_id, provider, operation, company_code, request_method, request_url,
		request_headers, request_body, response_status, response_headers,
		response_body, duration_ms, error_message
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Save inserts one audit record.
func (r *Repository) Save(ctx context.Context, entry audit.ProviderAuditLog) error {
	requestHeaders, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(entry.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}

	_, err = r.db.Exec(ctx, insertAuditLog,
		entry.CorrelationID,
		entry.Provider,
		entry.Operation,
		nullable(entry.CompanyCode),
		entry.RequestMethod,
		entry.RequestURL,
		requestHeaders,
		jsonb(entry.RequestBody),
		entry.ResponseStatus,
		responseHeaders,
		jsonb(entry.ResponseBody),
		entry.DurationMs,
		nullable(entry.ErrorMessage),
	)
	if err != nil {
		r.log.Error("Failed to insert audit log",
			"correlation_id", entry.CorrelationID,
			"provider", entry.Provider,
			"operation", entry.Operation,
			"error", err,
		)
		return fmt.Errorf("insert audit log: %w", err)
	}

	r.log.Debug("Audit log saved",
		"correlation_id", entry.CorrelationID,
		"provider", entry.Provider,
		"operation", entry.Operation,
		"duration_ms", entry.DurationMs,
	)
	return nil
}

const selectByCorrelationID = `
	SELECT id, correlation_id, provider, operation, COALESCE(company_code, ''),
	       request_method, request_url, request_headers, request_body,
	       response_status, response_headers, response_body, duration_ms,
	       COALESCE(error_message, ''), created_at
	FROM provider_audit_log
	WHERE correlation_id = $1
	ORDER BY created_at DESC
`

// FindByCorrelationID returns the calls recorded for one correlation id.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.ProviderAuditLog, error) {
	rows, err := r.db.Query(ctx, selectByCorrelationID, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []audit.ProviderAuditLog
	for rows.Next() {
		var (
			entry                           audit.ProviderAuditLog
			requestHeaders, responseHeaders []byte
			requestBody, responseBody       []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.CorrelationID,
			&entry.Provider,
			&entry.Operation,
			&entry.CompanyCode,
			&entry.RequestMethod,
			&entry.RequestURL,
			&requestHeaders,
			&requestBody,
			&entry.ResponseStatus,
			&responseHeaders,
			&responseBody,
			&entry.DurationMs,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}

		if len(requestHeaders) > 0 {
			if err := json.Unmarshal(requestHeaders, &entry.RequestHeaders); err != nil {
				return nil, fmt.Errorf("unmarshal request headers: %w", err)
			}
		}
		if len(responseHeaders) > 0 {
			if err := json.Unmarshal(responseHeaders, &entry.ResponseHeaders); err != nil {
				return nil, fmt.Errorf("unmarshal response headers: %w", err)
			}
		}
		entry.RequestBody = requestBody
		entry.ResponseBody = responseBody

		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return logs, nil
}

func jsonb(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
