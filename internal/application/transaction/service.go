package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coretx "3tcapital/taxcore/internal/core/transaction"
	appctx "3tcapital/taxcore/internal/infrastructure/context"
)

// ErrAdjustNotSupported is returned by Adjust when no Adjuster is configured.
var ErrAdjustNotSupported = errors.New("transaction adjustment is not configured")

// Service turns transaction requests into builder calls and submits them.
type Service struct {
	txs         coretx.Service
	adjuster    coretx.Adjuster
	log         *slog.Logger
	workerCount int
}

// NewService creates the application service. adjuster may be nil, in which
// case Adjust fails with ErrAdjustNotSupported. workerCount bounds CreateBatch.
func NewService(txs coretx.Service, adjuster coretx.Adjuster, log *slog.Logger, workerCount int) *Service {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Service{
		txs:         txs,
		adjuster:    adjuster,
		log:         log,
		workerCount: workerCount,
	}
}

// Create builds the transaction described by req and records it.
func (s *Service) Create(ctx context.Context, req Request, include string) (*coretx.Result, error) {
	log := appctx.Logger(ctx, s.log)

	b, err := Assemble(s.txs, req)
	if err != nil {
		log.Warn("Rejected transaction request",
			"company_code", req.CompanyCode,
			"code", req.Code,
			"error", err,
		)
		return nil, err
	}

	start := time.Now()
	result, err := b.Create(ctx, include)
	if err != nil {
		log.Error("Failed to create transaction",
			"company_code", req.CompanyCode,
			"code", req.Code,
			"lines", len(req.Lines),
			"error", err,
		)
		return nil, err
	}

	log.Info("Transaction created",
		"company_code", req.CompanyCode,
		"code", result.Code,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Preview builds the document without sending it.
func (s *Service) Preview(req Request) (coretx.Document, error) {
	b, err := Assemble(nil, req)
	if err != nil {
		return coretx.Document{}, err
	}
	return b.Document()
}

// AdjustmentRequest builds the adjust-transaction payload without sending it.
func (s *Service) AdjustmentRequest(req AdjustRequest) (*coretx.AdjustmentRequest, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	b, err := Assemble(nil, req.NewTransaction)
	if err != nil {
		return nil, err
	}
	return b.CreateAdjustmentRequest(req.Description, req.Reason)
}

// Adjust replaces the committed transaction companyCode/transactionCode.
func (s *Service) Adjust(ctx context.Context, companyCode, transactionCode string, req AdjustRequest) (*coretx.Result, error) {
	if s.adjuster == nil {
		return nil, ErrAdjustNotSupported
	}
	adj, err := s.AdjustmentRequest(req)
	if err != nil {
		return nil, err
	}

	log := appctx.Logger(ctx, s.log)
	result, err := s.adjuster.AdjustTransaction(ctx, companyCode, transactionCode, *adj)
	if err != nil {
		log.Error("Failed to adjust transaction",
			"company_code", companyCode,
			"transaction_code", transactionCode,
			"reason", req.Reason,
			"error", err,
		)
		return nil, fmt.Errorf("adjust %s/%s: %w", companyCode, transactionCode, err)
	}

	log.Info("Transaction adjusted",
		"company_code", companyCode,
		"transaction_code", transactionCode,
		"reason", req.Reason,
	)
	return result, nil
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
}

// CreateBatch creates every request concurrently. Results are in input order;
// a failed request does not stop the others.
func (s *Service) CreateBatch(ctx context.Context, reqs []Request, include string) ([]BatchResult, BatchSummary) {
	ctx, _ = appctx.EnsureCorrelationID(ctx)
	log := appctx.Logger(ctx, s.log)

	start := time.Now()
	results := runBatch(ctx, s.workerCount, reqs, func(ctx context.Context, req Request) (*coretx.Result, error) {
		return s.Create(ctx, req, include)
	})

	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	log.Info("Transaction batch processed",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"workers", s.workerCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, summary
}
