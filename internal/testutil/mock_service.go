package testutil

import (
	"context"
	"sync"

	"3tcapital/taxcore/internal/core/transaction"
)

// MockTransactionService is a mock implementation of transaction.Service and
// transaction.Adjuster for testing. Every call is recorded.
type MockTransactionService struct {
	CreateTransactionFunc func(ctx context.Context, include string, doc transaction.Document) (*transaction.Result, error)
	AdjustTransactionFunc func(ctx context.Context, companyCode, transactionCode string, req transaction.AdjustmentRequest) (*transaction.Result, error)

	mu       sync.Mutex
	created  []CreateCall
	adjusted []AdjustCall
}

// CreateCall captures the arguments of one CreateTransaction call.
type CreateCall struct {
	Include  string
	Document transaction.Document
}

// AdjustCall captures the arguments of one AdjustTransaction call.
type AdjustCall struct {
	CompanyCode     string
	TransactionCode string
	Request         transaction.AdjustmentRequest
}

// CreateTransaction records the call and delegates to the mock function if set,
// otherwise echoes the document code back in a committed result.
func (m *MockTransactionService) CreateTransaction(ctx context.Context, include string, doc transaction.Document) (*transaction.Result, error) {
	m.mu.Lock()
	m.created = append(m.created, CreateCall{Include: include, Document: doc})
	m.mu.Unlock()

	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, include, doc)
	}
	return &transaction.Result{
		Code:         doc.Code,
		Type:         doc.Type,
		CustomerCode: doc.CustomerCode,
		Status:       "Saved",
	}, nil
}

// AdjustTransaction records the call and delegates to the mock function if set,
// otherwise returns an adjusted result.
func (m *MockTransactionService) AdjustTransaction(ctx context.Context, companyCode, transactionCode string, req transaction.AdjustmentRequest) (*transaction.Result, error) {
	m.mu.Lock()
	m.adjusted = append(m.adjusted, AdjustCall{CompanyCode: companyCode, TransactionCode: transactionCode, Request: req})
	m.mu.Unlock()

	if m.AdjustTransactionFunc != nil {
		return m.AdjustTransactionFunc(ctx, companyCode, transactionCode, req)
	}
	return &transaction.Result{
		Code:             transactionCode,
		Status:           "Adjusted",
		AdjustmentReason: string(req.AdjustmentReason),
	}, nil
}

// CreateCalls returns a snapshot of the recorded CreateTransaction calls.
func (m *MockTransactionService) CreateCalls() []CreateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreateCall(nil), m.created...)
}

// AdjustCalls returns a snapshot of the recorded AdjustTransaction calls.
func (m *MockTransactionService) AdjustCalls() []AdjustCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AdjustCall(nil), m.adjusted...)
}

// Ensure MockTransactionService implements the collaborator interfaces.
var (
	_ transaction.Service  = (*MockTransactionService)(nil)
	_ transaction.Adjuster = (*MockTransactionService)(nil)
)
