package transaction

import "context"

// Service defines the calculation service a Builder hands its document to.
// This abstraction keeps the builder free of transport, authentication and
// serialization concerns.
type Service interface {
	// CreateTransaction records the document and returns the calculated transaction.
	// include names related objects to echo back and may be empty.
	CreateTransaction(ctx context.Context, include string, doc Document) (*Result, error)
}

// Adjuster submits adjustment requests produced by Builder.CreateAdjustmentRequest.
type Adjuster interface {
	// AdjustTransaction replaces a committed transaction with a corrected document.
	AdjustTransaction(ctx context.Context, companyCode, transactionCode string, req AdjustmentRequest) (*Result, error)
}
