package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"3tcapital/taxcore/internal/adapters/avatax"
	apptx "3tcapital/taxcore/internal/application/transaction"
	coretx "3tcapital/taxcore/internal/core/transaction"
	ctxutil "3tcapital/taxcore/internal/infrastructure/context"
	httperrors "3tcapital/taxcore/internal/infrastructure/http"
	"3tcapital/taxcore/internal/infrastructure/http/middleware"
)

const maxBodyBytes = 5 << 20

// Handler bridges HTTP traffic with the transaction application service.
type Handler struct {
	service        *apptx.Service
	log            *slog.Logger
	defaultInclude string
	maxBatchSize   int
}

// NewHandler creates a transaction handler. defaultInclude is used when a
// create request carries no $include parameter.
func NewHandler(service *apptx.Service, log *slog.Logger, defaultInclude string, maxBatchSize int) *Handler {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &Handler{
		service:        service,
		log:            log,
		defaultInclude: defaultInclude,
		maxBatchSize:   maxBatchSize,
	}
}

// Create handles POST /api/v1/transactions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req apptx.Request
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Create(r.Context(), req, h.include(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, result, h.log)
}

// Preview handles POST /api/v1/transactions/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req apptx.Request
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.service.Preview(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, doc, h.log)
}

// AdjustmentRequest handles POST /api/v1/transactions/adjustment-request.
func (h *Handler) AdjustmentRequest(w http.ResponseWriter, r *http.Request) {
	var req apptx.AdjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	adj, err := h.service.AdjustmentRequest(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, adj, h.log)
}

// Adjust handles POST /api/v1/companies/{companyCode}/transactions/{transactionCode}/adjust.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	companyCode := chi.URLParam(r, "companyCode")
	transactionCode := chi.URLParam(r, "transactionCode")

	var req apptx.AdjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Adjust(r.Context(), companyCode, transactionCode, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, result, h.log)
}

// BatchRequest is the body of POST /api/v1/transactions/batch.
type BatchRequest struct {
	Transactions []apptx.Request `json:"transactions"`
}

// BatchItem is the outcome of one transaction in a batch response.
type BatchItem struct {
	Index   int            `json:"index"`
	Code    string         `json:"code,omitempty"`
	Status  int            `json:"status"`
	Result  *coretx.Result `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// BatchResponse summarises a batch and lists results in request order.
type BatchResponse struct {
	CorrelationID string      `json:"correlationId"`
	Total         int         `json:"total"`
	Succeeded     int         `json:"succeeded"`
	Failed        int         `json:"failed"`
	Results       []BatchItem `json:"results"`
}

// CreateBatch handles POST /api/v1/transactions/batch. Individual failures
// are reported per item; the response itself is 200 unless the batch is
// malformed.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Transactions) == 0 {
		httperrors.WriteError(w, http.StatusBadRequest, "invalid batch request", []string{"transactions: required"}, h.log)
		return
	}
	if len(req.Transactions) > h.maxBatchSize {
		httperrors.WriteError(w, http.StatusBadRequest, "invalid batch request",
			[]string{fmt.Sprintf("transactions: at most %d per batch, got %d", h.maxBatchSize, len(req.Transactions))}, h.log)
		return
	}

	ctx, correlationID := ctxutil.EnsureCorrelationID(r.Context())
	results, summary := h.service.CreateBatch(ctx, req.Transactions, h.include(r))

	resp := BatchResponse{
		CorrelationID: correlationID,
		Total:         summary.Total,
		Succeeded:     summary.Succeeded,
		Failed:        summary.Failed,
		Results:       make([]BatchItem, len(results)),
	}
	for i, res := range results {
		item := BatchItem{Index: res.Index, Code: res.Code, Status: http.StatusCreated, Result: res.Result}
		if res.Err != nil {
			item.Status, item.Message, item.Errors = classify(res.Err)
			item.Result = nil
		}
		resp.Results[i] = item
	}
	httperrors.WriteJSON(w, http.StatusOK, resp, h.log)
}

func (h *Handler) include(r *http.Request) string {
	if include := r.URL.Query().Get("$include"); include != "" {
		return include
	}
	return h.defaultInclude
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httperrors.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large", nil, h.log)
			return false
		}
		httperrors.WriteError(w, http.StatusBadRequest, "invalid request body", []string{err.Error()}, h.log)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, details := classify(err)
	if status >= http.StatusInternalServerError {
		ctxutil.Logger(r.Context(), h.log).Error("Transaction request failed",
			"path", r.URL.Path,
			"caller", middleware.Subject(r.Context()),
			"status", status,
			"error", err,
		)
	}
	httperrors.WriteError(w, status, message, details, h.log)
}

// classify maps service errors to an HTTP status, message and details.
func classify(err error) (int, string, []string) {
	var validationErr *apptx.ValidationError
	var apiErr *avatax.APIError
	var breakerErr *avatax.CircuitBreakerError
	var urlErr *url.Error

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "invalid transaction request", validationErr.Messages()
	case errors.Is(err, coretx.ErrNoLines), errors.Is(err, coretx.ErrTaxDateRequired):
		return http.StatusBadRequest, "invalid transaction", []string{err.Error()}
	case errors.Is(err, apptx.ErrAdjustNotSupported):
		return http.StatusNotImplemented, "transaction adjustment unavailable", []string{err.Error()}
	case errors.As(err, &breakerErr):
		return http.StatusServiceUnavailable, "AvaTax temporarily unavailable", []string{breakerErr.Error()}
	case errors.As(err, &apiErr):
		if !apiErr.Temporary() {
			return http.StatusUnprocessableEntity, "AvaTax rejected the transaction", apiErr.Messages()
		}
		return http.StatusBadGateway, "AvaTax request failed", apiErr.Messages()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "AvaTax request timed out", nil
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled", nil
	case errors.As(err, &urlErr):
		return http.StatusBadGateway, "AvaTax request failed", []string{"upstream connection error"}
	default:
		return http.StatusInternalServerError, "internal error", nil
	}
}
