package avatax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"3tcapital/taxcore/internal/core/transaction"
)

const (
	SandboxURL    = "https://sandbox-rest.avatax.com"
	ProductionURL = "https://rest.avatax.com"

	apiVersion      = "24.2.0"
	maxErrorBodyLog = 512
)

func init() {
	// AvaTax types amounts, quantities and rates as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// HTTPClient interface allows using both standard and traced HTTP clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the AvaTax account and client behaviour settings.
type Config struct {
	BaseURL     string
	AccountID   string
	LicenseKey  string
	AppName     string
	AppVersion  string
	MachineName string

	MaxConcurrent int
	RateLimitRPS  int

	BreakerMaxFailures int
	BreakerFailureRate float64
	BreakerCooldown    time.Duration
}

// Client talks to the AvaTax REST v2 API.
type Client struct {
	cfg        Config
	httpClient HTTPClient
	log        *slog.Logger
	breaker    *CircuitBreaker
	limiter    *RequestLimiter
	tracer     trace.Tracer
}

var (
	_ transaction.Service  = (*Client)(nil)
	_ transaction.Adjuster = (*Client)(nil)
)

// NewClient creates an AvaTax client. An empty BaseURL targets the sandbox.
func NewClient(cfg Config, httpClient HTTPClient, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AppName == "" {
		cfg.AppName = "taxcore"
	}
	if cfg.AppVersion == "" {
		cfg.AppVersion = "1.0"
	}
	if cfg.MachineName == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.MachineName = host
		}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log,
		limiter:    NewRequestLimiter(cfg.MaxConcurrent, cfg.RateLimitRPS),
		tracer:     otel.Tracer("3tcapital/taxcore/avatax"),
	}
	c.breaker = NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerFailureRate, cfg.BreakerCooldown, c.logStateChange)
	return c
}

func (c *Client) logStateChange(from, to BreakerState) {
	if to == BreakerOpen {
		c.log.Warn("AvaTax circuit breaker state changed", "from", from.String(), "to", to.String())
		return
	}
	c.log.Info("AvaTax circuit breaker state changed", "from", from.String(), "to", to.String())
}

// PingResult is the body of the utilities/ping endpoint.
type PingResult struct {
	Version                string `json:"version"`
	Authenticated          bool   `json:"authenticated"`
	AuthenticationType     string `json:"authenticationType,omitempty"`
	AuthenticatedUserName  string `json:"authenticatedUserName,omitempty"`
	AuthenticatedAccountID int64  `json:"authenticatedAccountId,omitempty"`
}

// CreateTransaction records a new transaction. include is passed through as
// the $include query parameter when non-empty.
func (c *Client) CreateTransaction(ctx context.Context, include string, doc transaction.Document) (*transaction.Result, error) {
	ctx, span := c.tracer.Start(ctx, "avatax.CreateTransaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("avatax.company_code", doc.CompanyCode),
			attribute.String("avatax.document_type", string(doc.Type)),
			attribute.String("avatax.document_code", doc.Code),
			attribute.Int("avatax.line_count", len(doc.Lines)),
			attribute.Bool("avatax.commit", doc.Commit),
		),
	)
	defer span.End()

	query := url.Values{}
	if include != "" {
		query.Set("$include", include)
	}

	var result transaction.Result
	if err := c.do(ctx, span, http.MethodPost, "/api/v2/transactions/create", query, doc, &result); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	span.SetAttributes(attribute.String("avatax.transaction_code", result.Code))
	c.log.Info("AvaTax transaction created",
		"company_code", doc.CompanyCode,
		"transaction_code", result.Code,
		"status", result.Status,
		"total_tax", result.TotalTax.String(),
	)
	return &result, nil
}

// AdjustTransaction replaces a committed transaction with req.NewTransaction.
func (c *Client) AdjustTransaction(ctx context.Context, companyCode, transactionCode string, req transaction.AdjustmentRequest) (*transaction.Result, error) {
	ctx, span := c.tracer.Start(ctx, "avatax.AdjustTransaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("avatax.company_code", companyCode),
			attribute.String("avatax.transaction_code", transactionCode),
			attribute.String("avatax.adjustment_reason", string(req.AdjustmentReason)),
		),
	)
	defer span.End()

	path := fmt.Sprintf("/api/v2/companies/%s/transactions/%s/adjust",
		url.PathEscape(companyCode), url.PathEscape(transactionCode))

	var result transaction.Result
	if err := c.do(ctx, span, http.MethodPost, path, nil, req, &result); err != nil {
		return nil, fmt.Errorf("adjust transaction: %w", err)
	}

	c.log.Info("AvaTax transaction adjusted",
		"company_code", companyCode,
		"transaction_code", transactionCode,
		"version", result.Version,
	)
	return &result, nil
}

// Ping checks connectivity and whether the credentials are accepted.
func (c *Client) Ping(ctx context.Context) (*PingResult, error) {
	ctx, span := c.tracer.Start(ctx, "avatax.Ping", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var result PingResult
	if err := c.do(ctx, span, http.MethodGet, "/api/v2/utilities/ping", nil, nil, &result); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	span.SetAttributes(attribute.Bool("avatax.authenticated", result.Authenticated))
	return &result, nil
}

// ClientStats combines the breaker and limiter counters.
type ClientStats struct {
	Breaker BreakerStats
	Limiter LimiterStats
}

// Stats reports the breaker and limiter counters for health reporting.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Breaker: c.breaker.Stats(),
		Limiter: c.limiter.Stats(),
	}
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire request slot: %w", err)
	}
	defer c.limiter.Release()

	// AvaTax rejections are the caller's problem and must not trip the breaker.
	var callErr error
	err := c.breaker.Execute(func() error {
		callErr = c.send(ctx, method, path, query, payload, out)
		if IsClientError(callErr) {
			return nil
		}
		return callErr
	})
	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		c.log.Warn("AvaTax circuit breaker rejected call", "method", method, "path", path, "reason", cbErr.Message)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if callErr != nil {
		span.RecordError(callErr)
		span.SetStatus(codes.Error, callErr.Error())
		return callErr
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.cfg.AccountID, c.cfg.LicenseKey)
	req.Header.Set("X-Avalara-Client", c.clientHeader())

	c.log.Debug("Calling AvaTax", "method", method, "url", endpoint, "body_length", len(payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Failed to execute request to AvaTax", "error", err, "url", endpoint)
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("Failed to read response body from AvaTax", "error", err, "status", resp.StatusCode)
		return fmt.Errorf("read response body: %w", err)
	}

	c.log.Debug("AvaTax API response", "status", resp.StatusCode, "body_length", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, respBody)
		c.log.Error("AvaTax API returned non-OK status",
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"message", apiErr.Message,
		)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.log.Error("Failed to unmarshal AvaTax response", "error", err, "body", truncate(string(respBody), maxErrorBodyLog))
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) clientHeader() string {
	return fmt.Sprintf("%s; %s; Go; %s; %s", c.cfg.AppName, c.cfg.AppVersion, apiVersion, c.cfg.MachineName)
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Error.Code != "" || env.Error.Message != "") {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Target = env.Error.Target
		apiErr.Details = env.Error.Details
		return apiErr
	}
	apiErr.Message = truncate(strings.TrimSpace(string(body)), maxErrorBodyLog)
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
