package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"3tcapital/taxcore/internal/core/audit"
	ctxutil "3tcapital/taxcore/internal/infrastructure/context"
	"3tcapital/taxcore/internal/infrastructure/security"
)

// TracedClient logs every outbound provider call and persists a sanitized
// audit record of it in the background.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	provider     string
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int
	auditTimeout time.Duration
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int
	Transport       http.RoundTripper
}

// NewTracedClient creates a traced client for provider. auditRepo may be nil.
func NewTracedClient(cfg TracedClientConfig, log *slog.Logger, auditRepo audit.Repository, provider string) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 100 * 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport(cfg.MaxConnsPerHost, cfg.Timeout)
	}

	return &TracedClient{
		client:       NewClient(&ClientConfig{Timeout: cfg.Timeout, Transport: transport}),
		log:          log,
		auditRepo:    auditRepo,
		provider:     provider,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  cfg.MaxBodySize,
		auditTimeout: 10 * time.Second,
	}
}

// Do sends req, propagating the correlation ID header.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	correlationID := ctxutil.GetCorrelationID(ctx)
	operation := Operation(req)
	start := time.Now()

	if correlationID != "" {
		req.Header.Set(ctxutil.CorrelationIDHeader, correlationID)
	}

	var requestBody []byte
	if req.Body != nil {
		var err error
		requestBody, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			c.log.Error("Failed to read request body for tracing", "error", err, "correlation_id", correlationID)
		}
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	c.logRequest(correlationID, operation, req, requestBody)

	resp, err := c.client.Do(req)
	duration := time.Since(start)

	var responseBody []byte
	if resp != nil && resp.Body != nil {
		responseBody, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(responseBody))
	}

	c.logResponse(correlationID, operation, req, resp, err, duration, responseBody)

	if !c.auditEnabled || c.auditRepo == nil {
		return resp, err
	}

	if correlationID == "" {
		correlationID = ctxutil.NewCorrelationID()
		c.log.Debug("Missing correlation ID, generated one for audit", "correlation_id", correlationID, "operation", operation)
	}

	entry := c.buildAuditLog(correlationID, operation, req, resp, err, duration, requestBody, responseBody)
	go c.persist(entry)

	return resp, err
}

func (c *TracedClient) persist(entry audit.ProviderAuditLog) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Panic in audit log persistence",
				"panic", r,
				"correlation_id", entry.CorrelationID,
				"operation", entry.Operation,
			)
		}
	}()

	// Detached from the request context so the record survives the response.
	ctx, cancel := context.WithTimeout(context.Background(), c.auditTimeout)
	defer cancel()

	if err := c.auditRepo.Save(ctx, entry); err != nil {
		c.log.Error("Failed to persist audit log",
			"error", err,
			"correlation_id", entry.CorrelationID,
			"provider", entry.Provider,
			"operation", entry.Operation,
		)
	}
}

func (c *TracedClient) logRequest(correlationID, operation string, req *http.Request, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
	}
	if c.logReqBody && len(body) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}
	c.log.Info("provider_request", attrs...)
}

func (c *TracedClient) logResponse(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("provider_request_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", resp.StatusCode, "response_size_bytes", len(body))
	if c.logRespBody && len(body) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error("provider_response", attrs...)
	case resp.StatusCode >= 400:
		c.log.Warn("provider_response", attrs...)
	default:
		c.log.Info("provider_response", attrs...)
	}
}

func (c *TracedClient) buildAuditLog(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, requestBody, responseBody []byte) audit.ProviderAuditLog {
	entry := audit.ProviderAuditLog{
		CorrelationID:  correlationID,
		Provider:       c.provider,
		Operation:      operation,
		CompanyCode:    companyCode(req, requestBody),
		RequestMethod:  req.Method,
		RequestURL:     security.SanitizeURL(req.URL.String()),
		RequestHeaders: security.SanitizeHeaders(req.Header),
		RequestBody:    security.SanitizeBody(requestBody, c.maxBodySize),
		DurationMs:     duration.Milliseconds(),
	}
	if resp != nil {
		status := resp.StatusCode
		entry.ResponseStatus = &status
		entry.ResponseHeaders = security.SanitizeHeaders(resp.Header)
		entry.ResponseBody = security.SanitizeBody(responseBody, c.maxBodySize)
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	return entry
}

// Operation names an AvaTax call from its method and path.
func Operation(req *http.Request) string {
	path := strings.Trim(req.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "transactions/create"):
		return "CreateTransaction"
	case strings.HasSuffix(path, "/adjust"):
		return "AdjustTransaction"
	case strings.HasSuffix(path, "utilities/ping"):
		return "Ping"
	}

	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return req.Method
	}
	return req.Method + "_" + strings.ToUpper(last[:1]) + last[1:]
}

// companyCode reads the company from an adjust path or a create body.
func companyCode(req *http.Request, body []byte) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "companies" {
			return parts[i+1]
		}
	}
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		CompanyCode string `json:"companyCode"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.CompanyCode
}

// Client returns the underlying HTTP client.
func (c *TracedClient) Client() *http.Client {
	return c.client
}
