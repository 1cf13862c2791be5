package http

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for HTTP clients.
type ClientConfig struct {
	Timeout       time.Duration
	Transport     http.RoundTripper
	CheckRedirect func(req *http.Request, via []*http.Request) error
}

// NewClient creates an HTTP client. A nil config means a 30s timeout and the
// default transport.
func NewClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = &ClientConfig{Timeout: 30 * time.Second}
	}

	client := &http.Client{Timeout: config.Timeout}
	if config.Transport != nil {
		client.Transport = config.Transport
	}
	if config.CheckRedirect != nil {
		client.CheckRedirect = config.CheckRedirect
	}
	return client
}

// NewTransport returns a pooled transport for a single upstream API.
// maxConnsPerHost <= 0 means 50. Response headers may take at least 60s.
func NewTransport(maxConnsPerHost int, timeout time.Duration) *http.Transport {
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = 50
	}
	headerTimeout := timeout
	if headerTimeout < 60*time.Second {
		headerTimeout = 60 * time.Second
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
}
