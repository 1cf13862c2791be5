package avatax

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorDetail is one entry of the details array AvaTax attaches to an error.
type ErrorDetail struct {
	Code        string `json:"code"`
	Number      int    `json:"number"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	FaultCode   string `json:"faultCode,omitempty"`
	HelpLink    string `json:"helpLink,omitempty"`
	RefersTo    string `json:"refersTo,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// APIError is a non-2xx response from AvaTax.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Target     string
	Details    []ErrorDetail
}

type errorEnvelope struct {
	Error struct {
		Code    string        `json:"code"`
		Message string        `json:"message"`
		Target  string        `json:"target"`
		Details []ErrorDetail `json:"details"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("avatax %d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("avatax %d: %s", e.StatusCode, msg)
}

// Messages returns the detail messages, falling back to the top-level message.
func (e *APIError) Messages() []string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		m := d.Message
		if d.Description != "" && d.Description != d.Message {
			m = strings.TrimSpace(m + " " + d.Description)
		}
		if m != "" {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 && e.Message != "" {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// Temporary reports whether the failure is on the AvaTax side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsClientError reports whether err is an AvaTax rejection of the request itself.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}
