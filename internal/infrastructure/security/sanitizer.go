package security

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const redactedValue = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

// Body fields whose value is replaced entirely. Matching is by substring of
// the lower-cased key.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"licensekey",
	"license_key",
	"apikey",
	"api_key",
	"private_key",
	"credential",
}

// Body fields that identify a taxpayer. Only the last four characters are kept.
var maskedFields = map[string]bool{
	"businessidentificationno": true,
	"exemptionno":              true,
	"taxid":                    true,
}

// SanitizeHeaders flattens headers into a map with credentials redacted.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// SanitizeBody returns body as JSON safe to log or persist. Gzip bodies are
// inflated, binary bodies are base64-wrapped, non-JSON text is wrapped in an
// object and bodies over maxSize are truncated.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		inflated, err := gunzip(body)
		if err != nil {
			return wrap(map[string]any{
				"_binary": true,
				"_format": "gzip (decompression failed)",
				"_size":   len(body),
				"_base64": base64.StdEncoding.EncodeToString(body),
			})
		}
		body = inflated
	}

	if !utf8.Valid(body) {
		return wrap(map[string]any{
			"_binary": true,
			"_format": "binary",
			"_size":   len(body),
			"_base64": base64.StdEncoding.EncodeToString(body),
		})
	}

	if maxSize > 0 && len(body) > maxSize {
		return wrap(map[string]any{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   string(body[:maxSize]),
		})
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return wrap(map[string]any{"_raw": string(body), "_format": "text"})
	}
	return wrap(sanitizeValue(data))
}

func wrap(v any) json.RawMessage {
	out, _ := json.Marshal(v)
	return out
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = sanitizeField(k, inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = sanitizeValue(inner)
		}
		return out
	default:
		return val
	}
}

func sanitizeField(key string, value any) any {
	lower := strings.ToLower(key)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return redactedValue
		}
	}
	if s, ok := value.(string); ok && maskedFields[lower] {
		return MaskTail(s, 4)
	}
	return sanitizeValue(value)
}

// MaskTail replaces all but the last keep characters of s with '*'.
func MaskTail(s string, keep int) string {
	r := []rune(s)
	if len(r) <= keep {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-keep) + string(r[len(r)-keep:])
}

// SanitizeURL redacts credentials in the userinfo and sensitive query values.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User(redactedValue)
	}
	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for key := range q {
			lower := strings.ToLower(key)
			for _, f := range sensitiveFields {
				if strings.Contains(lower, f) {
					q.Set(key, redactedValue)
					changed = true
					break
				}
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String()
}
