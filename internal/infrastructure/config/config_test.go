package config

import (
	"os"
	"testing"
	"time"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

var loadKeys = []string{
	"APP_NAME", "APP_VERSION", "APP_ENV", "APP_PORT",
	"HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_REQUEST_TIMEOUT", "HTTP_BATCH_TIMEOUT",
	"HTTP_IDLE_TIMEOUT", "HTTP_SHUTDOWN_TIMEOUT",
	"AUTH_ENABLED", "JWT_ISSUER_URI", "JWT_JWK_SET_URI", "AUTH_CLOCK_SKEW", "AUTH_BYPASS_PATHS",
	"JWT_AUDIENCE", "JWT_REQUIRED_SCOPES",
	"LOG_LEVEL", "DB_ENABLED", "DB_HOST", "DB_PORT", "DB_NAME",
	"AVATAX_ENVIRONMENT", "AVATAX_BASE_URL", "AVATAX_ACCOUNT_ID", "AVATAX_LICENSE_KEY",
	"AVATAX_MAX_CONCURRENT_REQUESTS", "AVATAX_BREAKER_FAILURE_RATE", "AVATAX_BREAKER_MAX_FAILURES",
	"BATCH_WORKER_POOL_SIZE", "BATCH_MAX_SIZE", "AVATAX_DEFAULT_INCLUDE",
}

func TestLoad_DefaultValues(t *testing.T) {
	unsetEnv(t, loadKeys...)
	t.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "taxcore" {
		t.Errorf("expected default app name 'taxcore', got %q", cfg.App.Name)
	}
	if cfg.App.Environment != "local" {
		t.Errorf("expected default environment 'local', got %q", cfg.App.Environment)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.RequestTimeout != 45*time.Second {
		t.Errorf("expected default request timeout 45s, got %v", cfg.HTTP.RequestTimeout)
	}
	if cfg.AvaTax.Environment != "sandbox" {
		t.Errorf("expected sandbox environment, got %q", cfg.AvaTax.Environment)
	}
	if cfg.AvaTax.URL() != "https://sandbox-rest.avatax.com" {
		t.Errorf("expected sandbox URL, got %q", cfg.AvaTax.URL())
	}
	if cfg.AvaTax.BreakerMaxFailures != 10 || cfg.AvaTax.BreakerFailureRate != 0.5 {
		t.Errorf("unexpected breaker defaults %d/%v", cfg.AvaTax.BreakerMaxFailures, cfg.AvaTax.BreakerFailureRate)
	}
	if cfg.Processing.WorkerPoolSize != 4 || cfg.Processing.MaxBatchSize != 500 {
		t.Errorf("unexpected processing defaults %+v", cfg.Processing)
	}
	if len(cfg.Auth.BypassPaths) != 1 || cfg.Auth.BypassPaths[0] != "/health" {
		t.Errorf("expected /health bypass, got %v", cfg.Auth.BypassPaths)
	}
	if cfg.Auth.Audience != "" || len(cfg.Auth.RequiredScopes) != 0 {
		t.Errorf("expected no audience or scopes by default, got %q %v", cfg.Auth.Audience, cfg.Auth.RequiredScopes)
	}
	if cfg.Auth.Enabled {
		t.Error("expected auth disabled")
	}
}

func TestLoad_WithCustomValues(t *testing.T) {
	unsetEnv(t, loadKeys...)
	t.Setenv("APP_NAME", "tax-gateway")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("AVATAX_ENVIRONMENT", "Production")
	t.Setenv("AVATAX_ACCOUNT_ID", "1100012345")
	t.Setenv("AVATAX_LICENSE_KEY", "ABCDEF")
	t.Setenv("AVATAX_BREAKER_FAILURE_RATE", "0.25")
	t.Setenv("BATCH_WORKER_POOL_SIZE", "8")
	t.Setenv("AVATAX_DEFAULT_INCLUDE", "Lines,Summary")
	t.Setenv("JWT_AUDIENCE", "taxcore-api")
	t.Setenv("JWT_REQUIRED_SCOPES", "transactions:write, transactions:read")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "tax-gateway" {
		t.Errorf("expected app name 'tax-gateway', got %q", cfg.App.Name)
	}
	if cfg.HTTP.Address() != ":9090" {
		t.Errorf("expected address ':9090', got %q", cfg.HTTP.Address())
	}
	if cfg.AvaTax.URL() != "https://rest.avatax.com" {
		t.Errorf("expected production URL, got %q", cfg.AvaTax.URL())
	}
	if err := cfg.AvaTax.RequireCredentials(); err != nil {
		t.Errorf("expected credentials present, got %v", err)
	}
	if cfg.AvaTax.BreakerFailureRate != 0.25 {
		t.Errorf("expected failure rate 0.25, got %v", cfg.AvaTax.BreakerFailureRate)
	}
	if cfg.Processing.WorkerPoolSize != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Processing.WorkerPoolSize)
	}
	if cfg.Processing.DefaultInclude != "Lines,Summary" {
		t.Errorf("expected default include, got %q", cfg.Processing.DefaultInclude)
	}
	if cfg.Auth.Audience != "taxcore-api" {
		t.Errorf("expected audience taxcore-api, got %q", cfg.Auth.Audience)
	}
	if len(cfg.Auth.RequiredScopes) != 2 || cfg.Auth.RequiredScopes[1] != "transactions:read" {
		t.Errorf("expected two required scopes, got %v", cfg.Auth.RequiredScopes)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"AVATAX_ENVIRONMENT", "staging", "invalid config: AVATAX_ENVIRONMENT must be 'sandbox' or 'production'"},
		{"AVATAX_MAX_CONCURRENT_REQUESTS", "0", "invalid config: AVATAX_MAX_CONCURRENT_REQUESTS must be greater than 0"},
		{"AVATAX_BREAKER_FAILURE_RATE", "1.5", "invalid config: AVATAX_BREAKER_FAILURE_RATE must be in (0, 1]"},
		{"BATCH_WORKER_POOL_SIZE", "-1", "invalid config: BATCH_WORKER_POOL_SIZE must be greater than 0"},
		{"BATCH_MAX_SIZE", "0", "invalid config: BATCH_MAX_SIZE must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			unsetEnv(t, loadKeys...)
			t.Setenv("AUTH_ENABLED", "false")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil || err.Error() != tt.want {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_AuthEnabled_MissingIssuerURI(t *testing.T) {
	unsetEnv(t, loadKeys...)
	t.Setenv("AUTH_ENABLED", "true")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_ISSUER_URI is missing")
	}
	if err.Error() != "invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_AuthEnabled_MissingJWKSetURI(t *testing.T) {
	unsetEnv(t, loadKeys...)
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("JWT_ISSUER_URI", "https://issuer.example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AUTH_ENABLED=true and JWT_JWK_SET_URI is missing")
	}
	if err.Error() != "invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestAvaTaxSettings(t *testing.T) {
	s := AvaTaxSettings{Environment: "sandbox", BaseURL: "http://localhost:9999"}
	if s.URL() != "http://localhost:9999" {
		t.Errorf("expected base URL override, got %q", s.URL())
	}

	if err := s.RequireCredentials(); err == nil || err.Error() != "invalid config: AVATAX_ACCOUNT_ID is required" {
		t.Errorf("expected missing account error, got %v", err)
	}
	s.AccountID = "1"
	if err := s.RequireCredentials(); err == nil || err.Error() != "invalid config: AVATAX_LICENSE_KEY is required" {
		t.Errorf("expected missing license key error, got %v", err)
	}
}

func TestDatabaseSettings_DSN(t *testing.T) {
	d := DatabaseSettings{Host: "db", Port: 5432, Database: "taxcore", User: "app", Password: "pw", SSLMode: "require"}
	want := "postgres://app:pw@db:5432/taxcore?sslmode=require"
	if d.DSN() != want {
		t.Errorf("expected %q, got %q", want, d.DSN())
	}
}

func TestHTTPSettings_Address(t *testing.T) {
	settings := HTTPSettings{Port: 8080}
	addr := settings.Address()

	if addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", addr)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY", "test-value")

	value := getEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("expected 'test-value', got %q", value)
	}

	value = getEnv("NON_EXISTENT_KEY", "default-value")
	if value != "default-value" {
		t.Errorf("expected 'default-value', got %q", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback bool
		expected bool
	}{
		{"true value", "true", false, true},
		{"false value", "false", true, false},
		{"True value", "True", false, true},
		{"FALSE value", "FALSE", true, false},
		{"invalid value", "invalid", true, true},
		{"missing key", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "TEST_BOOL")
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
			}

			result := getEnvAsBool("TEST_BOOL", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback int
		expected int
	}{
		{"valid int", "123", 0, 123},
		{"zero", "0", 999, 0},
		{"negative", "-10", 0, -10},
		{"invalid value", "not-a-number", 42, 42},
		{"missing key", "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "TEST_INT")
			if tt.envValue != "" {
				os.Setenv("TEST_INT", tt.envValue)
			}

			result := getEnvAsInt("TEST_INT", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback time.Duration
		expected time.Duration
	}{
		{"valid duration", "10s", 0, 10 * time.Second},
		{"minutes", "5m", 0, 5 * time.Minute},
		{"hours", "2h", 0, 2 * time.Hour},
		{"invalid value", "not-a-duration", 30 * time.Second, 30 * time.Second},
		{"empty value", "", 30 * time.Second, 30 * time.Second},
		{"missing key", "", 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "TEST_DURATION")
			if tt.envValue != "" {
				os.Setenv("TEST_DURATION", tt.envValue)
			}

			result := getEnvAsDuration("TEST_DURATION", tt.fallback)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestGetEnvAsCSV(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback []string
		expected []string
	}{
		{
			name:     "single value",
			envValue: "value1",
			fallback: []string{"default"},
			expected: []string{"value1"},
		},
		{
			name:     "multiple values",
			envValue: "value1,value2,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "with spaces",
			envValue: "value1, value2 , value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty values filtered",
			envValue: "value1,,value2, ,value3",
			fallback: []string{"default"},
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "empty string",
			envValue: "",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "only spaces",
			envValue: " , , ",
			fallback: []string{"default"},
			expected: []string{"default"},
		},
		{
			name:     "missing key",
			envValue: "",
			fallback: []string{"default1", "default2"},
			expected: []string{"default1", "default2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "TEST_CSV")
			if tt.envValue != "" {
				os.Setenv("TEST_CSV", tt.envValue)
			}

			result := getEnvAsCSV("TEST_CSV", tt.fallback)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d values, got %d", len(tt.expected), len(result))
				return
			}

			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("expected[%d] %q, got %q", i, expected, result[i])
				}
			}
		})
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	unsetEnv(t, "TEST_FLOAT")
	if got := getEnvAsFloat("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("expected fallback 0.5, got %v", got)
	}
	os.Setenv("TEST_FLOAT", "0.75")
	if got := getEnvAsFloat("TEST_FLOAT", 0.5); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
	os.Setenv("TEST_FLOAT", "half")
	if got := getEnvAsFloat("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("expected fallback on invalid value, got %v", got)
	}
}
