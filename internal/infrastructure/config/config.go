package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App        AppSettings
	HTTP       HTTPSettings
	Auth       AuthSettings
	Log        LogSettings
	Database   DatabaseSettings
	Audit      AuditSettings
	AvaTax     AvaTaxSettings
	Processing ProcessingSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Per-request context deadline
	BatchTimeout    time.Duration // Deadline for batch endpoints
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AuthSettings struct {
	Enabled        bool
	IssuerURI      string
	JWKSetURI      string
	Audience       string   // Expected aud claim; empty skips the check
	RequiredScopes []string // Every scope must be granted by the token
	ClockSkew      time.Duration
	BypassPaths    []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Enabled         bool
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuditSettings struct {
	Enabled         bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// AvaTaxSettings configures the AvaTax REST client.
type AvaTaxSettings struct {
	Environment string // "sandbox" or "production"
	BaseURL     string // Overrides the environment URL when set
	AccountID   string
	LicenseKey  string
	MachineName string
	APITimeout  time.Duration

	MaxConcurrentRequests int
	RateLimitRPS          int
	MaxConnsPerHost       int

	BreakerMaxFailures int
	BreakerFailureRate float64
	BreakerCooldown    time.Duration
}

// ProcessingSettings controls batch transaction creation.
type ProcessingSettings struct {
	WorkerPoolSize int
	MaxBatchSize   int
	DefaultInclude string
}

const (
	sandboxURL    = "https://sandbox-rest.avatax.com"
	productionURL = "https://rest.avatax.com"
)

// Load resolves the application configuration from environment variables.
// A .env file in the working directory is loaded first; variables already
// set in the environment take precedence.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "taxcore"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 45*time.Second),
			BatchTimeout:    getEnvAsDuration("HTTP_BATCH_TIMEOUT", 5*time.Minute),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", true),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			Audience:    strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health"}),

			RequiredScopes: getEnvAsCSV("JWT_REQUIRED_SCOPES", nil),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Enabled:         getEnvAsBool("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "taxcore"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Audit: AuditSettings{
			Enabled:         getEnvAsBool("AUDIT_ENABLED", true),
			LogRequestBody:  getEnvAsBool("AUDIT_LOG_REQUEST_BODY", true),
			LogResponseBody: getEnvAsBool("AUDIT_LOG_RESPONSE_BODY", true),
			MaxBodySize:     getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		AvaTax: AvaTaxSettings{
			Environment:           strings.ToLower(getEnv("AVATAX_ENVIRONMENT", "sandbox")),
			BaseURL:               strings.TrimSpace(os.Getenv("AVATAX_BASE_URL")),
			AccountID:             strings.TrimSpace(os.Getenv("AVATAX_ACCOUNT_ID")),
			LicenseKey:            strings.TrimSpace(os.Getenv("AVATAX_LICENSE_KEY")),
			MachineName:           strings.TrimSpace(os.Getenv("AVATAX_MACHINE_NAME")),
			APITimeout:            getEnvAsDuration("AVATAX_API_TIMEOUT", 30*time.Second),
			MaxConcurrentRequests: getEnvAsInt("AVATAX_MAX_CONCURRENT_REQUESTS", 50),
			RateLimitRPS:          getEnvAsInt("AVATAX_RATE_LIMIT_RPS", 50),
			MaxConnsPerHost:       getEnvAsInt("AVATAX_MAX_CONNS_PER_HOST", 50),
			BreakerMaxFailures:    getEnvAsInt("AVATAX_BREAKER_MAX_FAILURES", 10),
			BreakerFailureRate:    getEnvAsFloat("AVATAX_BREAKER_FAILURE_RATE", 0.5),
			BreakerCooldown:       getEnvAsDuration("AVATAX_BREAKER_COOLDOWN", 30*time.Second),
		},
		Processing: ProcessingSettings{
			WorkerPoolSize: getEnvAsInt("BATCH_WORKER_POOL_SIZE", 4),
			MaxBatchSize:   getEnvAsInt("BATCH_MAX_SIZE", 500),
			DefaultInclude: strings.TrimSpace(os.Getenv("AVATAX_DEFAULT_INCLUDE")),
		},
	}

	switch cfg.AvaTax.Environment {
	case "sandbox", "production":
	default:
		return cfg, errors.New("invalid config: AVATAX_ENVIRONMENT must be 'sandbox' or 'production'")
	}
	if cfg.AvaTax.MaxConcurrentRequests <= 0 {
		return cfg, errors.New("invalid config: AVATAX_MAX_CONCURRENT_REQUESTS must be greater than 0")
	}
	if cfg.AvaTax.BreakerFailureRate <= 0 || cfg.AvaTax.BreakerFailureRate > 1 {
		return cfg, errors.New("invalid config: AVATAX_BREAKER_FAILURE_RATE must be in (0, 1]")
	}
	if cfg.Processing.WorkerPoolSize <= 0 {
		return cfg, errors.New("invalid config: BATCH_WORKER_POOL_SIZE must be greater than 0")
	}
	if cfg.Processing.MaxBatchSize <= 0 {
		return cfg, errors.New("invalid config: BATCH_MAX_SIZE must be greater than 0")
	}

	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return cfg, errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return cfg, errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

// URL returns the API base URL for the configured environment.
func (a AvaTaxSettings) URL() string {
	if a.BaseURL != "" {
		return a.BaseURL
	}
	if a.Environment == "production" {
		return productionURL
	}
	return sandboxURL
}

// RequireCredentials fails when the account id or license key is missing.
// Commands that never reach AvaTax skip this check.
func (a AvaTaxSettings) RequireCredentials() error {
	if a.AccountID == "" {
		return errors.New("invalid config: AVATAX_ACCOUNT_ID is required")
	}
	if a.LicenseKey == "" {
		return errors.New("invalid config: AVATAX_LICENSE_KEY is required")
	}
	return nil
}

// DSN returns a pgx connection string.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
