package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	auditpg "3tcapital/taxcore/internal/adapters/audit/postgres"
	"3tcapital/taxcore/internal/adapters/avatax"
	apphealth "3tcapital/taxcore/internal/application/health"
	apptx "3tcapital/taxcore/internal/application/transaction"
	"3tcapital/taxcore/internal/core/audit"
	"3tcapital/taxcore/internal/infrastructure/cache"
	"3tcapital/taxcore/internal/infrastructure/config"
	"3tcapital/taxcore/internal/infrastructure/database"
	httpinfra "3tcapital/taxcore/internal/infrastructure/http"
)

// pingCacheTTL bounds how often health checks reach AvaTax.
const pingCacheTTL = 15 * time.Second

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg     config.AppConfig
	log     *slog.Logger
	pool    *pgxpool.Pool
	avatax  *avatax.Client
	service *apptx.Service
	ping    *cache.Value[string]
}

// bootstrap wires the AvaTax client and the transaction service. When the
// database is enabled and reachable, provider calls are audited to it; a
// database failure only disables the audit trail.
func bootstrap(ctx context.Context, cfg config.AppConfig, log *slog.Logger) *app {
	a := &app{cfg: cfg, log: log, ping: cache.NewValue[string]()}

	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		pool, err := connect(ctx, cfg.Database, log)
		if err != nil {
			log.Warn("Database unavailable, audit trail will be disabled",
				"error", err,
				"host", cfg.Database.Host,
				"database", cfg.Database.Database,
				"user", cfg.Database.User,
				"password_set", cfg.Database.Password != "",
			)
		} else {
			a.pool = pool
			auditRepo = auditpg.NewRepository(pool, log)
			log.Info("Database connection established", "database", cfg.Database.Database)
		}
	} else {
		log.Info("Database disabled, audit trail will be disabled")
	}

	auditEnabled := cfg.Audit.Enabled && auditRepo != nil
	if cfg.Audit.Enabled && !auditEnabled {
		log.Warn("Audit trail configuration: DISABLED - Database connection required")
	} else {
		log.Info("Audit trail configuration", "enabled", auditEnabled, "max_body_size", cfg.Audit.MaxBodySize)
	}

	traced := httpinfra.NewTracedClient(httpinfra.TracedClientConfig{
		Timeout:         cfg.AvaTax.APITimeout,
		AuditEnabled:    auditEnabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
		MaxConnsPerHost: cfg.AvaTax.MaxConnsPerHost,
	}, log, auditRepo, "avatax")

	a.avatax = avatax.NewClient(avataxConfig(cfg), traced, log)
	a.service = apptx.NewService(a.avatax, a.avatax, log, cfg.Processing.WorkerPoolSize)

	log.Info("AvaTax client configured",
		"environment", cfg.AvaTax.Environment,
		"base_url", cfg.AvaTax.URL(),
		"max_concurrent_requests", cfg.AvaTax.MaxConcurrentRequests,
		"rate_limit_rps", cfg.AvaTax.RateLimitRPS,
		"worker_pool_size", cfg.Processing.WorkerPoolSize,
	)
	return a
}

func connect(ctx context.Context, settings config.DatabaseSettings, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, databaseConfig(settings))
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pool, nil
}

// Close releases the database pool.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func avataxDetail(version string, stats avatax.ClientStats) string {
	return fmt.Sprintf("version %s, circuit %s (%d requests, %.0f%% failed), requests %d/%d active, %d waiting",
		version,
		stats.Breaker.State,
		stats.Breaker.Requests,
		stats.Breaker.FailureRate*100,
		stats.Limiter.Active,
		stats.Limiter.MaxConcurrent,
		stats.Limiter.Waiting,
	)
}

// healthChecks covers AvaTax, which the service cannot work without, and the
// audit database, which it can.
func (a *app) healthChecks() []apphealth.Check {
	checks := []apphealth.Check{{
		Name:     "avatax",
		Critical: true,
		Run: func(ctx context.Context) (string, error) {
			version, err := a.ping.GetOrLoad(ctx, pingCacheTTL, a.pingAvaTax)
			if err != nil {
				return "", err
			}
			return avataxDetail(version, a.avatax.Stats()), nil
		},
	}}

	if a.cfg.Database.Enabled {
		checks = append(checks, apphealth.Check{
			Name: "database",
			Run: func(ctx context.Context) (string, error) {
				if a.pool == nil {
					return "", errors.New("not connected")
				}
				if err := a.pool.Ping(ctx); err != nil {
					return "", err
				}
				stat := a.pool.Stat()
				return fmt.Sprintf("connections %d/%d", stat.TotalConns(), stat.MaxConns()), nil
			},
		})
	}
	return checks
}

// pingAvaTax returns the AvaTax version once the credentials authenticate.
func (a *app) pingAvaTax(ctx context.Context) (string, error) {
	res, err := a.avatax.Ping(ctx)
	if err != nil {
		return "", err
	}
	if !res.Authenticated {
		return "", errors.New("credentials were not authenticated")
	}
	return res.Version, nil
}

func avataxConfig(cfg config.AppConfig) avatax.Config {
	return avatax.Config{
		BaseURL:            cfg.AvaTax.URL(),
		AccountID:          cfg.AvaTax.AccountID,
		LicenseKey:         cfg.AvaTax.LicenseKey,
		AppName:            cfg.App.Name,
		AppVersion:         cfg.App.Version,
		MachineName:        cfg.AvaTax.MachineName,
		MaxConcurrent:      cfg.AvaTax.MaxConcurrentRequests,
		RateLimitRPS:       cfg.AvaTax.RateLimitRPS,
		BreakerMaxFailures: cfg.AvaTax.BreakerMaxFailures,
		BreakerFailureRate: cfg.AvaTax.BreakerFailureRate,
		BreakerCooldown:    cfg.AvaTax.BreakerCooldown,
	}
}

func databaseConfig(s config.DatabaseSettings) database.Config {
	return database.Config{
		Host:            s.Host,
		Port:            s.Port,
		Database:        s.Database,
		User:            s.User,
		Password:        s.Password,
		SSLMode:         s.SSLMode,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}
