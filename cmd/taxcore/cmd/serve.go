package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	healthhandler "3tcapital/taxcore/internal/adapters/http/health"
	txhandler "3tcapital/taxcore/internal/adapters/http/transaction"
	apphealth "3tcapital/taxcore/internal/application/health"
	"3tcapital/taxcore/internal/infrastructure/http/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway until SIGINT or SIGTERM.

Routes:
  GET  /health
  POST /api/v1/transactions
  POST /api/v1/transactions/preview
  POST /api/v1/transactions/batch
  POST /api/v1/transactions/adjustment-request
  POST /api/v1/companies/{companyCode}/transactions/{transactionCode}/adjust`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.AvaTax.RequireCredentials(); err != nil {
				return err
			}

			ctx := cmd.Context()
			a := bootstrap(ctx, cfg, log)
			defer a.Close()

			healthService := apphealth.NewService(apphealth.Metadata{
				Service:     cfg.App.Name,
				Version:     cfg.App.Version,
				Environment: cfg.App.Environment,
			}, a.healthChecks()...)
			health := healthhandler.NewHandler(healthService, log)

			srv, err := server.New(server.Options{
				Config:             cfg,
				Logger:             log,
				HealthHandler:      http.HandlerFunc(health.Status),
				TransactionHandler: txhandler.NewHandler(a.service, log, cfg.Processing.DefaultInclude, cfg.Processing.MaxBatchSize),
			})
			if err != nil {
				return fmt.Errorf("build server: %w", err)
			}
			defer srv.Close()

			log.Info("Service starting",
				"addr", cfg.HTTP.Address(),
				"environment", cfg.App.Environment,
				"auth_enabled", cfg.Auth.Enabled,
			)
			return srv.Run(ctx)
		},
	}
}
