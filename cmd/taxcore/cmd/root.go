// Package cmd provides the taxcore commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"3tcapital/taxcore/internal/infrastructure/config"
	"3tcapital/taxcore/internal/infrastructure/logger"
)

type rootOptions struct {
	logLevel string
}

// NewRootCommand builds the taxcore command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "taxcore",
		Short: "Build and submit AvaTax transactions",
		Long: `taxcore assembles AvaTax transactions and submits them to the
AvaTax REST v2 API, either as an HTTP gateway or from YAML files.

Configuration is read from the environment and an optional .env file.

Example:
  taxcore serve
  taxcore create -f invoices.yaml --dry-run
  taxcore ping`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newCreateCommand(opts))
	root.AddCommand(newPingCommand(opts))
	root.AddCommand(newMigrateCommand(opts))

	return root
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// load resolves configuration and a logger writing to stderr, so command
// output on stdout stays machine readable.
func (o *rootOptions) load() (config.AppConfig, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log := logger.NewWithWriter(os.Stderr, cfg.App.Name, cfg.Log.Level, cfg.App.Environment)
	return cfg, log, nil
}
