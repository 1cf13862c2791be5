package cmd

import (
	"github.com/spf13/cobra"

	"3tcapital/taxcore/internal/infrastructure/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the audit database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, databaseConfig(cfg.Database))
			if err != nil {
				return err
			}
			defer pool.Close()

			return database.RunMigrations(ctx, pool, log)
		},
	}
}
