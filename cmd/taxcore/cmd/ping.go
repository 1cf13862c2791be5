package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check AvaTax connectivity and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.AvaTax.RequireCredentials(); err != nil {
				return err
			}
			cfg.Database.Enabled = false

			a := bootstrap(cmd.Context(), cfg, log)
			defer a.Close()

			res, err := a.avatax.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping avatax: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Authenticated {
				return fmt.Errorf("avatax did not authenticate account %q", cfg.AvaTax.AccountID)
			}
			return nil
		},
	}
}
