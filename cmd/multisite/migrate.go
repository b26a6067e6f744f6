package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/multisite/pkg/pg"
)

func migrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the tenant and alias schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pool, cfg, err := a.connectPostgres(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if down {
				return pg.Rollback(ctx, pool, cfg, a.log)
			}
			return pg.Migrate(ctx, pool, cfg, a.log)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")

	return cmd
}
