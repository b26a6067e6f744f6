package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mt "github.com/dmitrymomot/multisite/pkg/tenant"
)

func syncCmd(a *app) *cobra.Command {
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Repair canonical aliases",
		Long: "Rewrites canonical aliases whose domain drifted from their tenant's domain and " +
			"creates the ones that are missing, then clears the resolution cache.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			d, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			svc, resolutions, _ := a.service(d)

			if missingOnly {
				created, err := mt.SyncMissing(ctx, d.store)
				if err != nil {
					return err
				}
				if err := resolutions.Clear(ctx); err != nil {
					return fmt.Errorf("clear resolution cache: %w", err)
				}
				cmd.Printf("created %d canonical alias(es)\n", created)
				return nil
			}

			res, err := svc.SyncAll(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("updated %d and created %d canonical alias(es)\n", res.Updated, res.Created)
			return nil
		},
	}

	cmd.Flags().BoolVar(&missingOnly, "missing-only", false, "only create missing canonical aliases")

	return cmd
}
