package main

import (
	"github.com/spf13/cobra"
)

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load tenants and aliases from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()

			svc, _, _ := a.service(d)
			return seedFromFile(cmd, svc, args[0])
		},
	}
}
