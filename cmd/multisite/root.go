package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/multisite/pkg/config"
	"github.com/dmitrymomot/multisite/pkg/environment"
	"github.com/dmitrymomot/multisite/pkg/logger"
	"github.com/dmitrymomot/multisite/pkg/requestid"
	mt "github.com/dmitrymomot/multisite/pkg/tenant"
	tenantsvc "github.com/dmitrymomot/multisite/svc/tenant"
)

type appConfig struct {
	Env    string `env:"APP_ENV" envDefault:"production"`
	Logger logger.Config
	Tenant tenantsvc.Config
}

// app is shared by the subcommands. It is filled in by the root pre-run hook.
type app struct {
	envFiles []string

	cfg appConfig
	env environment.Environment
	log *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "multisite",
		Short:         "Multi-tenant host resolution",
		Long:          "Resolves the tenant serving each request from its host name and manages tenants and their domain aliases.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "read environment variables from these files, later files win")

	cmd.AddCommand(
		serveCmd(a),
		migrateCmd(a),
		syncCmd(a),
		seedCmd(a),
	)

	return cmd
}

func (a *app) init() error {
	if len(a.envFiles) > 0 {
		if err := config.LoadEnv(a.envFiles...); err != nil {
			return err
		}
	}

	if err := config.Parse(&a.cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.env = environment.Parse(a.cfg.Env)

	log, err := logger.NewFromConfig(a.cfg.Logger, a.env,
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			mt.LoggerExtractor(),
			environment.LoggerExtractor(),
		),
	)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetAsDefault(log)
	a.log = log

	return nil
}
