package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/dzoniops/rental-service/config"
	"github.com/dzoniops/rental-service/db"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	root := &cobra.Command{
		Use:           "rental-service",
		Short:         "Property rental booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(logger), migrateCmd(logger), createAdminCmd(logger))

	if err := root.Execute(); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

// setup loads the configuration and opens the database.
func setup(logger log.Logger) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if cfg.UsesDefaultSecret() {
		level.Warn(logger).Log("msg", "JWT_SECRET is not set, tokens are signed with the default secret")
	}
	if err := db.InitDB(cfg.Database, logger); err != nil {
		return cfg, fmt.Errorf("init database: %w", err)
	}
	return cfg, nil
}

func migrateCmd(logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(logger)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "schema migrated", "driver", cfg.Driver)
			return nil
		},
	}
}
