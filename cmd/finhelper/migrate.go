package main

import (
	"errors"
	"fmt"

	"github.com/yosef2222/FinanceTracker/internal/config"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/infra/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			logger := observability.NewLogger(cfg.LogLevel)
			defer logger.Sync()

			if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			logger.Info("migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			logger := observability.NewLogger(cfg.LogLevel)
			defer logger.Sync()

			if err := postgres.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			logger.Info("migrations rolled back", zap.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}
