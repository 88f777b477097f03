package main

import (
	"github.com/spf13/cobra"

	"aurenix/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger, err := loadConfig()
				if err != nil {
					return err
				}
				pool, err := connectPostgres(cmd.Context(), cfg.Postgres)
				if err != nil {
					return err
				}
				defer pool.Close()

				if err := database.Migrate(cmd.Context(), pool); err != nil {
					return err
				}
				logger.Info().Msg("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := loadConfig()
				if err != nil {
					return err
				}
				pool, err := connectPostgres(cmd.Context(), cfg.Postgres)
				if err != nil {
					return err
				}
				defer pool.Close()

				return database.MigrationStatus(cmd.Context(), pool)
			},
		},
	)
	return cmd
}
