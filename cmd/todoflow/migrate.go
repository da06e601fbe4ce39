package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todoflow/configs"
	"todoflow/infrastructure/logger"
	"todoflow/repository/mysql"
	"todoflow/repository/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema for the configured driver",
		Long: `Apply the embedded schema for database.driver.

The schema is idempotent and may be applied repeatedly. The in-memory
driver has no schema.

Examples:
  todoflow migrate
  TODOFLOW_DATABASE_DRIVER=mysql TODOFLOW_DATABASE_URL=... todoflow migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			switch cfg.Database.Driver {
			case configs.DriverPostgres:
				pool, err := postgres.NewConnection(&cfg.Database, log)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := postgres.RunMigrations(ctx, pool, log); err != nil {
					return err
				}
			case configs.DriverMySQL:
				db, err := mysql.NewConnection(&cfg.Database, log)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := mysql.RunMigrations(ctx, db, log); err != nil {
					return err
				}
			default:
				log.Info("Nothing to migrate", zap.String("driver", cfg.Database.Driver))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}
