package main

// Run database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate down       # roll back the latest migration
//   go run ./cmd/migrate status     # list applied migrations

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"legaldoc-backend/internal/shared/config"
	"legaldoc-backend/internal/shared/storage/db"
)

type migrateFunc func(ctx context.Context, database *sql.DB) error

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the documents database schema",
		SilenceUsage: true,
		RunE:         withDB(db.RunMigrations, "up"),
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(db.RunMigrations, "up"),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE:  withDB(db.RollbackMigration, "down"),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied migrations",
			Args:  cobra.NoArgs,
			RunE:  withDB(db.MigrationStatus, "status"),
		},
	)
	return root
}

func withDB(fn migrateFunc, name string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer sqlDB.Close()

		if err := fn(ctx, sqlDB); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		cmd.Printf("migrate %s complete\n", name)
		return nil
	}
}
