package main

import (
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-keepin-auth"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the configured database and exit.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := auth.NewSlogLogger(newLogger(cmd.ErrOrStderr(), cfg.Log)).With("component", "migrate")
	ctx := cmd.Context()

	db, err := openDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.Migrate(ctx, db, logger); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
