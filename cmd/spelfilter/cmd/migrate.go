package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/spelfilter/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply embedded database migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	ctx := cmd.Context()

	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(ctx, database); err != nil {
		return err
	}
	slog.Info("migrations applied", "driver", database.DriverName())
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	ctx := cmd.Context()

	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied && s.AppliedAt != nil {
			state = "applied " + s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(stdout, "%-32s %s\n", s.ID, state)
	}
	return nil
}
