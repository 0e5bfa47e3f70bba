package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Apply pending schema changes to the database selected by DATABASE_URL.

PostgreSQL applies the embedded SQL migrations in order and records them in
schema_migrations. SQLite and MySQL are migrated from the model definitions.

Examples:
  face-attendance migrate
  DATABASE_URL=postgres://localhost/attendance face-attendance migrate --status`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "List applied migrations after migrating (PostgreSQL only)")
}

// migrationLister is implemented by backends with versioned migrations.
type migrationLister interface {
	MigrationsApplied(ctx context.Context) ([]string, error)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Schema is up to date (%s)\n", database.Scheme(cfg.Database.URL))

	if !mustGetBool(cmd, "status") {
		return nil
	}
	lister, ok := store.(migrationLister)
	if !ok {
		fmt.Println("This backend does not record migration versions")
		return nil
	}
	versions, err := lister.MigrationsApplied(ctx)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	for _, v := range versions {
		fmt.Printf("  %s\n", v)
	}
	return nil
}
