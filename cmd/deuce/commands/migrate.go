package commands

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"

	"github.com/painterjd/deuce/pkg/config"
	"github.com/painterjd/deuce/pkg/store/metadata/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
	Long: `Manage schema migrations for the PostgreSQL metadata store.

Migrations are embedded in the binary and applied in order. Deployments
that set metadata.postgres.auto_migrate run them on startup; these
subcommands are for deployments that apply migrations as a separate step.

Other metadata store types (badger, sqlite, memory) manage their own
schema and do not use this command.

Examples:
  # Apply all pending migrations
  deuce migrate up

  # Roll back the most recent migration
  deuce migrate down

  # Show the current schema version
  deuce migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE:  runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE:  runMigrateVersion,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// loadPostgresConfig loads the configuration and decodes the postgres
// driver settings. Migration subcommands only make sense against postgres.
func loadPostgresConfig() (*postgres.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}

	if err := InitLogger(cfg); err != nil {
		return nil, err
	}

	if cfg.Metadata.Type != "postgres" {
		return nil, fmt.Errorf("migrations apply to the postgres metadata store only (configured type: %s)", cfg.Metadata.Type)
	}

	var pgCfg postgres.Config
	if err := mapstructure.Decode(cfg.Metadata.Postgres, &pgCfg); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	return &pgCfg, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	pgCfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}

	if err := postgres.RunMigrations(context.Background(), pgCfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database: %s)\n", pgCfg.Database)
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	pgCfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}

	if err := postgres.RollbackMigration(context.Background(), pgCfg); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, dirty, err := postgres.MigrationVersion(context.Background(), pgCfg)
	if err != nil {
		return fmt.Errorf("failed to read schema version after rollback: %w", err)
	}

	if version == 0 {
		fmt.Println("Rolled back; no migrations remain applied")
	} else {
		fmt.Printf("Rolled back to schema version %d (dirty: %v)\n", version, dirty)
	}
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	pgCfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}

	version, dirty, err := postgres.MigrationVersion(context.Background(), pgCfg)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version == 0 {
		fmt.Println("No migrations applied yet")
		return nil
	}

	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)
	return nil
}
