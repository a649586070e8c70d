package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/painterjd/deuce/pkg/store/metadata/postgres/migrations"
)

// withMigrator opens a migration session over the embedded sources, runs fn
// and closes the connection again. golang-migrate drives database/sql, not
// pgx native.
func withMigrator(ctx context.Context, connString, database string, fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    database,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return fn(m)
}

// runMigrations applies every pending migration. Migrations are safe to run
// concurrently from multiple instances: golang-migrate takes a PostgreSQL
// advisory lock for the duration.
func runMigrations(ctx context.Context, connString, database string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	return withMigrator(ctx, connString, database, func(m *migrate.Migrate) error {
		err := m.Up()
		if err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration failed: %w", err)
		}
		if err == migrate.ErrNoChange {
			logger.Info("No migrations to apply (database is up to date)")
		} else {
			logger.Info("Migrations completed successfully")
		}

		version, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			return fmt.Errorf("failed to get migration version: %w", err)
		}
		if err != migrate.ErrNilVersion {
			logger.Info("Current schema version", "version", version, "dirty", dirty)
			if dirty {
				logger.Warn("Database schema is in dirty state - manual intervention may be required")
			}
		}

		return nil
	})
}

// prepare validates the config before a migration session.
func prepare(cfg *Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RunMigrations applies pending migrations. It backs 'deuce migrate up' for
// deployments that keep auto_migrate off.
func RunMigrations(ctx context.Context, cfg *Config) error {
	if err := prepare(cfg); err != nil {
		return err
	}
	return runMigrations(ctx, cfg.ConnectionString(), cfg.Database, slog.Default())
}

// RollbackMigration rolls the schema back by one migration step. Rolling back
// an empty schema is a no-op.
func RollbackMigration(ctx context.Context, cfg *Config) error {
	if err := prepare(cfg); err != nil {
		return err
	}
	return withMigrator(ctx, cfg.ConnectionString(), cfg.Database, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("rollback failed: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the current schema version. A version of 0 means
// no migration has been applied yet.
func MigrationVersion(ctx context.Context, cfg *Config) (version uint, dirty bool, err error) {
	if err := prepare(cfg); err != nil {
		return 0, false, err
	}
	err = withMigrator(ctx, cfg.ConnectionString(), cfg.Database, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if verr == migrate.ErrNilVersion {
			return nil
		}
		if verr != nil {
			return fmt.Errorf("failed to get migration version: %w", verr)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}
