// Package postgres implements the metadata store on PostgreSQL via pgx. It
// is the backend for multi-node deployments where several API servers share
// one metadata plane.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// Store is a PostgreSQL-backed metadata store.
type Store struct {
	pool *pgxpool.Pool
	cfg  *Config
	now  func() int64
}

var _ metadata.Store = (*Store)(nil)

// New creates a connection pool, optionally runs migrations, and returns the
// store.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, metadata.NewInvalidArgumentError("invalid postgres configuration", err.Error())
	}

	log := logger.With("component", "postgres_metadata_store")

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, metadata.NewInvalidArgumentError("failed to parse connection string", err.Error())
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	// Bound individual statements server-side.
	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", cfg.QueryTimeout.Milliseconds())
	}

	log.Info("Creating PostgreSQL connection pool",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"max_conns", cfg.MaxConns,
		"ssl_mode", cfg.SSLMode,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, metadata.NewUnavailableError("failed to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, metadata.NewUnavailableError("failed to ping PostgreSQL", err)
	}

	if cfg.AutoMigrate {
		log.Info("AutoMigrate is enabled, running migrations...")
		if err := runMigrations(ctx, cfg.ConnectionString(), cfg.Database, log); err != nil {
			pool.Close()
			return nil, metadata.NewIOError("failed to run migrations", err)
		}
	} else {
		log.Debug("AutoMigrate is disabled; run 'deuce migrate' to apply migrations manually")
	}

	return &Store{pool: pool, cfg: cfg, now: func() int64 { return time.Now().Unix() }}, nil
}

// Health reports whether the pool answers a ping.
func (s *Store) Health(ctx context.Context) []string {
	target := fmt.Sprintf("%s:%d/%s", s.cfg.Host, s.cfg.Port, s.cfg.Database)
	if err := s.pool.Ping(ctx); err != nil {
		return []string{fmt.Sprintf("postgres metadata backend at %s is not active: %v", target, err)}
	}
	return []string{fmt.Sprintf("postgres metadata backend at %s is active.", target)}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return metadata.NewUnavailableError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isUniqueViolation checks for a unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// requireVault returns a not-found store error when the vault is absent.
func requireVault(ctx context.Context, tx pgx.Tx, v deuce.Vault) error {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM vaults WHERE project_id = $1 AND vault_id = $2`,
		v.ProjectID, v.VaultID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	return err
}

// getRefCount reads a block's reference counter. A missing row is zero.
func getRefCount(ctx context.Context, tx pgx.Tx, v deuce.Vault, blockID string) (int64, error) {
	var count int64
	err := tx.QueryRow(ctx,
		`SELECT ref_count FROM block_refs WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
		v.ProjectID, v.VaultID, blockID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// incrementRefs applies counter deltas and stamps RefTime on live blocks.
// Counters for unregistered blocks survive so a later registration keeps its
// references; counters at or below zero are removed.
func (s *Store) incrementRefs(ctx context.Context, tx pgx.Tx, v deuce.Vault, blockIDs []string, delta int64) error {
	now := s.now()
	for _, blockID := range blockIDs {
		var count int64
		err := tx.QueryRow(ctx, `
			INSERT INTO block_refs (project_id, vault_id, block_id, ref_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (project_id, vault_id, block_id)
			DO UPDATE SET ref_count = block_refs.ref_count + EXCLUDED.ref_count
			RETURNING ref_count
		`, v.ProjectID, v.VaultID, blockID, delta).Scan(&count)
		if err != nil {
			return err
		}

		if count <= 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM block_refs WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
				v.ProjectID, v.VaultID, blockID); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE blocks SET ref_time = $4 WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
			v.ProjectID, v.VaultID, blockID, now); err != nil {
			return err
		}
	}
	return nil
}
