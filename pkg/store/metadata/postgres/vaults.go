package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// CreateVault records a vault. Creating an existing vault is a no-op so the
// operation stays idempotent for retries.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO vaults (project_id, vault_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, vault_id) DO NOTHING
	`, v.ProjectID, v.VaultID, s.now())
	return err
}

// DeleteVault removes the vault row and everything filed under it.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		tables := []string{"file_blocks", "files", "block_refs", "blocks", "vaults"}
		for _, table := range tables {
			if _, err := tx.Exec(ctx,
				`DELETE FROM `+table+` WHERE project_id = $1 AND vault_id = $2`,
				v.ProjectID, v.VaultID); err != nil {
				return err
			}
		}
		return nil
	})
}

// VaultExists reports whether the vault is recorded.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vaults WHERE project_id = $1 AND vault_id = $2)`,
		v.ProjectID, v.VaultID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListVaults lists a project's vault IDs in lexicographic order, resuming at
// marker (inclusive). A limit of zero means no limit.
func (s *Store) ListVaults(ctx context.Context, projectID, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `
		SELECT vault_id FROM vaults
		WHERE project_id = $1 AND vault_id >= $2
		ORDER BY vault_id
	`
	args := []any{projectID, marker}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VaultStats counts the vault's files and blocks.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*metadata.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &metadata.VaultStats{Internal: map[string]string{}}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM files WHERE project_id = $1 AND vault_id = $2`,
			v.ProjectID, v.VaultID).Scan(&stats.FileCount); err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM blocks WHERE project_id = $1 AND vault_id = $2`,
			v.ProjectID, v.VaultID).Scan(&stats.BlockCount)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
