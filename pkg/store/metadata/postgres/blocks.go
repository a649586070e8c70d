package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// RegisterBlock binds blockID to storageID. When the block already has a live
// binding the existing one wins and the call is a no-op; the caller decides
// what to do with the now-orphaned upload.
func (s *Store) RegisterBlock(ctx context.Context, v deuce.Vault, blockID, storageID string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO blocks (project_id, vault_id, block_id, storage_id, size, ref_time)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (project_id, vault_id, block_id) DO NOTHING
		`, v.ProjectID, v.VaultID, blockID, storageID, size, s.now())
		return err
	})
}

// UnregisterBlock removes a block's binding if nothing references it.
func (s *Store) UnregisterBlock(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		var one int
		err := tx.QueryRow(ctx,
			`SELECT 1 FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
			v.ProjectID, v.VaultID, blockID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.NewNotFoundError("block", blockID)
		}
		if err != nil {
			return err
		}

		refs, err := getRefCount(ctx, tx, v, blockID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return metadata.NewConstraintError("block is referenced", blockID)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
			v.ProjectID, v.VaultID, blockID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM block_refs WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
			v.ProjectID, v.VaultID, blockID)
		return err
	})
}

// HasBlock reports whether blockID has a live binding.
func (s *Store) HasBlock(ctx context.Context, v deuce.Vault, blockID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3)`,
		v.ProjectID, v.VaultID, blockID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// MissingBlocks returns the subset of blockIDs without a live binding, in
// input order.
func (s *Store) MissingBlocks(ctx context.Context, v deuce.Vault, blockIDs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(blockIDs) == 0 {
		return []string{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT block_id FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = ANY($3)`,
		v.ProjectID, v.VaultID, blockIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	have := make(map[string]bool, len(blockIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		have[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for _, id := range blockIDs {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// GetBlock returns the full metadata record for a block, reference count
// included.
func (s *Store) GetBlock(ctx context.Context, v deuce.Vault, blockID string) (*metadata.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var block *metadata.Block
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		b := metadata.Block{BlockID: blockID}
		err := tx.QueryRow(ctx, `
			SELECT b.storage_id, b.size, b.invalid, b.ref_time, COALESCE(r.ref_count, 0)
			FROM blocks b
			LEFT JOIN block_refs r
			  ON r.project_id = b.project_id AND r.vault_id = b.vault_id AND r.block_id = b.block_id
			WHERE b.project_id = $1 AND b.vault_id = $2 AND b.block_id = $3
		`, v.ProjectID, v.VaultID, blockID).
			Scan(&b.StorageID, &b.Size, &b.Invalid, &b.RefTime, &b.RefCount)
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.NewNotFoundError("block", blockID)
		}
		if err != nil {
			return err
		}
		block = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// BlockIDForStorageID resolves a storage ID to the block it is bound to.
func (s *Store) BlockIDForStorageID(ctx context.Context, v deuce.Vault, storageID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var blockID string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		err := tx.QueryRow(ctx,
			`SELECT block_id FROM blocks WHERE project_id = $1 AND vault_id = $2 AND storage_id = $3`,
			v.ProjectID, v.VaultID, storageID).Scan(&blockID)
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.NewNotFoundError("storage object", storageID)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return blockID, nil
}

// MarkBlockInvalid flags a block whose storage object went missing.
func (s *Store) MarkBlockInvalid(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE blocks SET invalid = TRUE WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
			v.ProjectID, v.VaultID, blockID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return metadata.NewNotFoundError("block", blockID)
		}
		return nil
	})
}

// ListBlocks lists registered block IDs in lexicographic order, resuming at
// marker (inclusive). A limit of zero means no limit.
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		query := `
			SELECT block_id FROM blocks
			WHERE project_id = $1 AND vault_id = $2 AND block_id >= $3
			ORDER BY block_id
		`
		args := []any{v.ProjectID, v.VaultID, marker}
		if limit > 0 {
			query += ` LIMIT $4`
			args = append(args, limit)
		}

		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// IncrementRefs adjusts reference counters and stamps RefTime on live blocks.
func (s *Store) IncrementRefs(ctx context.Context, v deuce.Vault, blockIDs []string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}
		return s.incrementRefs(ctx, tx, v, blockIDs, delta)
	})
}
