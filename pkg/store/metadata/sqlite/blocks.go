package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// getBlockRow reads a block row, mapping ErrRecordNotFound to nil.
func getBlockRow(tx *gorm.DB, v deuce.Vault, blockID string) (*blockRow, error) {
	var row blockRow
	err := tx.Where("project_id = ? AND vault_id = ? AND block_id = ?",
		v.ProjectID, v.VaultID, blockID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RegisterBlock binds blockID to storageID. When the block already has a live
// binding the existing one wins and the call is a no-op; the caller decides
// what to do with the now-orphaned upload.
func (s *Store) RegisterBlock(ctx context.Context, v deuce.Vault, blockID, storageID string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		existing, err := getBlockRow(tx, v, blockID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		row := blockRow{
			ProjectID: v.ProjectID,
			VaultID:   v.VaultID,
			BlockID:   blockID,
			StorageID: storageID,
			Size:      size,
			RefTime:   s.now(),
		}
		return tx.Create(&row).Error
	})
}

// UnregisterBlock removes a block's binding if nothing references it.
func (s *Store) UnregisterBlock(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		existing, err := getBlockRow(tx, v, blockID)
		if err != nil {
			return err
		}
		if existing == nil {
			return metadata.NewNotFoundError("block", blockID)
		}

		refs, err := getRefCount(tx, v, blockID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return metadata.NewConstraintError("block is referenced", blockID)
		}

		scope := "project_id = ? AND vault_id = ? AND block_id = ?"
		if err := tx.Where(scope, v.ProjectID, v.VaultID, blockID).Delete(&blockRow{}).Error; err != nil {
			return err
		}
		return tx.Where(scope, v.ProjectID, v.VaultID, blockID).Delete(&refRow{}).Error
	})
}

// HasBlock reports whether blockID has a live binding.
func (s *Store) HasBlock(ctx context.Context, v deuce.Vault, blockID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&blockRow{}).
		Where("project_id = ? AND vault_id = ? AND block_id = ?", v.ProjectID, v.VaultID, blockID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
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

	present := make([]string, 0, len(blockIDs))
	err := s.db.WithContext(ctx).Model(&blockRow{}).
		Where("project_id = ? AND vault_id = ? AND block_id IN ?", v.ProjectID, v.VaultID, blockIDs).
		Pluck("block_id", &present).Error
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(present))
	for _, id := range present {
		have[id] = true
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
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row, err := getBlockRow(tx, v, blockID)
		if err != nil {
			return err
		}
		if row == nil {
			return metadata.NewNotFoundError("block", blockID)
		}

		refs, err := getRefCount(tx, v, blockID)
		if err != nil {
			return err
		}

		block = &metadata.Block{
			BlockID:   blockID,
			StorageID: row.StorageID,
			Size:      row.Size,
			Invalid:   row.Invalid,
			RefTime:   row.RefTime,
			RefCount:  refs,
		}
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
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		var row blockRow
		err := tx.Where("project_id = ? AND vault_id = ? AND storage_id = ?",
			v.ProjectID, v.VaultID, storageID).First(&row).Error
		if err != nil {
			return convertNotFoundError(err, metadata.NewNotFoundError("storage object", storageID))
		}
		blockID = row.BlockID
		return nil
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

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		result := tx.Model(&blockRow{}).
			Where("project_id = ? AND vault_id = ? AND block_id = ?", v.ProjectID, v.VaultID, blockID).
			Update("invalid", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return metadata.NewNotFoundError("block", blockID)
		}
		return nil
	})
}

// ListBlocks lists registered block IDs in lexicographic order, resuming at
// marker (inclusive).
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		q := tx.Model(&blockRow{}).
			Where("project_id = ? AND vault_id = ? AND block_id >= ?", v.ProjectID, v.VaultID, marker).
			Order("block_id")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Pluck("block_id", &ids).Error
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

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}
		return s.incrementRefs(tx, v, blockIDs, delta)
	})
}
