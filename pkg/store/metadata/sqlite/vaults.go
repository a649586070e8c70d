package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// CreateVault records a vault. Creating an existing vault is a no-op so the
// operation stays idempotent for retries.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := vaultRow{ProjectID: v.ProjectID, VaultID: v.VaultID, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	return nil
}

// DeleteVault removes the vault row and everything filed under it.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		scope := "project_id = ? AND vault_id = ?"
		for _, model := range []any{&assignmentRow{}, &fileRow{}, &refRow{}, &blockRow{}, &vaultRow{}} {
			if err := tx.Where(scope, v.ProjectID, v.VaultID).Delete(model).Error; err != nil {
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

	var count int64
	err := s.db.WithContext(ctx).Model(&vaultRow{}).
		Where("project_id = ? AND vault_id = ?", v.ProjectID, v.VaultID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListVaults lists a project's vault IDs in lexicographic order, resuming at
// marker (inclusive).
func (s *Store) ListVaults(ctx context.Context, projectID, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&vaultRow{}).
		Where("project_id = ? AND vault_id >= ?", projectID, marker).
		Order("vault_id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	ids := make([]string, 0)
	if err := q.Pluck("vault_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// VaultStats counts the vault's files and blocks.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*metadata.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &metadata.VaultStats{Internal: map[string]string{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		scope := "project_id = ? AND vault_id = ?"
		if err := tx.Model(&fileRow{}).Where(scope, v.ProjectID, v.VaultID).
			Count(&stats.FileCount).Error; err != nil {
			return err
		}
		return tx.Model(&blockRow{}).Where(scope, v.ProjectID, v.VaultID).
			Count(&stats.BlockCount).Error
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
