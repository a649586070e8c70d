package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// getFileRow reads a file row, mapping ErrRecordNotFound to nil.
func getFileRow(tx *gorm.DB, v deuce.Vault, fileID string) (*fileRow, error) {
	var row fileRow
	err := tx.Where("project_id = ? AND vault_id = ? AND file_id = ?",
		v.ProjectID, v.VaultID, fileID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateFile records a new unfinalized file.
func (s *Store) CreateFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row := fileRow{ProjectID: v.ProjectID, VaultID: v.VaultID, FileID: fileID}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return metadata.NewAlreadyExistsError("file", fileID)
			}
			return err
		}
		return nil
	})
}

// GetFile returns the file record.
func (s *Store) GetFile(ctx context.Context, v deuce.Vault, fileID string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file *metadata.File
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row, err := getFileRow(tx, v, fileID)
		if err != nil {
			return err
		}
		if row == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		file = &metadata.File{FileID: fileID, Finalized: row.Finalized, Size: row.Size}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteFile removes the file, its manifest and the references it held.
func (s *Store) DeleteFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row, err := getFileRow(tx, v, fileID)
		if err != nil {
			return err
		}
		if row == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		scope := "project_id = ? AND vault_id = ? AND file_id = ?"

		referenced := make([]string, 0)
		if err := tx.Model(&assignmentRow{}).
			Where(scope, v.ProjectID, v.VaultID, fileID).
			Pluck("block_id", &referenced).Error; err != nil {
			return err
		}

		if err := tx.Where(scope, v.ProjectID, v.VaultID, fileID).Delete(&assignmentRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where(scope, v.ProjectID, v.VaultID, fileID).Delete(&fileRow{}).Error; err != nil {
			return err
		}

		return s.incrementRefs(tx, v, referenced, -1)
	})
}

// AssignBlocks appends manifest rows to an unfinalized file. A row that
// repeats an existing (blockID, byte_offset) pair is skipped so its reference
// is counted once. Sizes resolve from the block's live binding when one
// exists.
func (s *Store) AssignBlocks(ctx context.Context, v deuce.Vault, fileID string, assignments []metadata.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		file, err := getFileRow(tx, v, fileID)
		if err != nil {
			return err
		}
		if file == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if file.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		var added []string
		for _, a := range assignments {
			var count int64
			err := tx.Model(&assignmentRow{}).
				Where("project_id = ? AND vault_id = ? AND file_id = ? AND byte_offset = ? AND block_id = ?",
					v.ProjectID, v.VaultID, fileID, a.Offset, a.BlockID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			row := assignmentRow{
				ProjectID: v.ProjectID,
				VaultID:   v.VaultID,
				FileID:    fileID,
				Offset:    a.Offset,
				BlockID:   a.BlockID,
			}
			block, err := getBlockRow(tx, v, a.BlockID)
			if err != nil {
				return err
			}
			if block != nil {
				size := block.Size
				row.Size = &size
			}

			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			added = append(added, a.BlockID)
		}

		return s.incrementRefs(tx, v, added, 1)
	})
}

// listAssignments scans a file's manifest in offset order, resuming at marker
// (inclusive). A limit of zero means no limit.
func listAssignments(tx *gorm.DB, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	q := tx.Model(&assignmentRow{}).
		Where("project_id = ? AND vault_id = ? AND file_id = ? AND byte_offset >= ?",
			v.ProjectID, v.VaultID, fileID, marker).
		Order("byte_offset")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []assignmentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]metadata.FileBlock, 0, len(rows))
	for _, row := range rows {
		fb := metadata.FileBlock{BlockID: row.BlockID, Offset: row.Offset}
		if row.Size != nil {
			size := *row.Size
			fb.Size = &size
		}
		out = append(out, fb)
	}
	return out, nil
}

// ListFileBlocks lists a file's manifest rows ordered by offset.
func (s *Store) ListFileBlocks(ctx context.Context, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blocks []metadata.FileBlock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row, err := getFileRow(tx, v, fileID)
		if err != nil {
			return err
		}
		if row == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		blocks, err = listAssignments(tx, v, fileID, marker, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// FinalizeFile verifies that the manifest tiles [0, size) without gaps or
// overlaps and flips the file to finalized. Manifest rows missing a size are
// resolved against blocks registered since assignment.
func (s *Store) FinalizeFile(ctx context.Context, v deuce.Vault, fileID string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		row, err := getFileRow(tx, v, fileID)
		if err != nil {
			return err
		}
		if row == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if row.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		assignments, err := listAssignments(tx, v, fileID, 0, 0)
		if err != nil {
			return err
		}

		sizeOf := func(_ context.Context, blockID string) (int64, bool, error) {
			block, lookupErr := getBlockRow(tx, v, blockID)
			if lookupErr != nil {
				return 0, false, lookupErr
			}
			if block == nil {
				return 0, false, nil
			}
			return block.Size, true, nil
		}

		if err := metadata.VerifyTiling(ctx, assignments, size, sizeOf); err != nil {
			return err
		}

		return tx.Model(&fileRow{}).
			Where("project_id = ? AND vault_id = ? AND file_id = ?", v.ProjectID, v.VaultID, fileID).
			Updates(map[string]any{"finalized": true, "size": size}).Error
	})
}

// ListFiles lists file IDs in lexicographic order, resuming at marker
// (inclusive). With finalized set, unfinalized files are filtered out.
func (s *Store) ListFiles(ctx context.Context, v deuce.Vault, marker string, limit int, finalized bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireVault(tx, v); err != nil {
			return err
		}

		q := tx.Model(&fileRow{}).
			Where("project_id = ? AND vault_id = ? AND file_id >= ?", v.ProjectID, v.VaultID, marker).
			Order("file_id")
		if finalized {
			q = q.Where("finalized = ?", true)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Pluck("file_id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
