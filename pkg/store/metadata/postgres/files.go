package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// getFileState reads a file row, mapping ErrNoRows to nil.
func getFileState(ctx context.Context, tx pgx.Tx, v deuce.Vault, fileID string) (*metadata.File, error) {
	file := metadata.File{FileID: fileID}
	err := tx.QueryRow(ctx,
		`SELECT finalized, size FROM files WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
		v.ProjectID, v.VaultID, fileID).Scan(&file.Finalized, &file.Size)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateFile records a new unfinalized file.
func (s *Store) CreateFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO files (project_id, vault_id, file_id, finalized, size) VALUES ($1, $2, $3, FALSE, 0)`,
			v.ProjectID, v.VaultID, fileID)
		if isUniqueViolation(err) {
			return metadata.NewAlreadyExistsError("file", fileID)
		}
		return err
	})
}

// GetFile returns the file record.
func (s *Store) GetFile(ctx context.Context, v deuce.Vault, fileID string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file *metadata.File
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		f, err := getFileState(ctx, tx, v, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		file = f
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

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		f, err := getFileState(ctx, tx, v, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		rows, err := tx.Query(ctx,
			`SELECT block_id FROM file_blocks WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
			v.ProjectID, v.VaultID, fileID)
		if err != nil {
			return err
		}
		referenced := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			referenced = append(referenced, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM file_blocks WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
			v.ProjectID, v.VaultID, fileID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM files WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
			v.ProjectID, v.VaultID, fileID); err != nil {
			return err
		}

		return s.incrementRefs(ctx, tx, v, referenced, -1)
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

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		f, err := getFileState(ctx, tx, v, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if f.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		added := make([]string, 0, len(assignments))
		for _, a := range assignments {
			var size *int64
			var blockSize int64
			err := tx.QueryRow(ctx,
				`SELECT size FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
				v.ProjectID, v.VaultID, a.BlockID).Scan(&blockSize)
			if err == nil {
				size = &blockSize
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}

			tag, err := tx.Exec(ctx, `
				INSERT INTO file_blocks (project_id, vault_id, file_id, byte_offset, block_id, size)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (project_id, vault_id, file_id, byte_offset, block_id) DO NOTHING
			`, v.ProjectID, v.VaultID, fileID, a.Offset, a.BlockID, size)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				continue
			}
			added = append(added, a.BlockID)
		}

		return s.incrementRefs(ctx, tx, v, added, 1)
	})
}

// listAssignments scans a file's manifest in offset order, resuming at marker
// (inclusive). A limit of zero means no limit.
func listAssignments(ctx context.Context, tx pgx.Tx, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	query := `
		SELECT block_id, byte_offset, size FROM file_blocks
		WHERE project_id = $1 AND vault_id = $2 AND file_id = $3 AND byte_offset >= $4
		ORDER BY byte_offset, block_id
	`
	args := []any{v.ProjectID, v.VaultID, fileID, marker}
	if limit > 0 {
		query += ` LIMIT $5`
		args = append(args, limit)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]metadata.FileBlock, 0)
	for rows.Next() {
		var fb metadata.FileBlock
		if err := rows.Scan(&fb.BlockID, &fb.Offset, &fb.Size); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// ListFileBlocks lists a file's manifest rows ordered by offset.
func (s *Store) ListFileBlocks(ctx context.Context, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blocks []metadata.FileBlock
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		f, err := getFileState(ctx, tx, v, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		blocks, err = listAssignments(ctx, tx, v, fileID, marker, limit)
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

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		f, err := getFileState(ctx, tx, v, fileID)
		if err != nil {
			return err
		}
		if f == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if f.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		assignments, err := listAssignments(ctx, tx, v, fileID, 0, 0)
		if err != nil {
			return err
		}

		sizeOf := func(ctx context.Context, blockID string) (int64, bool, error) {
			var blockSize int64
			err := tx.QueryRow(ctx,
				`SELECT size FROM blocks WHERE project_id = $1 AND vault_id = $2 AND block_id = $3`,
				v.ProjectID, v.VaultID, blockID).Scan(&blockSize)
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, false, nil
			}
			if err != nil {
				return 0, false, err
			}
			return blockSize, true, nil
		}

		if err := metadata.VerifyTiling(ctx, assignments, size, sizeOf); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE files SET finalized = TRUE, size = $4 WHERE project_id = $1 AND vault_id = $2 AND file_id = $3`,
			v.ProjectID, v.VaultID, fileID, size)
		return err
	})
}

// ListFiles lists file IDs in lexicographic order, resuming at marker
// (inclusive). With finalized set, unfinalized files are filtered out.
func (s *Store) ListFiles(ctx context.Context, v deuce.Vault, marker string, limit int, finalized bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := requireVault(ctx, tx, v); err != nil {
			return err
		}

		query := `
			SELECT file_id FROM files
			WHERE project_id = $1 AND vault_id = $2 AND file_id >= $3
		`
		args := []any{v.ProjectID, v.VaultID, marker}
		if finalized {
			query += ` AND finalized`
		}
		query += ` ORDER BY file_id`
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
