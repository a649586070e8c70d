package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// CreateFile records a new unfinalized file.
func (s *Store) CreateFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		existing, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if existing != nil {
			return metadata.NewAlreadyExistsError("file", fileID)
		}

		bytes, err := encodeFileRecord(&fileRecord{})
		if err != nil {
			return err
		}
		return txn.Set(keyFile(v, fileID), bytes)
	})
}

// GetFile returns the file record.
func (s *Store) GetFile(ctx context.Context, v deuce.Vault, fileID string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file *metadata.File
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		file = &metadata.File{FileID: fileID, Finalized: rec.Finalized, Size: rec.Size}
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

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		assignments, err := listAssignmentsTxn(txn, v, fileID, 0, 0)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyFile(v, fileID)); err != nil {
			return err
		}
		if err := deletePrefixTxn(txn, keyAssignmentPrefix(v, fileID)); err != nil {
			return err
		}

		referenced := make([]string, 0, len(assignments))
		for _, a := range assignments {
			referenced = append(referenced, a.BlockID)
		}
		return s.incrementRefsTxn(txn, v, referenced, -1)
	})
}

// AssignBlocks appends manifest rows to an unfinalized file. A row that
// repeats an existing (blockID, offset) pair is skipped so its reference is
// counted once. Sizes resolve from the block's live binding when one exists.
func (s *Store) AssignBlocks(ctx context.Context, v deuce.Vault, fileID string, assignments []metadata.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if rec.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		var added []string
		for _, a := range assignments {
			key := keyAssignment(v, fileID, a.Offset, a.BlockID)
			_, err := txn.Get(key)
			if err == nil {
				continue
			}
			if err != badgerdb.ErrKeyNotFound {
				return err
			}

			row := &assignmentRecord{BlockID: a.BlockID, Offset: a.Offset}
			block, err := getBlockRecordTxn(txn, v, a.BlockID)
			if err != nil {
				return err
			}
			if block != nil {
				size := block.Size
				row.Size = &size
			}

			bytes, err := encodeAssignmentRecord(row)
			if err != nil {
				return err
			}
			if err := txn.Set(key, bytes); err != nil {
				return err
			}
			added = append(added, a.BlockID)
		}

		return s.incrementRefsTxn(txn, v, added, 1)
	})
}

// listAssignmentsTxn scans a file's manifest in offset order, resuming at
// marker (inclusive). A limit of zero means no limit.
func listAssignmentsTxn(txn *badgerdb.Txn, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	prefix := keyAssignmentPrefix(v, fileID)
	seek := keyAssignmentSeek(v, fileID, marker)

	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	out := make([]metadata.FileBlock, 0)
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		var row *assignmentRecord
		err := it.Item().Value(func(val []byte) error {
			var decErr error
			row, decErr = decodeAssignmentRecord(val)
			return decErr
		})
		if err != nil {
			return nil, err
		}

		fb := metadata.FileBlock{BlockID: row.BlockID, Offset: row.Offset}
		if row.Size != nil {
			size := *row.Size
			fb.Size = &size
		}
		out = append(out, fb)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListFileBlocks lists a file's manifest rows ordered by offset.
func (s *Store) ListFileBlocks(ctx context.Context, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blocks []metadata.FileBlock
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("file", fileID)
		}

		blocks, err = listAssignmentsTxn(txn, v, fileID, marker, limit)
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

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getFileRecordTxn(txn, v, fileID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("file", fileID)
		}
		if rec.Finalized {
			return metadata.NewConstraintError("file is finalized", fileID)
		}

		assignments, err := listAssignmentsTxn(txn, v, fileID, 0, 0)
		if err != nil {
			return err
		}

		sizeOf := func(_ context.Context, blockID string) (int64, bool, error) {
			block, lookupErr := getBlockRecordTxn(txn, v, blockID)
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

		rec.Finalized = true
		rec.Size = size
		bytes, err := encodeFileRecord(rec)
		if err != nil {
			return err
		}
		return txn.Set(keyFile(v, fileID), bytes)
	})
}

// ListFiles lists file IDs in lexicographic order, resuming at marker
// (inclusive). With finalized set, unfinalized files are filtered out.
func (s *Store) ListFiles(ctx context.Context, v deuce.Vault, marker string, limit int, finalized bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := keyFilePrefix(v)
	seek := append(append([]byte{}, prefix...), marker...)

	ids := make([]string, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if finalized {
				var rec *fileRecord
				err := item.Value(func(val []byte) error {
					var decErr error
					rec, decErr = decodeFileRecord(val)
					return decErr
				})
				if err != nil {
					return err
				}
				if !rec.Finalized {
					continue
				}
			}
			ids = append(ids, string(item.Key()[len(prefix):]))
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
