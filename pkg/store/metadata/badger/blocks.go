package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

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

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		existing, err := getBlockRecordTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		rec := &blockRecord{StorageID: storageID, Size: size, RefTime: s.now()}
		bytes, err := encodeBlockRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyBlock(v, blockID), bytes); err != nil {
			return err
		}
		return txn.Set(keyStorage(v, storageID), []byte(blockID))
	})
}

// UnregisterBlock removes a block's binding if nothing references it.
func (s *Store) UnregisterBlock(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getBlockRecordTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("block", blockID)
		}

		refs, err := getRefCountTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return metadata.NewConstraintError("block is referenced", blockID)
		}

		if err := txn.Delete(keyBlock(v, blockID)); err != nil {
			return err
		}
		if err := txn.Delete(keyStorage(v, rec.StorageID)); err != nil {
			return err
		}
		return txn.Delete(keyRefCount(v, blockID))
	})
}

// HasBlock reports whether blockID has a live binding.
func (s *Store) HasBlock(ctx context.Context, v deuce.Vault, blockID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		rec, viewErr := getBlockRecordTxn(txn, v, blockID)
		if viewErr != nil {
			return viewErr
		}
		exists = rec != nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// MissingBlocks returns the subset of blockIDs without a live binding.
func (s *Store) MissingBlocks(ctx context.Context, v deuce.Vault, blockIDs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		for _, blockID := range blockIDs {
			rec, viewErr := getBlockRecordTxn(txn, v, blockID)
			if viewErr != nil {
				return viewErr
			}
			if rec == nil {
				missing = append(missing, blockID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
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
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getBlockRecordTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("block", blockID)
		}

		refs, err := getRefCountTxn(txn, v, blockID)
		if err != nil {
			return err
		}

		block = &metadata.Block{
			BlockID:   blockID,
			StorageID: rec.StorageID,
			Size:      rec.Size,
			Invalid:   rec.Invalid,
			RefTime:   rec.RefTime,
			RefCount:  refs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// BlockIDForStorageID resolves a storage ID through the reverse index.
func (s *Store) BlockIDForStorageID(ctx context.Context, v deuce.Vault, storageID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var blockID string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		item, err := txn.Get(keyStorage(v, storageID))
		if err == badgerdb.ErrKeyNotFound {
			return metadata.NewNotFoundError("storage object", storageID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			blockID = string(val)
			return nil
		})
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

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		rec, err := getBlockRecordTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if rec == nil {
			return metadata.NewNotFoundError("block", blockID)
		}

		rec.Invalid = true
		bytes, err := encodeBlockRecord(rec)
		if err != nil {
			return err
		}
		return txn.Set(keyBlock(v, blockID), bytes)
	})
}

// ListBlocks lists registered block IDs in lexicographic order, resuming at
// marker (inclusive).
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := keyBlockPrefix(v)
	seek := append(append([]byte{}, prefix...), marker...)

	ids := make([]string, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
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

// IncrementRefs adjusts reference counters and stamps RefTime on live blocks.
func (s *Store) IncrementRefs(ctx context.Context, v deuce.Vault, blockIDs []string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}
		return s.incrementRefsTxn(txn, v, blockIDs, delta)
	})
}
