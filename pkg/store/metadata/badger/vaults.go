package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// CreateVault records a vault. Creating an existing vault is a no-op so the
// operation stays idempotent for retries.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		ok, err := vaultExistsTxn(txn, v)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		bytes, err := encodeVaultRecord(&vaultRecord{CreatedAt: s.now()})
		if err != nil {
			return err
		}
		return txn.Set(keyVault(v), bytes)
	})
}

// DeleteVault removes the vault record and everything filed under it.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}
		if err := txn.Delete(keyVault(v)); err != nil {
			return err
		}

		prefixes := [][]byte{
			keyBlockPrefix(v),
			keyStoragePrefix(v),
			keyRefCountPrefix(v),
			keyFilePrefix(v),
			keyAssignmentVaultPrefix(v),
		}
		for _, prefix := range prefixes {
			if err := deletePrefixTxn(txn, prefix); err != nil {
				return err
			}
		}
		return nil
	})
}

// deletePrefixTxn removes every key under prefix.
func deletePrefixTxn(txn *badgerdb.Txn, prefix []byte) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keysToDelete [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keysToDelete = append(keysToDelete, append([]byte{}, it.Item().Key()...))
	}
	for _, key := range keysToDelete {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// VaultExists reports whether the vault is recorded.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var viewErr error
		exists, viewErr = vaultExistsTxn(txn, v)
		return viewErr
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListVaults lists a project's vault IDs in lexicographic order, resuming at
// marker (inclusive).
func (s *Store) ListVaults(ctx context.Context, projectID, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := keyVaultPrefix(projectID)
	seek := append(append([]byte{}, prefix...), marker...)

	ids := make([]string, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
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

// VaultStats counts the vault's files and blocks.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*metadata.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &metadata.VaultStats{Internal: map[string]string{}}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		if err := requireVaultTxn(txn, v); err != nil {
			return err
		}

		var countErr error
		stats.FileCount, countErr = countPrefixTxn(txn, keyFilePrefix(v))
		if countErr != nil {
			return countErr
		}
		stats.BlockCount, countErr = countPrefixTxn(txn, keyBlockPrefix(v))
		return countErr
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// countPrefixTxn counts the keys under prefix without fetching values.
func countPrefixTxn(txn *badgerdb.Txn, prefix []byte) (int64, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var count int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count, nil
}
