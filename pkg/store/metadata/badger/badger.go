// Package badger implements the metadata store on BadgerDB, an embedded
// key-value store. It is the default persistent backend: a single data
// directory, no external service to run.
package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// Config holds the BadgerDB driver configuration.
type Config struct {
	// Path is the data directory. BadgerDB creates it if missing.
	Path string `mapstructure:"path"`

	// InMemory runs the database without touching disk. Used by tests.
	InMemory bool `mapstructure:"in_memory"`
}

// Store is a BadgerDB-backed metadata store.
type Store struct {
	db   *badgerdb.DB
	path string
	now  func() int64
}

var _ metadata.Store = (*Store)(nil)

func unixNow() int64 {
	return time.Now().Unix()
}

// New opens (or creates) the BadgerDB database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, metadata.NewInvalidArgumentError("badger metadata store requires a path", "")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, metadata.NewIOError(fmt.Sprintf("failed to open badger database at %s", cfg.Path), err)
	}

	return &Store{db: db, path: cfg.Path, now: unixNow}, nil
}

// Health reports whether the database can serve a read transaction.
func (s *Store) Health(ctx context.Context) []string {
	where := s.path
	if where == "" {
		where = "memory"
	}
	if err := ctx.Err(); err != nil {
		return []string{fmt.Sprintf("badger metadata backend at %s is not active: %v", where, err)}
	}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		return nil
	})
	if err != nil {
		return []string{fmt.Sprintf("badger metadata backend at %s is not active: %v", where, err)}
	}
	return []string{fmt.Sprintf("badger metadata backend at %s is active.", where)}
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================================
// Transaction Helpers
// ============================================================================

// vaultExistsTxn reports whether the vault key is present.
func vaultExistsTxn(txn *badgerdb.Txn, v deuce.Vault) (bool, error) {
	_, err := txn.Get(keyVault(v))
	if err == badgerdb.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// requireVaultTxn returns a not-found store error when the vault is absent.
func requireVaultTxn(txn *badgerdb.Txn, v deuce.Vault) error {
	ok, err := vaultExistsTxn(txn, v)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	return nil
}

// getBlockRecordTxn reads a block record, mapping ErrKeyNotFound to nil.
func getBlockRecordTxn(txn *badgerdb.Txn, v deuce.Vault, blockID string) (*blockRecord, error) {
	item, err := txn.Get(keyBlock(v, blockID))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec *blockRecord
	err = item.Value(func(val []byte) error {
		var decErr error
		rec, decErr = decodeBlockRecord(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// getRefCountTxn reads a block's reference counter. A missing counter is zero.
func getRefCountTxn(txn *badgerdb.Txn, v deuce.Vault, blockID string) (int64, error) {
	item, err := txn.Get(keyRefCount(v, blockID))
	if err == badgerdb.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var count int64
	err = item.Value(func(val []byte) error {
		var decErr error
		count, decErr = decodeInt64(val)
		return decErr
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getFileRecordTxn reads a file record, mapping ErrKeyNotFound to nil.
func getFileRecordTxn(txn *badgerdb.Txn, v deuce.Vault, fileID string) (*fileRecord, error) {
	item, err := txn.Get(keyFile(v, fileID))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec *fileRecord
	err = item.Value(func(val []byte) error {
		var decErr error
		rec, decErr = decodeFileRecord(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// incrementRefsTxn applies counter deltas and stamps RefTime on live blocks.
// Counters for unregistered blocks survive so a later registration keeps its
// references; counters at or below zero are removed.
func (s *Store) incrementRefsTxn(txn *badgerdb.Txn, v deuce.Vault, blockIDs []string, delta int64) error {
	now := s.now()
	for _, blockID := range blockIDs {
		count, err := getRefCountTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		count += delta

		if count <= 0 {
			if err := txn.Delete(keyRefCount(v, blockID)); err != nil {
				return err
			}
		} else {
			if err := txn.Set(keyRefCount(v, blockID), encodeInt64(count)); err != nil {
				return err
			}
		}

		rec, err := getBlockRecordTxn(txn, v, blockID)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		rec.RefTime = now
		bytes, err := encodeBlockRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyBlock(v, blockID), bytes); err != nil {
			return err
		}
	}
	return nil
}
