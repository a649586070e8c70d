// Package memory provides an in-memory block storage backend for testing.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// Store is an in-memory implementation of storage.Store for testing.
type Store struct {
	mu     sync.RWMutex
	vaults map[string]map[string][]byte
	closed bool
}

// New creates a new in-memory block storage backend.
func New() *Store {
	return &Store{
		vaults: make(map[string]map[string][]byte),
	}
}

// CreateVault provisions the vault's namespace.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	if _, ok := s.vaults[v.String()]; !ok {
		s.vaults[v.String()] = make(map[string][]byte)
	}
	return nil
}

// DeleteVault removes the vault's namespace if it is empty.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return storage.ErrVaultNotFound
	}
	if len(blocks) > 0 {
		return storage.ErrVaultNotEmpty
	}

	delete(s.vaults, v.String())
	return nil
}

// VaultExists reports whether the vault's namespace exists.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrStoreClosed
	}

	_, ok := s.vaults[v.String()]
	return ok, nil
}

// VaultStats summarizes the vault's storage footprint.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*storage.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return nil, storage.ErrVaultNotFound
	}

	stats := &storage.VaultStats{Internal: map[string]string{}}
	for _, data := range blocks {
		stats.BlockCount++
		stats.TotalSize += int64(len(data))
	}
	return stats, nil
}

// ListBlocks lists storage IDs in lexicographic order, resuming at marker.
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return nil, storage.ErrVaultNotFound
	}

	ids := make([]string, 0, len(blocks))
	for id := range blocks {
		if id >= marker {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// StoreBlock writes a new storage object and returns its storage ID.
func (s *Store) StoreBlock(ctx context.Context, v deuce.Vault, blockID string, data io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := io.ReadAll(io.LimitReader(data, size))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return "", storage.ErrVaultNotFound
	}

	storageID := deuce.NewStorageID(blockID)
	blocks[storageID] = payload
	return storageID, nil
}

// StoreBlocks writes a batch of blocks and returns their storage IDs in input
// order.
func (s *Store) StoreBlocks(ctx context.Context, v deuce.Vault, blocks []storage.Block) ([]string, error) {
	storageIDs := make([]string, 0, len(blocks))
	for _, b := range blocks {
		storageID, err := s.StoreBlock(ctx, v, b.BlockID, bytes.NewReader(b.Data), int64(len(b.Data)))
		if err != nil {
			return nil, err
		}
		storageIDs = append(storageIDs, storageID)
	}
	return storageIDs, nil
}

// BlockExists reports whether a storage object exists.
func (s *Store) BlockExists(ctx context.Context, v deuce.Vault, storageID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return false, storage.ErrVaultNotFound
	}

	_, ok = blocks[storageID]
	return ok, nil
}

// GetBlock opens a storage object for reading.
func (s *Store) GetBlock(ctx context.Context, v deuce.Vault, storageID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return nil, storage.ErrVaultNotFound
	}

	data, ok := blocks[storageID]
	if !ok {
		return nil, storage.ErrBlockNotFound
	}

	// Copy so the caller cannot mutate the stored payload.
	copied := make([]byte, len(data))
	copy(copied, data)
	return io.NopCloser(bytes.NewReader(copied)), nil
}

// BlockSize returns a storage object's length in bytes.
func (s *Store) BlockSize(ctx context.Context, v deuce.Vault, storageID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return 0, storage.ErrVaultNotFound
	}

	data, ok := blocks[storageID]
	if !ok {
		return 0, storage.ErrBlockNotFound
	}
	return int64(len(data)), nil
}

// DeleteBlock removes a storage object.
func (s *Store) DeleteBlock(ctx context.Context, v deuce.Vault, storageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	blocks, ok := s.vaults[v.String()]
	if !ok {
		return storage.ErrVaultNotFound
	}

	if _, ok := blocks[storageID]; !ok {
		return storage.ErrBlockNotFound
	}

	delete(blocks, storageID)
	return nil
}

// Health reports whether the store is open.
func (s *Store) Health(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return []string{"memory storage backend is not active: store is closed"}
	}
	return []string{"memory storage backend is active."}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.vaults = nil
	return nil
}

// Ensure Store implements storage.Store.
var _ storage.Store = (*Store)(nil)
