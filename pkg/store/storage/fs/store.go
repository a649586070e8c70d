// Package fs provides a filesystem-backed block storage backend.
//
// Storage objects are plain files laid out as {path}/{project}/{vault}/
// {storage_id}. A vault is a directory, so vault existence survives the
// deletion of its last block.
package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// Config holds the filesystem driver configuration.
type Config struct {
	// Path is the root directory for block storage.
	// Default: $XDG_DATA_HOME/deuce/blocks
	Path string `mapstructure:"path"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.Path = filepath.Join(dataDir, "deuce", "blocks")
	}
}

// Store is a filesystem-backed implementation of storage.Store.
type Store struct {
	mu       sync.RWMutex
	basePath string
	closed   bool
}

// New creates the base directory if needed and returns the store.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("storage path is not a directory")
	}

	return &Store{basePath: cfg.Path}, nil
}

// vaultPath returns the directory holding a vault's storage objects.
func (s *Store) vaultPath(v deuce.Vault) string {
	return filepath.Join(s.basePath, v.ProjectID, v.VaultID)
}

// blockPath returns the full filesystem path for a storage object.
func (s *Store) blockPath(v deuce.Vault, storageID string) string {
	return filepath.Join(s.vaultPath(v), storageID)
}

// requireVault maps a missing vault directory to ErrVaultNotFound.
func (s *Store) requireVault(v deuce.Vault) error {
	info, err := os.Stat(s.vaultPath(v))
	if os.IsNotExist(err) {
		return storage.ErrVaultNotFound
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return storage.ErrVaultNotFound
	}
	return nil
}

// CreateVault provisions the vault's directory.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return os.MkdirAll(s.vaultPath(v), 0755)
}

// DeleteVault removes the vault's directory if it is empty, then prunes the
// project directory when that was the project's last vault.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	if err := s.requireVault(v); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.vaultPath(v))
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return storage.ErrVaultNotEmpty
	}

	if err := os.Remove(s.vaultPath(v)); err != nil {
		return err
	}

	// Best effort: drop the project directory if nothing is left in it.
	_ = os.Remove(filepath.Join(s.basePath, v.ProjectID))
	return nil
}

// VaultExists reports whether the vault's directory exists.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storage.ErrStoreClosed
	}

	err := s.requireVault(v)
	if errors.Is(err, storage.ErrVaultNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VaultStats sums the vault's storage objects.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*storage.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	if err := s.requireVault(v); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.vaultPath(v))
	if err != nil {
		return nil, err
	}

	stats := &storage.VaultStats{
		Internal: map[string]string{"path": s.vaultPath(v)},
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		stats.BlockCount++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}

// ListBlocks lists storage IDs in lexicographic order, resuming at marker.
// os.ReadDir returns entries sorted by name, which is the listing order.
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	if err := s.requireVault(v); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.vaultPath(v))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".tmp") || name < marker {
			continue
		}
		ids = append(ids, name)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids, nil
}

// StoreBlock writes a new storage object and returns its storage ID. The
// payload lands in a temporary file first and is renamed into place, so
// readers never observe a partial object.
func (s *Store) StoreBlock(ctx context.Context, v deuce.Vault, blockID string, data io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", storage.ErrStoreClosed
	}

	if err := s.requireVault(v); err != nil {
		return "", err
	}

	storageID := deuce.NewStorageID(blockID)
	path := s.blockPath(v, storageID)
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, io.LimitReader(data, size)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
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

	if err := s.requireVault(v); err != nil {
		return false, err
	}

	_, err := os.Stat(s.blockPath(v, storageID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
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

	f, err := os.Open(s.blockPath(v, storageID))
	if os.IsNotExist(err) {
		if err := s.requireVault(v); err != nil {
			return nil, err
		}
		return nil, storage.ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
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

	info, err := os.Stat(s.blockPath(v, storageID))
	if os.IsNotExist(err) {
		if err := s.requireVault(v); err != nil {
			return 0, err
		}
		return 0, storage.ErrBlockNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// DeleteBlock removes a storage object. The vault directory stays in place
// even when this was its last object.
func (s *Store) DeleteBlock(ctx context.Context, v deuce.Vault, storageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	err := os.Remove(s.blockPath(v, storageID))
	if os.IsNotExist(err) {
		if err := s.requireVault(v); err != nil {
			return err
		}
		return storage.ErrBlockNotFound
	}
	return err
}

// Health reports whether the base directory is accessible.
func (s *Store) Health(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return []string{fmt.Sprintf("fs storage backend at %s is not active: store is closed", s.basePath)}
	}
	if _, err := os.Stat(s.basePath); err != nil {
		return []string{fmt.Sprintf("fs storage backend at %s is not active: %v", s.basePath, err)}
	}
	return []string{fmt.Sprintf("fs storage backend at %s is active.", s.basePath)}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Ensure Store implements storage.Store.
var _ storage.Store = (*Store)(nil)
