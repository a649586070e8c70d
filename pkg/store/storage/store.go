// Package storage provides the block storage backend interface.
//
// A storage backend holds opaque block payloads addressed by storage ID
// inside per-vault namespaces. It knows nothing about reference counts or
// files; that bookkeeping lives in the metadata store.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/painterjd/deuce/pkg/deuce"
)

// Common errors returned by Store implementations.
var (
	// ErrBlockNotFound is returned when a requested storage object doesn't exist.
	ErrBlockNotFound = errors.New("storage block not found")

	// ErrVaultNotFound is returned when operating on a vault that was never created.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrVaultNotEmpty is returned when deleting a vault that still holds blocks.
	ErrVaultNotEmpty = errors.New("vault not empty")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// Block is one entry of a batched store.
type Block struct {
	BlockID string
	Data    []byte
}

// VaultStats summarizes a vault's storage footprint.
type VaultStats struct {
	BlockCount int64
	TotalSize  int64

	// Internal carries driver-specific diagnostics (paths, bucket names).
	Internal map[string]string
}

// Store defines the interface for block storage backends.
//
// Storage objects are immutable payloads keyed by storage ID within a vault.
// Two uploads of identical content produce two distinct storage objects; the
// metadata store decides which object a block ID is bound to, and objects
// without a binding are orphans.
type Store interface {
	// CreateVault provisions the vault's namespace. Creating an existing
	// vault is a no-op.
	CreateVault(ctx context.Context, v deuce.Vault) error

	// DeleteVault removes the vault's namespace. Returns ErrVaultNotFound if
	// the vault was never created and ErrVaultNotEmpty while it still holds
	// blocks.
	DeleteVault(ctx context.Context, v deuce.Vault) error

	// VaultExists reports whether the vault's namespace exists.
	VaultExists(ctx context.Context, v deuce.Vault) (bool, error)

	// VaultStats summarizes the vault's storage footprint.
	VaultStats(ctx context.Context, v deuce.Vault) (*VaultStats, error)

	// ListBlocks lists storage IDs in lexicographic order, resuming at marker
	// (inclusive). A limit of zero means no limit.
	ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error)

	// StoreBlock writes size bytes from data as a new storage object and
	// returns its generated storage ID. Every call creates a fresh object,
	// repeated stores of one block ID included.
	StoreBlock(ctx context.Context, v deuce.Vault, blockID string, data io.Reader, size int64) (string, error)

	// StoreBlocks writes a batch of blocks and returns their storage IDs in
	// input order. Objects written before a mid-batch failure are left behind
	// as orphans for out-of-band cleanup.
	StoreBlocks(ctx context.Context, v deuce.Vault, blocks []Block) ([]string, error)

	// BlockExists reports whether a storage object exists.
	BlockExists(ctx context.Context, v deuce.Vault, storageID string) (bool, error)

	// GetBlock opens a storage object for reading. The caller must close the
	// returned reader. Returns ErrBlockNotFound if the object doesn't exist.
	GetBlock(ctx context.Context, v deuce.Vault, storageID string) (io.ReadCloser, error)

	// BlockSize returns a storage object's length in bytes. Returns
	// ErrBlockNotFound if the object doesn't exist.
	BlockSize(ctx context.Context, v deuce.Vault, storageID string) (int64, error)

	// DeleteBlock removes a storage object. Returns ErrBlockNotFound if the
	// object doesn't exist.
	DeleteBlock(ctx context.Context, v deuce.Vault, storageID string) error

	// Health reports backend diagnostic lines for the health endpoint.
	Health(ctx context.Context) []string

	// Close releases any resources held by the store.
	Close() error
}
