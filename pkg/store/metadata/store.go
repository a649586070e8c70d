// Package metadata defines the contract for the metadata side of the service:
// vaults, block registrations, reference counts and file manifests. Drivers
// live in subpackages (memory, badger, sqlite, postgres) and are constructed
// from configuration by pkg/config.
package metadata

import (
	"context"

	"github.com/painterjd/deuce/pkg/deuce"
)

// Block is the metadata record for a registered block.
type Block struct {
	// BlockID is the lowercase SHA-1 hex of the block's bytes.
	BlockID string

	// StorageID names the storage object holding the live copy.
	StorageID string

	// Size is the block's byte count.
	Size int64

	// Invalid is set when the coordinator discovered that storage no longer
	// holds the object this record points at.
	Invalid bool

	// RefTime is the Unix-seconds timestamp of the last registration or
	// reference-count change.
	RefTime int64

	// RefCount is the number of file assignments referencing this block.
	RefCount int64
}

// File is a file manifest record. A file starts unfinalized with size zero
// and flips exactly once to finalized with a concrete size.
type File struct {
	FileID    string
	Finalized bool
	Size      int64
}

// FileBlock is one block assignment inside a file: blockID placed at a byte
// offset. Size is nil when the block was not registered at assignment time.
type FileBlock struct {
	BlockID string
	Offset  int64
	Size    *int64
}

// Assignment is the caller-facing form of a new block assignment. The driver
// resolves the block's size itself at assignment time.
type Assignment struct {
	BlockID string
	Offset  int64
}

// VaultStats summarizes a vault as metadata sees it.
type VaultStats struct {
	FileCount  int64
	BlockCount int64

	// Internal carries driver-specific diagnostics surfaced verbatim in the
	// vault statistics document.
	Internal map[string]string
}

// Store is the metadata backend contract. All operations are scoped to a
// project/vault pair; implementations must be safe for concurrent use.
//
// Listings are ordered by the natural key of their identifier (lexicographic
// for vault, block and file IDs, offset-ascending for file blocks) and the
// marker is inclusive: listing resumes at the first key >= marker.
type Store interface {
	// CreateVault records a vault. Creating an existing vault is a no-op.
	CreateVault(ctx context.Context, vault deuce.Vault) error

	// DeleteVault removes a vault record. Missing vaults return ErrNotFound.
	DeleteVault(ctx context.Context, vault deuce.Vault) error

	// VaultExists reports whether the vault is recorded.
	VaultExists(ctx context.Context, vault deuce.Vault) (bool, error)

	// ListVaults lists vault IDs for a project starting at marker.
	ListVaults(ctx context.Context, projectID, marker string, limit int) ([]string, error)

	// VaultStats counts the vault's files and blocks.
	VaultStats(ctx context.Context, vault deuce.Vault) (*VaultStats, error)

	// RegisterBlock binds blockID to storageID with the given size and stamps
	// RefTime. If the block already has a live binding the call is a no-op:
	// the old binding wins and the new storage object is an orphan.
	RegisterBlock(ctx context.Context, vault deuce.Vault, blockID, storageID string, size int64) error

	// UnregisterBlock removes a block's binding. Fails with a constraint
	// error while the block's reference count is above zero.
	UnregisterBlock(ctx context.Context, vault deuce.Vault, blockID string) error

	// HasBlock reports whether blockID has a live binding.
	HasBlock(ctx context.Context, vault deuce.Vault, blockID string) (bool, error)

	// MissingBlocks returns the subset of blockIDs without a live binding,
	// in the order given.
	MissingBlocks(ctx context.Context, vault deuce.Vault, blockIDs []string) ([]string, error)

	// GetBlock returns the full metadata record for a block, including its
	// current reference count. Returns ErrNotFound when unregistered.
	GetBlock(ctx context.Context, vault deuce.Vault, blockID string) (*Block, error)

	// BlockIDForStorageID is the reverse lookup: the block ID whose live
	// binding points at storageID. Returns ErrNotFound when storageID is not
	// the live object for any block (an orphan).
	BlockIDForStorageID(ctx context.Context, vault deuce.Vault, storageID string) (string, error)

	// MarkBlockInvalid flags a block whose storage object went missing.
	MarkBlockInvalid(ctx context.Context, vault deuce.Vault, blockID string) error

	// ListBlocks lists registered block IDs starting at marker.
	ListBlocks(ctx context.Context, vault deuce.Vault, marker string, limit int) ([]string, error)

	// IncrementRefs adjusts reference counts by delta for every listed block
	// and stamps RefTime on the blocks that still have a live binding.
	// Counters survive for unregistered blocks so a later registration keeps
	// its references.
	IncrementRefs(ctx context.Context, vault deuce.Vault, blockIDs []string, delta int64) error

	// CreateFile records a new unfinalized file.
	CreateFile(ctx context.Context, vault deuce.Vault, fileID string) error

	// GetFile returns the file record. Returns ErrNotFound when absent.
	GetFile(ctx context.Context, vault deuce.Vault, fileID string) (*File, error)

	// DeleteFile removes the file and its assignments and decrements the
	// reference count of every block the file referenced.
	DeleteFile(ctx context.Context, vault deuce.Vault, fileID string) error

	// AssignBlocks appends assignments to an unfinalized file, resolving each
	// block's currently known size, and increments the blocks' reference
	// counts. Assigning to a finalized file is a constraint error.
	AssignBlocks(ctx context.Context, vault deuce.Vault, fileID string, assignments []Assignment) error

	// ListFileBlocks lists a file's assignments ordered by offset, starting
	// at the marker offset.
	ListFileBlocks(ctx context.Context, vault deuce.Vault, fileID string, marker int64, limit int) ([]FileBlock, error)

	// FinalizeFile verifies that the file's assignments tile [0, size)
	// exactly and flips the file to finalized. Returns *GapError or
	// *OverlapError describing the first defect; the file is left untouched
	// on failure. Finalizing a finalized file is a constraint error.
	FinalizeFile(ctx context.Context, vault deuce.Vault, fileID string, size int64) error

	// ListFiles lists file IDs starting at marker. When finalized is true
	// only finalized files are returned.
	ListFiles(ctx context.Context, vault deuce.Vault, marker string, limit int, finalized bool) ([]string, error)

	// Health returns one diagnostic line per underlying component.
	Health(ctx context.Context) []string

	// Close releases driver resources.
	Close() error
}
