package blocks

import (
	"context"
	"io"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// Info describes one storage object and, when it backs a registration, the
// metadata side of that binding.
type Info struct {
	StorageID string

	// BlockID is the registered block this object backs; empty for orphans.
	BlockID string

	// RefCount and RefTime come from the metadata record and are zero for
	// orphans.
	RefCount int64
	RefTime  int64

	// Size is the object's byte count as storage reports it.
	Size int64

	// Orphaned is set when no registration points at this object.
	Orphaned bool
}

// StorageService is the storage-addressed escape hatch: it inspects and
// reclaims individual storage objects by storage ID, including orphans the
// content-addressed API cannot see. It never writes; uploads go through the
// content-addressed PUT.
type StorageService struct {
	meta  metadata.Store
	store storage.Store
}

// NewStorageService creates a storage-addressed service over the given
// backends.
func NewStorageService(meta metadata.Store, store storage.Store) *StorageService {
	return &StorageService{meta: meta, store: store}
}

// Head describes a storage object. Missing objects (and missing vaults)
// surface the storage sentinels.
func (s *StorageService) Head(ctx context.Context, vault deuce.Vault, storageID string) (*Info, error) {
	return s.describe(ctx, vault, storageID)
}

// Get returns the object's description and bytes. Orphans are readable; the
// description tells the caller what it is looking at.
func (s *StorageService) Get(ctx context.Context, vault deuce.Vault, storageID string) (*Info, io.ReadCloser, error) {
	info, err := s.describe(ctx, vault, storageID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.GetBlock(ctx, vault, storageID)
	if err != nil {
		return nil, nil, err
	}

	return info, rc, nil
}

// Delete reclaims an orphaned storage object. Deleting the live copy of a
// registered block is refused with *BoundError; that object is only released
// through the content-addressed DELETE.
func (s *StorageService) Delete(ctx context.Context, vault deuce.Vault, storageID string) error {
	info, err := s.describe(ctx, vault, storageID)
	if err != nil {
		return err
	}
	if !info.Orphaned {
		return &BoundError{
			StorageID: storageID,
			BlockID:   info.BlockID,
			RefCount:  info.RefCount,
		}
	}

	if err := s.store.DeleteBlock(ctx, vault, storageID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Orphaned storage object reclaimed", "storage_id", storageID)
	return nil
}

// List returns all storage IDs in the vault, orphans included, in
// lexicographic order starting at marker.
func (s *StorageService) List(ctx context.Context, vault deuce.Vault, marker string, limit int) ([]string, error) {
	return s.store.ListBlocks(ctx, vault, marker, limit)
}

func (s *StorageService) describe(ctx context.Context, vault deuce.Vault, storageID string) (*Info, error) {
	size, err := s.store.BlockSize(ctx, vault, storageID)
	if err != nil {
		return nil, err
	}

	info := &Info{StorageID: storageID, Size: size, Orphaned: true}

	blockID, err := s.meta.BlockIDForStorageID(ctx, vault, storageID)
	if err != nil {
		if metadata.IsNotFound(err) {
			return info, nil
		}
		return nil, err
	}

	block, err := s.meta.GetBlock(ctx, vault, blockID)
	if err != nil {
		return nil, err
	}

	info.BlockID = blockID
	info.RefCount = block.RefCount
	info.RefTime = block.RefTime
	info.Orphaned = false
	return info, nil
}
