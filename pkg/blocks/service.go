// Package blocks coordinates content-addressed block operations across the
// metadata and storage backends.
//
// The write path stores bytes first and registers the binding second, so a
// failure between the two leaves an orphaned storage object rather than a
// metadata record pointing at nothing. Orphans stay invisible to the
// content-addressed API and are inspected and reclaimed through the
// storage-addressed StorageService.
package blocks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// Service implements the content-addressed block API: upload, read, delete
// and list by block ID.
type Service struct {
	meta  metadata.Store
	store storage.Store
}

// New creates a block service over the given backends.
func New(meta metadata.Store, store storage.Store) *Service {
	return &Service{meta: meta, store: store}
}

// UploadResult describes a completed single-block upload.
type UploadResult struct {
	// StorageID names the object written by this upload. When the block was
	// already registered the old binding wins and this object is an orphan.
	StorageID string

	// Block is the live metadata record after registration. Its StorageID is
	// the winning binding, which differs from the field above on re-upload.
	Block *metadata.Block
}

// Upload verifies, stores and registers a single block.
//
// The block ID must be the lowercase SHA-1 hex of data; a mismatch fails with
// ErrHashMismatch before anything is written. Re-uploading a registered block
// mints a fresh storage object that immediately becomes an orphan.
func (s *Service) Upload(ctx context.Context, vault deuce.Vault, blockID string, data []byte) (result *UploadResult, err error) {
	ctx, span := telemetry.StartBlockSpan(ctx, "upload", blockID,
		telemetry.VaultID(vault.VaultID),
		telemetry.BlockSize(int64(len(data))))
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	if deuce.BlockID(data) != blockID {
		return nil, ErrHashMismatch
	}

	storageID, err := s.store.StoreBlock(ctx, vault, blockID, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	if err := s.meta.RegisterBlock(ctx, vault, blockID, storageID, int64(len(data))); err != nil {
		return nil, err
	}

	block, err := s.meta.GetBlock(ctx, vault, blockID)
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Block uploaded",
		"block_id", blockID, "storage_id", storageID, "size", len(data))

	return &UploadResult{StorageID: storageID, Block: block}, nil
}

// UploadBatch stores and registers every entry of a batched upload.
//
// Every hash is verified before any byte is written, so a malformed batch
// leaves no partial state. A storage or metadata failure mid-batch aborts the
// rest; objects already written stay behind as reclaimable orphans.
func (s *Service) UploadBatch(ctx context.Context, vault deuce.Vault, entries []storage.Block) (err error) {
	if len(entries) == 0 {
		return nil
	}

	ctx, span := telemetry.StartBlockSpan(ctx, "upload_batch", "",
		telemetry.VaultID(vault.VaultID),
		telemetry.BlockCount(len(entries)))
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if deuce.BlockID(entry.Data) != entry.BlockID {
				return fmt.Errorf("%w: %s", ErrHashMismatch, entry.BlockID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	storageIDs, err := s.store.StoreBlocks(ctx, vault, entries)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if err := s.meta.RegisterBlock(ctx, vault, entry.BlockID, storageIDs[i], int64(len(entry.Data))); err != nil {
			return fmt.Errorf("register block %s: %w", entry.BlockID, err)
		}
	}

	logger.InfoCtx(ctx, "Block batch uploaded", "count", len(entries))
	return nil
}

// Get returns the block's metadata record and a reader over its bytes. The
// caller closes the reader.
//
// When metadata knows the block but storage lost the object, the block is
// marked invalid and a *GoneError carrying the record is returned. Orphaned
// storage objects are not reachable here: no registration means NotFound.
func (s *Service) Get(ctx context.Context, vault deuce.Vault, blockID string) (*metadata.Block, io.ReadCloser, error) {
	block, err := s.meta.GetBlock(ctx, vault, blockID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.GetBlock(ctx, vault, block.StorageID)
	if err != nil {
		if errors.Is(err, storage.ErrBlockNotFound) {
			return nil, nil, s.diverged(ctx, vault, block)
		}
		return nil, nil, err
	}

	return block, rc, nil
}

// Head returns the block's metadata record after confirming the storage
// object still exists, with the same divergence handling as Get.
func (s *Service) Head(ctx context.Context, vault deuce.Vault, blockID string) (*metadata.Block, error) {
	block, err := s.meta.GetBlock(ctx, vault, blockID)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.BlockExists(ctx, vault, block.StorageID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, s.diverged(ctx, vault, block)
	}

	return block, nil
}

// diverged records that the block's storage object went missing and builds
// the GoneError surfaced to the client.
func (s *Service) diverged(ctx context.Context, vault deuce.Vault, block *metadata.Block) error {
	logger.WarnCtx(ctx, "Block storage object missing, marking invalid",
		"block_id", block.BlockID, "storage_id", block.StorageID)

	if err := s.meta.MarkBlockInvalid(ctx, vault, block.BlockID); err != nil {
		logger.ErrorCtx(ctx, "Failed to mark block invalid",
			"block_id", block.BlockID, "error", err)
	}

	block.Invalid = true
	return &GoneError{Block: block}
}

// Delete unregisters the block and removes its storage object.
//
// A block with live references is refused with *ReferencedError. If the
// storage deletion fails after the unregister the object is left behind as an
// orphan; the delete still succeeds.
func (s *Service) Delete(ctx context.Context, vault deuce.Vault, blockID string) error {
	block, err := s.meta.GetBlock(ctx, vault, blockID)
	if err != nil {
		return err
	}
	if block.RefCount > 0 {
		return &ReferencedError{BlockID: blockID, RefCount: block.RefCount}
	}

	if err := s.meta.UnregisterBlock(ctx, vault, blockID); err != nil {
		return err
	}

	if err := s.store.DeleteBlock(ctx, vault, block.StorageID); err != nil {
		logger.WarnCtx(ctx, "Storage delete failed after unregister, object orphaned",
			"block_id", blockID, "storage_id", block.StorageID, "error", err)
	}

	logger.InfoCtx(ctx, "Block deleted", "block_id", blockID)
	return nil
}

// List returns registered block IDs in lexicographic order starting at
// marker. The vault must exist in the storage backend.
func (s *Service) List(ctx context.Context, vault deuce.Vault, marker string, limit int) ([]string, error) {
	exists, err := s.store.VaultExists(ctx, vault)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrVaultNotFound
	}

	return s.meta.ListBlocks(ctx, vault, marker, limit)
}
