// Package files implements file manifests: creation, block assignment,
// finalization and streaming.
//
// A file is an ordered tiling of blocks. Assignments accumulate while the
// file is open; finalization verifies the tiling covers the declared size
// exactly and flips the file immutable. Only finalized files stream.
package files

import (
	"context"
	"errors"
	"io"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// ErrNotFinalized rejects streaming of a file whose manifest is still open.
//
// HTTP: 412 Precondition Failed.
var ErrNotFinalized = errors.New("file is not finalized")

// Service implements the file API over the metadata and storage backends.
type Service struct {
	meta  metadata.Store
	store storage.Store
}

// New creates a file service over the given backends.
func New(meta metadata.Store, store storage.Store) *Service {
	return &Service{meta: meta, store: store}
}

// Create mints a version-4 UUID and records an unfinalized file under it.
func (s *Service) Create(ctx context.Context, vault deuce.Vault) (string, error) {
	fileID := deuce.NewFileID()
	if err := s.meta.CreateFile(ctx, vault, fileID); err != nil {
		return "", err
	}

	logger.InfoCtx(ctx, "File created", "file_id", fileID)
	return fileID, nil
}

// Get returns the file's manifest record.
func (s *Service) Get(ctx context.Context, vault deuce.Vault, fileID string) (*metadata.File, error) {
	return s.meta.GetFile(ctx, vault, fileID)
}

// Assign appends block placements to an open file and reports which of the
// named blocks have no registration yet, in the order given. Assigning an
// unregistered block is legal; it surfaces as a gap at finalization unless
// the block is uploaded in the meantime.
func (s *Service) Assign(ctx context.Context, vault deuce.Vault, fileID string, assignments []metadata.Assignment) ([]string, error) {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.BlockID
	}

	missing, err := s.meta.MissingBlocks(ctx, vault, ids)
	if err != nil {
		return nil, err
	}

	if err := s.meta.AssignBlocks(ctx, vault, fileID, assignments); err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Blocks assigned",
		"file_id", fileID, "count", len(assignments), "missing", len(missing))
	return missing, nil
}

// ListBlocks returns the file's assignments in offset order starting at the
// marker offset.
func (s *Service) ListBlocks(ctx context.Context, vault deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	return s.meta.ListFileBlocks(ctx, vault, fileID, marker, limit)
}

// Finalize flips the file to finalized once its assignments tile [0, size)
// exactly. Defects surface as *metadata.GapError or *metadata.OverlapError
// and leave the file open.
func (s *Service) Finalize(ctx context.Context, vault deuce.Vault, fileID string, size int64) error {
	ctx, span := telemetry.StartFileSpan(ctx, "finalize", fileID,
		telemetry.VaultID(vault.VaultID),
		telemetry.FileLength(size))
	defer span.End()

	if err := s.meta.FinalizeFile(ctx, vault, fileID, size); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	logger.InfoCtx(ctx, "File finalized", "file_id", fileID, "size", size)
	return nil
}

// Open returns the file's record and a reader concatenating its blocks in
// offset order. The reader pages through the manifest lazily and fetches one
// block at a time; the caller closes it. Files still open fail with
// ErrNotFinalized.
func (s *Service) Open(ctx context.Context, vault deuce.Vault, fileID string) (*metadata.File, io.ReadCloser, error) {
	ctx, span := telemetry.StartFileSpan(ctx, "open", fileID,
		telemetry.VaultID(vault.VaultID))
	defer span.End()

	f, err := s.meta.GetFile(ctx, vault, fileID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, err
	}
	if !f.Finalized {
		telemetry.RecordError(ctx, ErrNotFinalized)
		return nil, nil, ErrNotFinalized
	}

	return f, newFileReader(ctx, s.meta, s.store, vault, fileID), nil
}

// Delete removes the file and its assignments and releases the block
// references they held.
func (s *Service) Delete(ctx context.Context, vault deuce.Vault, fileID string) error {
	if err := s.meta.DeleteFile(ctx, vault, fileID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "File deleted", "file_id", fileID)
	return nil
}

// List returns IDs of finalized files in lexicographic order starting at
// marker.
func (s *Service) List(ctx context.Context, vault deuce.Vault, marker string, limit int) ([]string, error) {
	return s.meta.ListFiles(ctx, vault, marker, limit, true)
}
