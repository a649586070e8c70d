// Package vaults coordinates vault lifecycle across the metadata and storage
// backends.
//
// Creation writes the storage side first: existence checks consult storage,
// so a create interrupted between the two backends leaves a vault that is
// visible but without metadata, and the next idempotent PUT completes it.
package vaults

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// Stats merges both backends' view of a vault.
type Stats struct {
	Metadata *metadata.VaultStats
	Storage  *storage.VaultStats
}

// Service owns vault lifecycle and whole-deployment diagnostics.
type Service struct {
	meta  metadata.Store
	store storage.Store
}

// New creates a vault service over the given backends.
func New(meta metadata.Store, store storage.Store) *Service {
	return &Service{meta: meta, store: store}
}

// Create provisions the vault on both backends, storage first. Both creates
// are idempotent, so re-issuing a PUT repairs a half-created vault.
func (s *Service) Create(ctx context.Context, vault deuce.Vault) error {
	if err := s.store.CreateVault(ctx, vault); err != nil {
		return err
	}
	if err := s.meta.CreateVault(ctx, vault); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Vault created")
	return nil
}

// Exists reports whether the vault can serve data. The storage backend is
// authoritative.
func (s *Service) Exists(ctx context.Context, vault deuce.Vault) (bool, error) {
	return s.store.VaultExists(ctx, vault)
}

// Stats gathers statistics from both backends in parallel and merges them.
// A vault the storage backend does not know is NotFound; a vault missing
// only on the metadata side reports zero counts there.
func (s *Service) Stats(ctx context.Context, vault deuce.Vault) (result *Stats, err error) {
	ctx, span := telemetry.StartVaultSpan(ctx, "stats", vault.ProjectID, vault.VaultID)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(ctx, err)
		}
	}()

	exists, err := s.store.VaultExists(ctx, vault)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, metadata.NewNotFoundError("vault", vault.VaultID)
	}

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ms, err := s.meta.VaultStats(gctx, vault)
		if err != nil {
			if metadata.IsNotFound(err) {
				stats.Metadata = &metadata.VaultStats{}
				return nil
			}
			return err
		}
		stats.Metadata = ms
		return nil
	})
	g.Go(func() error {
		ss, err := s.store.VaultStats(gctx, vault)
		if err != nil {
			return err
		}
		stats.Storage = ss
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &stats, nil
}

// Delete removes the vault from both backends. The storage side enforces
// emptiness and is removed first; the metadata side follows only once storage
// succeeded. A vault that never got its metadata half is still deletable.
func (s *Service) Delete(ctx context.Context, vault deuce.Vault) error {
	if err := s.store.DeleteVault(ctx, vault); err != nil {
		return err
	}
	if err := s.meta.DeleteVault(ctx, vault); err != nil && !metadata.IsNotFound(err) {
		return err
	}

	logger.InfoCtx(ctx, "Vault deleted")
	return nil
}

// List returns the project's vault IDs in lexicographic order starting at
// marker. Listings come from metadata, which tracks vaults per project.
func (s *Service) List(ctx context.Context, projectID, marker string, limit int) ([]string, error) {
	return s.meta.ListVaults(ctx, projectID, marker, limit)
}

// Health collects diagnostic lines from both backends in parallel, metadata
// lines first.
func (s *Service) Health(ctx context.Context) []string {
	var metaLines, storeLines []string

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		metaLines = s.meta.Health(ctx)
	}()
	go func() {
		defer wg.Done()
		storeLines = s.store.Health(ctx)
	}()
	wg.Wait()

	return append(metaLines, storeLines...)
}
