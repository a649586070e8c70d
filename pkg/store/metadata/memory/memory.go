// Package memory provides an in-memory metadata store. It backs unit tests
// and the "memory" config type; nothing survives a process restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

type blockRecord struct {
	storageID string
	size      int64
	invalid   bool
	refTime   int64
}

type assignment struct {
	blockID string
	offset  int64
	size    *int64
}

type fileRecord struct {
	finalized bool
	size      int64
	blocks    []assignment // kept sorted by offset
}

type vaultData struct {
	blocks       map[string]*blockRecord // blockID -> record
	storageIndex map[string]string       // storageID -> blockID (live bindings only)
	refs         map[string]int64        // blockID -> refcount, survives unregister
	files        map[string]*fileRecord  // fileID -> record
}

func newVaultData() *vaultData {
	return &vaultData{
		blocks:       make(map[string]*blockRecord),
		storageIndex: make(map[string]string),
		refs:         make(map[string]int64),
		files:        make(map[string]*fileRecord),
	}
}

// Store is a mutex-guarded in-memory metadata store.
type Store struct {
	mu     sync.RWMutex
	vaults map[string]map[string]*vaultData // projectID -> vaultID -> data
	now    func() int64
}

var _ metadata.Store = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		vaults: make(map[string]map[string]*vaultData),
		now:    func() int64 { return time.Now().Unix() },
	}
}

// vault returns the vault's data or nil.
func (s *Store) vault(v deuce.Vault) *vaultData {
	project, ok := s.vaults[v.ProjectID]
	if !ok {
		return nil
	}
	return project[v.VaultID]
}

// CreateVault records a vault. Creating an existing vault is a no-op.
func (s *Store) CreateVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.vaults[v.ProjectID]
	if !ok {
		project = make(map[string]*vaultData)
		s.vaults[v.ProjectID] = project
	}
	if _, ok := project[v.VaultID]; !ok {
		project[v.VaultID] = newVaultData()
	}
	return nil
}

// DeleteVault removes the vault record.
func (s *Store) DeleteVault(ctx context.Context, v deuce.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.vaults[v.ProjectID]
	if !ok {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	if _, ok := project[v.VaultID]; !ok {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	delete(project, v.VaultID)
	return nil
}

// VaultExists reports whether the vault is recorded.
func (s *Store) VaultExists(ctx context.Context, v deuce.Vault) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vault(v) != nil, nil
}

// ListVaults lists vault IDs for a project starting at marker.
func (s *Store) ListVaults(ctx context.Context, projectID, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	project := s.vaults[projectID]
	ids := make([]string, 0, len(project))
	for id := range project {
		if id >= marker {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return clip(ids, limit), nil
}

// VaultStats counts the vault's files and blocks.
func (s *Store) VaultStats(ctx context.Context, v deuce.Vault) (*metadata.VaultStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	return &metadata.VaultStats{
		FileCount:  int64(len(vd.files)),
		BlockCount: int64(len(vd.blocks)),
		Internal:   map[string]string{},
	}, nil
}

// RegisterBlock binds blockID to storageID. An existing binding wins.
func (s *Store) RegisterBlock(ctx context.Context, v deuce.Vault, blockID, storageID string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	if _, ok := vd.blocks[blockID]; ok {
		return nil
	}
	vd.blocks[blockID] = &blockRecord{
		storageID: storageID,
		size:      size,
		refTime:   s.now(),
	}
	vd.storageIndex[storageID] = blockID
	return nil
}

// UnregisterBlock removes a block's binding if it has no references.
func (s *Store) UnregisterBlock(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.blocks[blockID]
	if !ok {
		return metadata.NewNotFoundError("block", blockID)
	}
	if refs := vd.refs[blockID]; refs > 0 {
		return metadata.NewConstraintError("block is referenced", blockID)
	}
	delete(vd.blocks, blockID)
	delete(vd.storageIndex, rec.storageID)
	delete(vd.refs, blockID)
	return nil
}

// HasBlock reports whether blockID has a live binding.
func (s *Store) HasBlock(ctx context.Context, v deuce.Vault, blockID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return false, nil
	}
	_, ok := vd.blocks[blockID]
	return ok, nil
}

// MissingBlocks returns the subset of blockIDs without a live binding.
func (s *Store) MissingBlocks(ctx context.Context, v deuce.Vault, blockIDs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	missing := make([]string, 0)
	for _, id := range blockIDs {
		if vd == nil {
			missing = append(missing, id)
			continue
		}
		if _, ok := vd.blocks[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// GetBlock returns the full metadata record for a block.
func (s *Store) GetBlock(ctx context.Context, v deuce.Vault, blockID string) (*metadata.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.blocks[blockID]
	if !ok {
		return nil, metadata.NewNotFoundError("block", blockID)
	}
	return &metadata.Block{
		BlockID:   blockID,
		StorageID: rec.storageID,
		Size:      rec.size,
		Invalid:   rec.invalid,
		RefTime:   rec.refTime,
		RefCount:  vd.refs[blockID],
	}, nil
}

// BlockIDForStorageID returns the block whose live binding is storageID.
func (s *Store) BlockIDForStorageID(ctx context.Context, v deuce.Vault, storageID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return "", metadata.NewNotFoundError("vault", v.VaultID)
	}
	blockID, ok := vd.storageIndex[storageID]
	if !ok {
		return "", metadata.NewNotFoundError("storage object", storageID)
	}
	return blockID, nil
}

// MarkBlockInvalid flags a block whose storage object went missing.
func (s *Store) MarkBlockInvalid(ctx context.Context, v deuce.Vault, blockID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.blocks[blockID]
	if !ok {
		return metadata.NewNotFoundError("block", blockID)
	}
	rec.invalid = true
	return nil
}

// ListBlocks lists registered block IDs starting at marker.
func (s *Store) ListBlocks(ctx context.Context, v deuce.Vault, marker string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	ids := make([]string, 0, len(vd.blocks))
	for id := range vd.blocks {
		if id >= marker {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return clip(ids, limit), nil
}

// IncrementRefs adjusts reference counts and stamps RefTime on live blocks.
func (s *Store) IncrementRefs(ctx context.Context, v deuce.Vault, blockIDs []string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	s.incrementRefsLocked(vd, blockIDs, delta)
	return nil
}

// incrementRefsLocked applies the counter updates. RefTime moves only for
// blocks with a live binding; counters for unregistered blocks survive so a
// later registration keeps its references.
func (s *Store) incrementRefsLocked(vd *vaultData, blockIDs []string, delta int64) {
	now := s.now()
	for _, id := range blockIDs {
		vd.refs[id] += delta
		if vd.refs[id] <= 0 {
			delete(vd.refs, id)
		}
		if rec, ok := vd.blocks[id]; ok {
			rec.refTime = now
		}
	}
}

// CreateFile records a new unfinalized file.
func (s *Store) CreateFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	if _, ok := vd.files[fileID]; ok {
		return metadata.NewAlreadyExistsError("file", fileID)
	}
	vd.files[fileID] = &fileRecord{}
	return nil
}

// GetFile returns the file record.
func (s *Store) GetFile(ctx context.Context, v deuce.Vault, fileID string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.files[fileID]
	if !ok {
		return nil, metadata.NewNotFoundError("file", fileID)
	}
	return &metadata.File{FileID: fileID, Finalized: rec.finalized, Size: rec.size}, nil
}

// DeleteFile removes the file and decrements its blocks' reference counts.
func (s *Store) DeleteFile(ctx context.Context, v deuce.Vault, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.files[fileID]
	if !ok {
		return metadata.NewNotFoundError("file", fileID)
	}
	delete(vd.files, fileID)

	referenced := make([]string, 0, len(rec.blocks))
	for _, a := range rec.blocks {
		referenced = append(referenced, a.blockID)
	}
	s.incrementRefsLocked(vd, referenced, -1)
	return nil
}

// AssignBlocks appends assignments to an unfinalized file.
func (s *Store) AssignBlocks(ctx context.Context, v deuce.Vault, fileID string, assignments []metadata.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.files[fileID]
	if !ok {
		return metadata.NewNotFoundError("file", fileID)
	}
	if rec.finalized {
		return metadata.NewConstraintError("file is finalized", fileID)
	}

	var added []string
	for _, a := range assignments {
		if rec.hasAssignment(a.BlockID, a.Offset) {
			continue
		}

		var size *int64
		if b, ok := vd.blocks[a.BlockID]; ok {
			sz := b.size
			size = &sz
		}
		rec.blocks = append(rec.blocks, assignment{blockID: a.BlockID, offset: a.Offset, size: size})
		added = append(added, a.BlockID)
	}

	sort.SliceStable(rec.blocks, func(i, j int) bool {
		return rec.blocks[i].offset < rec.blocks[j].offset
	})

	s.incrementRefsLocked(vd, added, 1)
	return nil
}

func (f *fileRecord) hasAssignment(blockID string, offset int64) bool {
	for _, a := range f.blocks {
		if a.blockID == blockID && a.offset == offset {
			return true
		}
	}
	return false
}

// ListFileBlocks lists a file's assignments ordered by offset.
func (s *Store) ListFileBlocks(ctx context.Context, v deuce.Vault, fileID string, marker int64, limit int) ([]metadata.FileBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.files[fileID]
	if !ok {
		return nil, metadata.NewNotFoundError("file", fileID)
	}

	out := make([]metadata.FileBlock, 0, len(rec.blocks))
	for _, a := range rec.blocks {
		if a.offset < marker {
			continue
		}
		fb := metadata.FileBlock{BlockID: a.blockID, Offset: a.offset}
		if a.size != nil {
			sz := *a.size
			fb.Size = &sz
		}
		out = append(out, fb)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FinalizeFile verifies the file's tiling and flips it to finalized.
func (s *Store) FinalizeFile(ctx context.Context, v deuce.Vault, fileID string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vd := s.vault(v)
	if vd == nil {
		return metadata.NewNotFoundError("vault", v.VaultID)
	}
	rec, ok := vd.files[fileID]
	if !ok {
		return metadata.NewNotFoundError("file", fileID)
	}
	if rec.finalized {
		return metadata.NewConstraintError("file is finalized", fileID)
	}

	assignments := make([]metadata.FileBlock, 0, len(rec.blocks))
	for _, a := range rec.blocks {
		fb := metadata.FileBlock{BlockID: a.blockID, Offset: a.offset}
		if a.size != nil {
			sz := *a.size
			fb.Size = &sz
		}
		assignments = append(assignments, fb)
	}

	sizeOf := func(_ context.Context, blockID string) (int64, bool, error) {
		b, ok := vd.blocks[blockID]
		if !ok {
			return 0, false, nil
		}
		return b.size, true, nil
	}

	if err := metadata.VerifyTiling(ctx, assignments, size, sizeOf); err != nil {
		return err
	}

	rec.finalized = true
	rec.size = size
	return nil
}

// ListFiles lists file IDs starting at marker.
func (s *Store) ListFiles(ctx context.Context, v deuce.Vault, marker string, limit int, finalized bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vd := s.vault(v)
	if vd == nil {
		return nil, metadata.NewNotFoundError("vault", v.VaultID)
	}
	ids := make([]string, 0, len(vd.files))
	for id, rec := range vd.files {
		if id < marker {
			continue
		}
		if finalized && !rec.finalized {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return clip(ids, limit), nil
}

// Health reports the driver's diagnostic line.
func (s *Store) Health(ctx context.Context) []string {
	return []string{"memory metadata backend is active."}
}

// Close releases driver resources.
func (s *Store) Close() error {
	return nil
}

// clip truncates ids to limit entries; limit <= 0 means no limit.
func clip(ids []string, limit int) []string {
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}
