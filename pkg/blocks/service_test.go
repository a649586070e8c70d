package blocks_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	metamem "github.com/painterjd/deuce/pkg/store/metadata/memory"
	"github.com/painterjd/deuce/pkg/store/storage"
	storemem "github.com/painterjd/deuce/pkg/store/storage/memory"
)

type fixture struct {
	svc   *blocks.Service
	meta  metadata.Store
	store storage.Store
	vault deuce.Vault
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	meta := metamem.New()
	store := storemem.New()
	t.Cleanup(func() {
		meta.Close()
		store.Close()
	})

	vault := deuce.NewVault("p1", "vault_A")
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}
	if err := meta.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	return &fixture{svc: blocks.New(meta, store), meta: meta, store: store, vault: vault}
}

func TestUploadStoresAndRegisters(t *testing.T) {
	f := newFixture(t)
	data := []byte("one block of data")
	blockID := deuce.BlockID(data)

	res, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}
	if !deuce.ValidStorageID(res.StorageID) {
		t.Fatalf("Upload() returned malformed storage ID %q", res.StorageID)
	}
	if res.Block.BlockID != blockID || res.Block.Size != int64(len(data)) {
		t.Fatalf("Upload() record = %+v, want block %s size %d", res.Block, blockID, len(data))
	}
	if res.Block.RefCount != 0 {
		t.Fatalf("fresh block RefCount = %d, want 0", res.Block.RefCount)
	}
	if res.Block.StorageID != res.StorageID {
		t.Fatalf("first upload live binding = %s, want this upload's %s", res.Block.StorageID, res.StorageID)
	}

	block, rc, err := f.svc.Get(t.Context(), f.vault, blockID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading block failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get() = %q, want %q", got, data)
	}
	if block.StorageID != res.StorageID {
		t.Fatalf("Get() storage ID = %s, want %s", block.StorageID, res.StorageID)
	}
}

func TestUploadHashMismatch(t *testing.T) {
	f := newFixture(t)
	data := []byte("real content")
	wrongID := deuce.BlockID([]byte("other content"))

	_, err := f.svc.Upload(t.Context(), f.vault, wrongID, data)
	if !errors.Is(err, blocks.ErrHashMismatch) {
		t.Fatalf("Upload() with wrong ID = %v, want ErrHashMismatch", err)
	}

	// Nothing may be stored or registered for a rejected upload.
	if has, _ := f.meta.HasBlock(t.Context(), f.vault, wrongID); has {
		t.Fatal("rejected upload left a metadata registration")
	}
	stats, err := f.store.VaultStats(t.Context(), f.vault)
	if err != nil {
		t.Fatalf("VaultStats() failed: %v", err)
	}
	if stats.BlockCount != 0 {
		t.Fatalf("rejected upload left %d storage objects", stats.BlockCount)
	}
}

func TestUploadMissingVault(t *testing.T) {
	f := newFixture(t)
	data := []byte("content")

	_, err := f.svc.Upload(t.Context(), deuce.NewVault("p1", "nope"), deuce.BlockID(data), data)
	if !errors.Is(err, storage.ErrVaultNotFound) {
		t.Fatalf("Upload() to missing vault = %v, want ErrVaultNotFound", err)
	}
}

func TestReuploadOldBindingWins(t *testing.T) {
	f := newFixture(t)
	data := []byte("uploaded twice")
	blockID := deuce.BlockID(data)

	first, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("first Upload() failed: %v", err)
	}
	second, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("second Upload() failed: %v", err)
	}

	if second.StorageID == first.StorageID {
		t.Fatal("second upload reused the first storage ID")
	}
	if second.Block.StorageID != first.StorageID {
		t.Fatalf("live binding = %s, want the first upload's %s", second.Block.StorageID, first.StorageID)
	}

	// Both objects exist in storage; only the first is the live copy.
	for _, sid := range []string{first.StorageID, second.StorageID} {
		exists, err := f.store.BlockExists(t.Context(), f.vault, sid)
		if err != nil {
			t.Fatalf("BlockExists(%s) failed: %v", sid, err)
		}
		if !exists {
			t.Fatalf("storage object %s missing after double upload", sid)
		}
	}
}

func TestUploadBatch(t *testing.T) {
	f := newFixture(t)
	entries := []storage.Block{
		{BlockID: deuce.BlockID([]byte("aaa")), Data: []byte("aaa")},
		{BlockID: deuce.BlockID([]byte("bbb")), Data: []byte("bbb")},
		{BlockID: deuce.BlockID([]byte("ccc")), Data: []byte("ccc")},
	}

	if err := f.svc.UploadBatch(t.Context(), f.vault, entries); err != nil {
		t.Fatalf("UploadBatch() failed: %v", err)
	}

	for _, e := range entries {
		block, rc, err := f.svc.Get(t.Context(), f.vault, e.BlockID)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", e.BlockID, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(got, e.Data) {
			t.Fatalf("Get(%s) = %q, want %q", e.BlockID, got, e.Data)
		}
		if block.Size != int64(len(e.Data)) {
			t.Fatalf("block %s size = %d, want %d", e.BlockID, block.Size, len(e.Data))
		}
	}
}

func TestUploadBatchRejectsBadHash(t *testing.T) {
	f := newFixture(t)
	entries := []storage.Block{
		{BlockID: deuce.BlockID([]byte("good")), Data: []byte("good")},
		{BlockID: deuce.BlockID([]byte("good")), Data: []byte("evil")},
	}

	err := f.svc.UploadBatch(t.Context(), f.vault, entries)
	if !errors.Is(err, blocks.ErrHashMismatch) {
		t.Fatalf("UploadBatch() = %v, want ErrHashMismatch", err)
	}

	// Hashes are checked before any write, so even the valid entry is absent.
	stats, err := f.store.VaultStats(t.Context(), f.vault)
	if err != nil {
		t.Fatalf("VaultStats() failed: %v", err)
	}
	if stats.BlockCount != 0 {
		t.Fatalf("rejected batch left %d storage objects", stats.BlockCount)
	}
}

func TestGetMissingBlock(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Get(t.Context(), f.vault, deuce.BlockID([]byte("never uploaded")))
	if !metadata.IsNotFound(err) {
		t.Fatalf("Get() on missing block = %v, want NotFound", err)
	}
	_, err = f.svc.Head(t.Context(), f.vault, deuce.BlockID([]byte("never uploaded")))
	if !metadata.IsNotFound(err) {
		t.Fatalf("Head() on missing block = %v, want NotFound", err)
	}
}

func TestOrphanIsInvisibleToContentAPI(t *testing.T) {
	f := newFixture(t)
	data := []byte("orphan candidate")

	// A storage object with no registration is NotFound by content ID.
	if _, err := f.store.StoreBlock(t.Context(), f.vault, deuce.BlockID(data), bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("StoreBlock() failed: %v", err)
	}

	_, _, err := f.svc.Get(t.Context(), f.vault, deuce.BlockID(data))
	if !metadata.IsNotFound(err) {
		t.Fatalf("Get() of unregistered block = %v, want NotFound", err)
	}
}

func TestDivergenceMarksInvalidAndReturnsGone(t *testing.T) {
	f := newFixture(t)
	data := []byte("soon to vanish")
	blockID := deuce.BlockID(data)

	res, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	// Lose the storage object behind metadata's back.
	if err := f.store.DeleteBlock(t.Context(), f.vault, res.StorageID); err != nil {
		t.Fatalf("DeleteBlock() failed: %v", err)
	}

	_, _, err = f.svc.Get(t.Context(), f.vault, blockID)
	var gone *blocks.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("Get() after divergence = %v, want *GoneError", err)
	}
	if gone.Block.BlockID != blockID || !gone.Block.Invalid {
		t.Fatalf("GoneError record = %+v, want invalid block %s", gone.Block, blockID)
	}

	// The mark must have been persisted.
	rec, err := f.meta.GetBlock(t.Context(), f.vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if !rec.Invalid {
		t.Fatal("block not marked invalid after divergence")
	}

	_, err = f.svc.Head(t.Context(), f.vault, blockID)
	if !errors.As(err, &gone) {
		t.Fatalf("Head() after divergence = %v, want *GoneError", err)
	}
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	data := []byte("pinned by a file")
	blockID := deuce.BlockID(data)

	if _, err := f.svc.Upload(t.Context(), f.vault, blockID, data); err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}
	if err := f.meta.IncrementRefs(t.Context(), f.vault, []string{blockID}, 1); err != nil {
		t.Fatalf("IncrementRefs() failed: %v", err)
	}

	err := f.svc.Delete(t.Context(), f.vault, blockID)
	var ref *blocks.ReferencedError
	if !errors.As(err, &ref) {
		t.Fatalf("Delete() of referenced block = %v, want *ReferencedError", err)
	}
	if ref.RefCount != 1 {
		t.Fatalf("ReferencedError.RefCount = %d, want 1", ref.RefCount)
	}

	// Releasing the reference unblocks the delete.
	if err := f.meta.IncrementRefs(t.Context(), f.vault, []string{blockID}, -1); err != nil {
		t.Fatalf("IncrementRefs() failed: %v", err)
	}
	if err := f.svc.Delete(t.Context(), f.vault, blockID); err != nil {
		t.Fatalf("Delete() after release failed: %v", err)
	}

	if _, err := f.svc.Head(t.Context(), f.vault, blockID); !metadata.IsNotFound(err) {
		t.Fatalf("Head() after delete = %v, want NotFound", err)
	}
	stats, _ := f.store.VaultStats(t.Context(), f.vault)
	if stats.BlockCount != 0 {
		t.Fatalf("storage still holds %d objects after delete", stats.BlockCount)
	}
}

func TestDeleteMissingBlock(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Delete(t.Context(), f.vault, deuce.BlockID([]byte("absent")))
	if !metadata.IsNotFound(err) {
		t.Fatalf("Delete() of missing block = %v, want NotFound", err)
	}
}

func TestListBlocks(t *testing.T) {
	f := newFixture(t)

	var ids []string
	for _, payload := range []string{"first", "second", "third"} {
		data := []byte(payload)
		id := deuce.BlockID(data)
		if _, err := f.svc.Upload(t.Context(), f.vault, id, data); err != nil {
			t.Fatalf("Upload() failed: %v", err)
		}
		ids = append(ids, id)
	}

	got, err := f.svc.List(t.Context(), f.vault, "", 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("List() returned %d IDs, want %d", len(got), len(ids))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("List() not in lexicographic order: %v", got)
		}
	}

	if _, err := f.svc.List(t.Context(), deuce.NewVault("p1", "nope"), "", 0); !errors.Is(err, storage.ErrVaultNotFound) {
		t.Fatalf("List() on missing vault = %v, want ErrVaultNotFound", err)
	}
}
