package blocks_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
)

func newStorageFixture(t *testing.T) (*fixture, *blocks.StorageService) {
	t.Helper()
	f := newFixture(t)
	return f, blocks.NewStorageService(f.meta, f.store)
}

// uploadTwice returns the live upload and the orphaned one.
func uploadTwice(t *testing.T, f *fixture, data []byte) (live, orphan *blocks.UploadResult) {
	t.Helper()
	blockID := deuce.BlockID(data)

	live, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("first Upload() failed: %v", err)
	}
	orphan, err = f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("second Upload() failed: %v", err)
	}
	return live, orphan
}

func TestHeadDescribesLiveObject(t *testing.T) {
	f, svc := newStorageFixture(t)
	data := []byte("live object")
	blockID := deuce.BlockID(data)

	res, err := f.svc.Upload(t.Context(), f.vault, blockID, data)
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	info, err := svc.Head(t.Context(), f.vault, res.StorageID)
	if err != nil {
		t.Fatalf("Head() failed: %v", err)
	}
	if info.Orphaned {
		t.Fatal("live object described as orphaned")
	}
	if info.BlockID != blockID {
		t.Fatalf("Head() block ID = %q, want %q", info.BlockID, blockID)
	}
	if info.Size != int64(len(data)) {
		t.Fatalf("Head() size = %d, want %d", info.Size, len(data))
	}
	if info.RefTime == 0 {
		t.Fatal("Head() of live object has no ref time")
	}
}

func TestHeadDescribesOrphan(t *testing.T) {
	f, svc := newStorageFixture(t)
	_, orphan := uploadTwice(t, f, []byte("doubled up"))

	info, err := svc.Head(t.Context(), f.vault, orphan.StorageID)
	if err != nil {
		t.Fatalf("Head() failed: %v", err)
	}
	if !info.Orphaned {
		t.Fatal("orphan described as live")
	}
	if info.BlockID != "" || info.RefCount != 0 || info.RefTime != 0 {
		t.Fatalf("orphan carries metadata fields: %+v", info)
	}
	if info.Size != int64(len("doubled up")) {
		t.Fatalf("Head() size = %d, want %d", info.Size, len("doubled up"))
	}
}

func TestGetReadsOrphans(t *testing.T) {
	f, svc := newStorageFixture(t)
	data := []byte("still readable")
	_, orphan := uploadTwice(t, f, data)

	info, rc, err := svc.Get(t.Context(), f.vault, orphan.StorageID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	defer rc.Close()
	if !info.Orphaned {
		t.Fatal("orphan described as live")
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading orphan failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get() = %q, want %q", got, data)
	}
}

func TestDeleteReclaimsOrphanOnly(t *testing.T) {
	f, svc := newStorageFixture(t)
	live, orphan := uploadTwice(t, f, []byte("reclaim me"))

	if err := svc.Delete(t.Context(), f.vault, orphan.StorageID); err != nil {
		t.Fatalf("Delete() of orphan failed: %v", err)
	}
	if _, err := svc.Head(t.Context(), f.vault, orphan.StorageID); !errors.Is(err, storage.ErrBlockNotFound) {
		t.Fatalf("Head() after reclaim = %v, want ErrBlockNotFound", err)
	}

	// The live copy is refused even at refcount zero.
	err := svc.Delete(t.Context(), f.vault, live.StorageID)
	var bound *blocks.BoundError
	if !errors.As(err, &bound) {
		t.Fatalf("Delete() of live object = %v, want *BoundError", err)
	}
	if bound.BlockID != live.Block.BlockID || bound.RefCount != 0 {
		t.Fatalf("BoundError = %+v, want block %s refcount 0", bound, live.Block.BlockID)
	}

	// The block remains served by the content API.
	if _, err := f.svc.Head(t.Context(), f.vault, live.Block.BlockID); err != nil {
		t.Fatalf("Head() of block after refused delete failed: %v", err)
	}
}

func TestStorageMissingObject(t *testing.T) {
	f, svc := newStorageFixture(t)

	missing := deuce.NewStorageID(deuce.BlockID([]byte("no such object")))
	if _, err := svc.Head(t.Context(), f.vault, missing); !errors.Is(err, storage.ErrBlockNotFound) {
		t.Fatalf("Head() = %v, want ErrBlockNotFound", err)
	}
	if err := svc.Delete(t.Context(), f.vault, missing); !errors.Is(err, storage.ErrBlockNotFound) {
		t.Fatalf("Delete() = %v, want ErrBlockNotFound", err)
	}
	if _, err := svc.Head(t.Context(), deuce.NewVault("p1", "nope"), missing); !errors.Is(err, storage.ErrVaultNotFound) {
		t.Fatalf("Head() on missing vault = %v, want ErrVaultNotFound", err)
	}
}

func TestStorageListIncludesOrphans(t *testing.T) {
	f, svc := newStorageFixture(t)
	live, orphan := uploadTwice(t, f, []byte("both listed"))

	ids, err := svc.List(t.Context(), f.vault, "", 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("List() returned %d IDs, want 2: %v", len(ids), ids)
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[live.StorageID] || !found[orphan.StorageID] {
		t.Fatalf("List() = %v, want both %s and %s", ids, live.StorageID, orphan.StorageID)
	}
}
