package storetest

import (
	"testing"
	"time"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// runBlockOpsTests runs all block registration and refcount conformance tests.
func runBlockOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("RegisterAndGet", func(t *testing.T) { testRegisterAndGet(t, factory) })
	t.Run("RegisterIdempotent", func(t *testing.T) { testRegisterIdempotent(t, factory) })
	t.Run("UnregisterFreeBlock", func(t *testing.T) { testUnregisterFreeBlock(t, factory) })
	t.Run("UnregisterReferencedBlock", func(t *testing.T) { testUnregisterReferencedBlock(t, factory) })
	t.Run("UnregisterMissingBlock", func(t *testing.T) { testUnregisterMissingBlock(t, factory) })
	t.Run("MissingBlocks", func(t *testing.T) { testMissingBlocks(t, factory) })
	t.Run("MarkBlockInvalid", func(t *testing.T) { testMarkBlockInvalid(t, factory) })
	t.Run("StorageIDReverseLookup", func(t *testing.T) { testStorageIDReverseLookup(t, factory) })
	t.Run("ListBlocks", func(t *testing.T) { testListBlocks(t, factory) })
	t.Run("RefsSurviveRegistration", func(t *testing.T) { testRefsSurviveRegistration(t, factory) })
}

func testRegisterAndGet(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	data := []byte("hello")
	before := time.Now().Unix()
	blockID, storageID := registerBlock(t, store, vault, data)

	has, err := store.HasBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("HasBlock() failed: %v", err)
	}
	if !has {
		t.Fatal("HasBlock() = false after registration")
	}

	block, err := store.GetBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if block.StorageID != storageID {
		t.Errorf("StorageID = %q, want %q", block.StorageID, storageID)
	}
	if block.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", block.Size, len(data))
	}
	if block.Invalid {
		t.Error("new block marked invalid")
	}
	if block.RefCount != 0 {
		t.Errorf("RefCount = %d, want 0", block.RefCount)
	}
	if block.RefTime < before {
		t.Errorf("RefTime = %d, want >= %d", block.RefTime, before)
	}
}

func testRegisterIdempotent(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, firstStorageID := registerBlock(t, store, vault, []byte("dedup me"))

	// A second upload of the same content mints a new storage object, but the
	// first binding wins and the new object is an orphan.
	secondStorageID := deuce.NewStorageID(blockID)
	if err := store.RegisterBlock(ctx, vault, blockID, secondStorageID, 8); err != nil {
		t.Fatalf("second RegisterBlock() failed: %v", err)
	}

	block, err := store.GetBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if block.StorageID != firstStorageID {
		t.Errorf("StorageID = %q, want original %q", block.StorageID, firstStorageID)
	}

	if _, err := store.BlockIDForStorageID(ctx, vault, secondStorageID); !metadata.IsNotFound(err) {
		t.Errorf("orphan storage ID resolved to a block: %v", err)
	}
}

func testUnregisterFreeBlock(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, storageID := registerBlock(t, store, vault, []byte("transient"))

	if err := store.UnregisterBlock(ctx, vault, blockID); err != nil {
		t.Fatalf("UnregisterBlock() failed: %v", err)
	}

	if has, _ := store.HasBlock(ctx, vault, blockID); has {
		t.Error("HasBlock() = true after unregister")
	}
	if _, err := store.GetBlock(ctx, vault, blockID); !metadata.IsNotFound(err) {
		t.Errorf("GetBlock() after unregister = %v, want not-found", err)
	}
	if _, err := store.BlockIDForStorageID(ctx, vault, storageID); !metadata.IsNotFound(err) {
		t.Errorf("reverse lookup after unregister = %v, want not-found", err)
	}
}

func testUnregisterReferencedBlock(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, _ := registerBlock(t, store, vault, []byte("pinned"))
	fileID := createFile(t, store, vault)
	if err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: blockID, Offset: 0}}); err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	if err := store.UnregisterBlock(ctx, vault, blockID); !metadata.IsConstraint(err) {
		t.Fatalf("UnregisterBlock(referenced) = %v, want constraint error", err)
	}

	// Dropping the file releases the reference and the unregister succeeds.
	if err := store.DeleteFile(ctx, vault, fileID); err != nil {
		t.Fatalf("DeleteFile() failed: %v", err)
	}
	if err := store.UnregisterBlock(ctx, vault, blockID); err != nil {
		t.Fatalf("UnregisterBlock() after release failed: %v", err)
	}
}

func testUnregisterMissingBlock(t *testing.T, factory StoreFactory) {
	store := factory(t)
	vault := testVault(t, store)

	blockID := deuce.BlockID([]byte("never registered"))
	if err := store.UnregisterBlock(t.Context(), vault, blockID); !metadata.IsNotFound(err) {
		t.Errorf("UnregisterBlock(missing) = %v, want not-found", err)
	}
}

func testMissingBlocks(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	present, _ := registerBlock(t, store, vault, []byte("present"))
	absent := deuce.BlockID([]byte("absent"))

	missing, err := store.MissingBlocks(ctx, vault, []string{present, absent})
	if err != nil {
		t.Fatalf("MissingBlocks() failed: %v", err)
	}
	if len(missing) != 1 || missing[0] != absent {
		t.Errorf("MissingBlocks() = %v, want [%s]", missing, absent)
	}
}

func testMarkBlockInvalid(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, _ := registerBlock(t, store, vault, []byte("diverged"))

	if err := store.MarkBlockInvalid(ctx, vault, blockID); err != nil {
		t.Fatalf("MarkBlockInvalid() failed: %v", err)
	}

	block, err := store.GetBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if !block.Invalid {
		t.Error("Invalid = false after MarkBlockInvalid")
	}
}

func testStorageIDReverseLookup(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, storageID := registerBlock(t, store, vault, []byte("addressable"))

	got, err := store.BlockIDForStorageID(ctx, vault, storageID)
	if err != nil {
		t.Fatalf("BlockIDForStorageID() failed: %v", err)
	}
	if got != blockID {
		t.Errorf("BlockIDForStorageID() = %q, want %q", got, blockID)
	}

	orphan := deuce.NewStorageID(blockID)
	if _, err := store.BlockIDForStorageID(ctx, vault, orphan); !metadata.IsNotFound(err) {
		t.Errorf("BlockIDForStorageID(orphan) = %v, want not-found", err)
	}
}

func testListBlocks(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	ids := uniqueBlocks(t, store, vault, 5, 16)

	listed, err := store.ListBlocks(ctx, vault, "", 0)
	if err != nil {
		t.Fatalf("ListBlocks() failed: %v", err)
	}
	if len(listed) != len(ids) {
		t.Fatalf("ListBlocks() returned %d entries, want %d", len(listed), len(ids))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i-1] >= listed[i] {
			t.Fatalf("ListBlocks() not ascending: %v", listed)
		}
	}

	// Marker is inclusive and resumes mid-listing.
	fromThird, err := store.ListBlocks(ctx, vault, listed[2], 0)
	if err != nil {
		t.Fatalf("ListBlocks(marker) failed: %v", err)
	}
	if len(fromThird) != 3 || fromThird[0] != listed[2] {
		t.Errorf("ListBlocks(marker=%s) = %v", listed[2], fromThird)
	}

	// Limit clips.
	two, err := store.ListBlocks(ctx, vault, "", 2)
	if err != nil {
		t.Fatalf("ListBlocks(limit) failed: %v", err)
	}
	if len(two) != 2 {
		t.Errorf("ListBlocks(limit=2) returned %d entries", len(two))
	}
}

func testRefsSurviveRegistration(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	data := []byte("assigned before upload")
	blockID := deuce.BlockID(data)

	// Assignment before registration leaves a counter without a binding.
	fileID := createFile(t, store, vault)
	if err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: blockID, Offset: 0}}); err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	// Registration must not reset the existing reference count.
	registerBlock(t, store, vault, data)
	if got := refCount(t, store, vault, blockID); got != 1 {
		t.Errorf("RefCount after late registration = %d, want 1", got)
	}
}
