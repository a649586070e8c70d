package storetest

import (
	"errors"
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// runFileOpsTests runs all file manifest and finalization conformance tests.
func runFileOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateAndGetFile", func(t *testing.T) { testCreateAndGetFile(t, factory) })
	t.Run("AssignResolvesSizes", func(t *testing.T) { testAssignResolvesSizes(t, factory) })
	t.Run("AssignIncrementsRefs", func(t *testing.T) { testAssignIncrementsRefs(t, factory) })
	t.Run("AssignDuplicateSkipped", func(t *testing.T) { testAssignDuplicateSkipped(t, factory) })
	t.Run("AssignToFinalizedFile", func(t *testing.T) { testAssignToFinalizedFile(t, factory) })
	t.Run("FinalizeHappyPath", func(t *testing.T) { testFinalizeHappyPath(t, factory) })
	t.Run("FinalizeEmptyFile", func(t *testing.T) { testFinalizeEmptyFile(t, factory) })
	t.Run("FinalizeGap", func(t *testing.T) { testFinalizeGap(t, factory) })
	t.Run("FinalizeOverlap", func(t *testing.T) { testFinalizeOverlap(t, factory) })
	t.Run("FinalizeTwice", func(t *testing.T) { testFinalizeTwice(t, factory) })
	t.Run("FinalizeResolvesLateSizes", func(t *testing.T) { testFinalizeResolvesLateSizes(t, factory) })
	t.Run("DeleteFileReleasesRefs", func(t *testing.T) { testDeleteFileReleasesRefs(t, factory) })
	t.Run("ListFiles", func(t *testing.T) { testListFiles(t, factory) })
	t.Run("ListFileBlocks", func(t *testing.T) { testListFileBlocks(t, factory) })
}

func testCreateAndGetFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	fileID := createFile(t, store, vault)

	file, err := store.GetFile(ctx, vault, fileID)
	if err != nil {
		t.Fatalf("GetFile() failed: %v", err)
	}
	if file.Finalized {
		t.Error("new file is finalized")
	}
	if file.Size != 0 {
		t.Errorf("new file Size = %d, want 0", file.Size)
	}

	if _, err := store.GetFile(ctx, vault, deuce.NewFileID()); !metadata.IsNotFound(err) {
		t.Errorf("GetFile(missing) = %v, want not-found", err)
	}

	if err := store.CreateFile(ctx, vault, fileID); !metadata.HasCode(err, metadata.ErrAlreadyExists) {
		t.Errorf("duplicate CreateFile() = %v, want already-exists", err)
	}
}

func testAssignResolvesSizes(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	registered, _ := registerBlock(t, store, vault, blockOfSize(100, 'a'))
	unregistered := deuce.BlockID(blockOfSize(100, 'b'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: registered, Offset: 0},
		{BlockID: unregistered, Offset: 100},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	blocks, err := store.ListFileBlocks(ctx, vault, fileID, 0, 0)
	if err != nil {
		t.Fatalf("ListFileBlocks() failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("ListFileBlocks() returned %d entries, want 2", len(blocks))
	}
	if blocks[0].Size == nil || *blocks[0].Size != 100 {
		t.Errorf("registered block size = %v, want 100", blocks[0].Size)
	}
	if blocks[1].Size != nil {
		t.Errorf("unregistered block size = %v, want nil", *blocks[1].Size)
	}
}

func testAssignIncrementsRefs(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, _ := registerBlock(t, store, vault, blockOfSize(64, 'r'))

	first := createFile(t, store, vault)
	second := createFile(t, store, vault)

	for _, fileID := range []string{first, second} {
		if err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: blockID, Offset: 0}}); err != nil {
			t.Fatalf("AssignBlocks(%s) failed: %v", fileID, err)
		}
	}

	if got := refCount(t, store, vault, blockID); got != 2 {
		t.Errorf("RefCount = %d, want 2", got)
	}
}

func testAssignDuplicateSkipped(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	blockID, _ := registerBlock(t, store, vault, blockOfSize(32, 'd'))
	fileID := createFile(t, store, vault)

	assignments := []metadata.Assignment{{BlockID: blockID, Offset: 0}}
	for i := 0; i < 2; i++ {
		if err := store.AssignBlocks(ctx, vault, fileID, assignments); err != nil {
			t.Fatalf("AssignBlocks() round %d failed: %v", i, err)
		}
	}

	blocks, err := store.ListFileBlocks(ctx, vault, fileID, 0, 0)
	if err != nil {
		t.Fatalf("ListFileBlocks() failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("duplicate assignment produced %d rows, want 1", len(blocks))
	}
	if got := refCount(t, store, vault, blockID); got != 1 {
		t.Errorf("RefCount after duplicate assignment = %d, want 1", got)
	}
}

func testAssignToFinalizedFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	fileID := createFile(t, store, vault)
	if err := store.FinalizeFile(ctx, vault, fileID, 0); err != nil {
		t.Fatalf("FinalizeFile() failed: %v", err)
	}

	blockID, _ := registerBlock(t, store, vault, blockOfSize(16, 'x'))
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: blockID, Offset: 0}})
	if !metadata.IsConstraint(err) {
		t.Errorf("AssignBlocks(finalized) = %v, want constraint error", err)
	}
}

func testFinalizeHappyPath(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, blockOfSize(100, '1'))
	b2, _ := registerBlock(t, store, vault, blockOfSize(100, '2'))
	b3, _ := registerBlock(t, store, vault, blockOfSize(100, '3'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: b3, Offset: 200},
		{BlockID: b1, Offset: 0},
		{BlockID: b2, Offset: 100},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	if err := store.FinalizeFile(ctx, vault, fileID, 300); err != nil {
		t.Fatalf("FinalizeFile() failed: %v", err)
	}

	file, err := store.GetFile(ctx, vault, fileID)
	if err != nil {
		t.Fatalf("GetFile() failed: %v", err)
	}
	if !file.Finalized {
		t.Error("file not finalized")
	}
	if file.Size != 300 {
		t.Errorf("Size = %d, want 300", file.Size)
	}
}

func testFinalizeEmptyFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	vault := testVault(t, store)

	fileID := createFile(t, store, vault)
	if err := store.FinalizeFile(t.Context(), vault, fileID, 0); err != nil {
		t.Fatalf("FinalizeFile(empty, 0) failed: %v", err)
	}
}

func testFinalizeGap(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, blockOfSize(100, '1'))
	b3, _ := registerBlock(t, store, vault, blockOfSize(100, '3'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: b1, Offset: 0},
		{BlockID: b3, Offset: 200},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	finalizeErr := store.FinalizeFile(ctx, vault, fileID, 300)
	var gap *metadata.GapError
	if !errors.As(finalizeErr, &gap) {
		t.Fatalf("FinalizeFile() = %v, want GapError", finalizeErr)
	}
	if gap.Start != 100 || gap.End != 200 {
		t.Errorf("gap = [%d, %d), want [100, 200)", gap.Start, gap.End)
	}

	// The failed finalize must leave the file unfinalized.
	file, err := store.GetFile(ctx, vault, fileID)
	if err != nil {
		t.Fatalf("GetFile() failed: %v", err)
	}
	if file.Finalized {
		t.Error("file finalized despite gap")
	}
}

func testFinalizeOverlap(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, blockOfSize(100, '1'))
	b2, _ := registerBlock(t, store, vault, blockOfSize(100, '2'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: b1, Offset: 0},
		{BlockID: b2, Offset: 50},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	finalizeErr := store.FinalizeFile(ctx, vault, fileID, 150)
	var overlap *metadata.OverlapError
	if !errors.As(finalizeErr, &overlap) {
		t.Fatalf("FinalizeFile() = %v, want OverlapError", finalizeErr)
	}
	if overlap.BlockID != b2 {
		t.Errorf("overlap block = %q, want %q", overlap.BlockID, b2)
	}
}

func testFinalizeTwice(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	fileID := createFile(t, store, vault)
	if err := store.FinalizeFile(ctx, vault, fileID, 0); err != nil {
		t.Fatalf("FinalizeFile() failed: %v", err)
	}
	if err := store.FinalizeFile(ctx, vault, fileID, 0); !metadata.IsConstraint(err) {
		t.Errorf("second FinalizeFile() = %v, want constraint error", err)
	}
}

func testFinalizeResolvesLateSizes(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	data := blockOfSize(100, 'L')
	blockID := deuce.BlockID(data)

	fileID := createFile(t, store, vault)
	if err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: blockID, Offset: 0}}); err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	// The block arrives after the assignment; finalize must pick up its size.
	registerBlock(t, store, vault, data)

	if err := store.FinalizeFile(ctx, vault, fileID, 100); err != nil {
		t.Fatalf("FinalizeFile() after late registration failed: %v", err)
	}
}

func testDeleteFileReleasesRefs(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, blockOfSize(10, 'p'))
	b2, _ := registerBlock(t, store, vault, blockOfSize(10, 'q'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: b1, Offset: 0},
		{BlockID: b2, Offset: 10},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	if err := store.DeleteFile(ctx, vault, fileID); err != nil {
		t.Fatalf("DeleteFile() failed: %v", err)
	}

	if _, err := store.GetFile(ctx, vault, fileID); !metadata.IsNotFound(err) {
		t.Errorf("GetFile(deleted) = %v, want not-found", err)
	}
	if got := refCount(t, store, vault, b1); got != 0 {
		t.Errorf("RefCount(b1) = %d after delete, want 0", got)
	}
	if got := refCount(t, store, vault, b2); got != 0 {
		t.Errorf("RefCount(b2) = %d after delete, want 0", got)
	}

	if err := store.DeleteFile(ctx, vault, fileID); !metadata.IsNotFound(err) {
		t.Errorf("second DeleteFile() = %v, want not-found", err)
	}
}

func testListFiles(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	finalized := createFile(t, store, vault)
	if err := store.FinalizeFile(ctx, vault, finalized, 0); err != nil {
		t.Fatalf("FinalizeFile() failed: %v", err)
	}
	pending := createFile(t, store, vault)

	all, err := store.ListFiles(ctx, vault, "", 0, false)
	if err != nil {
		t.Fatalf("ListFiles(all) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListFiles(all) returned %d entries, want 2", len(all))
	}

	finalizedOnly, err := store.ListFiles(ctx, vault, "", 0, true)
	if err != nil {
		t.Fatalf("ListFiles(finalized) failed: %v", err)
	}
	if len(finalizedOnly) != 1 || finalizedOnly[0] != finalized {
		t.Errorf("ListFiles(finalized) = %v, want [%s]", finalizedOnly, finalized)
	}
	_ = pending
}

func testListFileBlocks(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, blockOfSize(100, '1'))
	b2, _ := registerBlock(t, store, vault, blockOfSize(100, '2'))
	b3, _ := registerBlock(t, store, vault, blockOfSize(100, '3'))

	fileID := createFile(t, store, vault)
	err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{
		{BlockID: b2, Offset: 100},
		{BlockID: b3, Offset: 200},
		{BlockID: b1, Offset: 0},
	})
	if err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	blocks, err := store.ListFileBlocks(ctx, vault, fileID, 0, 0)
	if err != nil {
		t.Fatalf("ListFileBlocks() failed: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("ListFileBlocks() returned %d entries, want 3", len(blocks))
	}
	wantOrder := []string{b1, b2, b3}
	for i, fb := range blocks {
		if fb.BlockID != wantOrder[i] {
			t.Fatalf("ListFileBlocks()[%d] = %s, want %s", i, fb.BlockID, wantOrder[i])
		}
		if fb.Offset != int64(i*100) {
			t.Errorf("ListFileBlocks()[%d].Offset = %d, want %d", i, fb.Offset, i*100)
		}
	}

	// Offset markers resume mid-file.
	tail, err := store.ListFileBlocks(ctx, vault, fileID, 100, 0)
	if err != nil {
		t.Fatalf("ListFileBlocks(marker) failed: %v", err)
	}
	if len(tail) != 2 || tail[0].BlockID != b2 {
		t.Errorf("ListFileBlocks(marker=100) = %+v", tail)
	}

	// Limit clips.
	one, err := store.ListFileBlocks(ctx, vault, fileID, 0, 1)
	if err != nil {
		t.Fatalf("ListFileBlocks(limit) failed: %v", err)
	}
	if len(one) != 1 {
		t.Errorf("ListFileBlocks(limit=1) returned %d entries", len(one))
	}

	if _, err := store.ListFileBlocks(ctx, vault, deuce.NewFileID(), 0, 0); !metadata.IsNotFound(err) {
		t.Errorf("ListFileBlocks(missing file) = %v, want not-found", err)
	}
}
