package memory

import (
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// TestRefTimeAdvancesOnReferenceChange pins the ref_time semantics with an
// injected clock: registration stamps the block, reference changes re-stamp
// it, and changes to counters for unregistered blocks leave nothing behind.
func TestRefTimeAdvancesOnReferenceChange(t *testing.T) {
	store := New()
	var tick int64 = 1000
	store.now = func() int64 { return tick }

	ctx := t.Context()
	vault := deuce.NewVault("p1", "clock")
	if err := store.CreateVault(ctx, vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	blockID := deuce.BlockID([]byte("tick tock"))
	if err := store.RegisterBlock(ctx, vault, blockID, deuce.NewStorageID(blockID), 9); err != nil {
		t.Fatalf("RegisterBlock() failed: %v", err)
	}

	block, err := store.GetBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if block.RefTime != 1000 {
		t.Errorf("RefTime after registration = %d, want 1000", block.RefTime)
	}

	tick = 2000
	if err := store.IncrementRefs(ctx, vault, []string{blockID}, 1); err != nil {
		t.Fatalf("IncrementRefs() failed: %v", err)
	}
	block, err = store.GetBlock(ctx, vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if block.RefTime != 2000 {
		t.Errorf("RefTime after reference change = %d, want 2000", block.RefTime)
	}
	if block.RefCount != 1 {
		t.Errorf("RefCount = %d, want 1", block.RefCount)
	}

	// A counter change for a block that was never registered must not
	// create a metadata record.
	phantom := deuce.BlockID([]byte("never registered"))
	tick = 3000
	if err := store.IncrementRefs(ctx, vault, []string{phantom}, 1); err != nil {
		t.Fatalf("IncrementRefs(phantom) failed: %v", err)
	}
	if _, err := store.GetBlock(ctx, vault, phantom); !metadata.IsNotFound(err) {
		t.Errorf("GetBlock(phantom) = %v, want not-found", err)
	}

	// Registering it afterwards picks the counter up.
	if err := store.RegisterBlock(ctx, vault, phantom, deuce.NewStorageID(phantom), 16); err != nil {
		t.Fatalf("RegisterBlock(phantom) failed: %v", err)
	}
	block, err = store.GetBlock(ctx, vault, phantom)
	if err != nil {
		t.Fatalf("GetBlock() failed: %v", err)
	}
	if block.RefCount != 1 {
		t.Errorf("RefCount after late registration = %d, want 1", block.RefCount)
	}
}
