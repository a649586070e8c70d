package storetest

import (
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// runVaultOpsTests runs all vault lifecycle conformance tests.
func runVaultOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CreateAndExists", func(t *testing.T) { testCreateAndExists(t, factory) })
	t.Run("CreateIdempotent", func(t *testing.T) { testCreateIdempotent(t, factory) })
	t.Run("DeleteVault", func(t *testing.T) { testDeleteVault(t, factory) })
	t.Run("ListVaults", func(t *testing.T) { testListVaults(t, factory) })
	t.Run("VaultStats", func(t *testing.T) { testVaultStats(t, factory) })
}

func testCreateAndExists(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	vault := deuce.NewVault("p1", "vault_A")

	exists, err := store.VaultExists(ctx, vault)
	if err != nil {
		t.Fatalf("VaultExists() failed: %v", err)
	}
	if exists {
		t.Error("vault exists before creation")
	}

	if err := store.CreateVault(ctx, vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	exists, err = store.VaultExists(ctx, vault)
	if err != nil {
		t.Fatalf("VaultExists() failed: %v", err)
	}
	if !exists {
		t.Error("vault missing after creation")
	}
}

func testCreateIdempotent(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	vault := testVault(t, store)
	registerBlock(t, store, vault, []byte("payload"))

	if err := store.CreateVault(ctx, vault); err != nil {
		t.Fatalf("second CreateVault() failed: %v", err)
	}

	// Re-creating must not wipe existing contents.
	stats, err := store.VaultStats(ctx, vault)
	if err != nil {
		t.Fatalf("VaultStats() failed: %v", err)
	}
	if stats.BlockCount != 1 {
		t.Errorf("BlockCount = %d after idempotent create, want 1", stats.BlockCount)
	}
}

func testDeleteVault(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	vault := testVault(t, store)

	if err := store.DeleteVault(ctx, vault); err != nil {
		t.Fatalf("DeleteVault() failed: %v", err)
	}

	exists, err := store.VaultExists(ctx, vault)
	if err != nil {
		t.Fatalf("VaultExists() failed: %v", err)
	}
	if exists {
		t.Error("vault still exists after delete")
	}

	if err := store.DeleteVault(ctx, vault); !metadata.IsNotFound(err) {
		t.Errorf("second DeleteVault() = %v, want not-found", err)
	}
}

func testListVaults(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	for _, id := range []string{"vault_C", "vault_A", "vault_B"} {
		if err := store.CreateVault(ctx, deuce.NewVault("p1", id)); err != nil {
			t.Fatalf("CreateVault(%s) failed: %v", id, err)
		}
	}
	// A second project is invisible to the first.
	if err := store.CreateVault(ctx, deuce.NewVault("p2", "vault_Z")); err != nil {
		t.Fatalf("CreateVault(p2) failed: %v", err)
	}

	ids, err := store.ListVaults(ctx, "p1", "", 0)
	if err != nil {
		t.Fatalf("ListVaults() failed: %v", err)
	}
	want := []string{"vault_A", "vault_B", "vault_C"}
	if len(ids) != len(want) {
		t.Fatalf("ListVaults() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListVaults() = %v, want %v", ids, want)
		}
	}

	// Markers are inclusive.
	ids, err = store.ListVaults(ctx, "p1", "vault_B", 0)
	if err != nil {
		t.Fatalf("ListVaults(marker) failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "vault_B" {
		t.Errorf("ListVaults(marker=vault_B) = %v, want [vault_B vault_C]", ids)
	}

	// A marker that matches nothing resumes at the next key after it.
	ids, err = store.ListVaults(ctx, "p1", "vault_Ba", 0)
	if err != nil {
		t.Fatalf("ListVaults(missing marker) failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "vault_C" {
		t.Errorf("ListVaults(marker=vault_Ba) = %v, want [vault_C]", ids)
	}

	// Limits clip the result.
	ids, err = store.ListVaults(ctx, "p1", "", 2)
	if err != nil {
		t.Fatalf("ListVaults(limit) failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListVaults(limit=2) returned %d entries", len(ids))
	}
}

func testVaultStats(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	vault := testVault(t, store)

	b1, _ := registerBlock(t, store, vault, []byte("one"))
	registerBlock(t, store, vault, []byte("two"))

	fileID := createFile(t, store, vault)
	if err := store.AssignBlocks(ctx, vault, fileID, []metadata.Assignment{{BlockID: b1, Offset: 0}}); err != nil {
		t.Fatalf("AssignBlocks() failed: %v", err)
	}

	stats, err := store.VaultStats(ctx, vault)
	if err != nil {
		t.Fatalf("VaultStats() failed: %v", err)
	}
	if stats.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1", stats.FileCount)
	}
	if stats.BlockCount != 2 {
		t.Errorf("BlockCount = %d, want 2", stats.BlockCount)
	}

	if _, err := store.VaultStats(ctx, deuce.NewVault("p1", "no_such_vault")); !metadata.IsNotFound(err) {
		t.Errorf("VaultStats(missing) = %v, want not-found", err)
	}
}
