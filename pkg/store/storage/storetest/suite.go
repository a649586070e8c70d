// Package storetest provides a conformance suite every storage backend must
// pass. Driver packages run it from their own tests with a factory producing
// fresh stores.
package storetest

import (
	"bytes"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
)

// StoreFactory creates a fresh storage.Store instance for each test. The
// factory receives *testing.T so it can use t.TempDir() for drivers that need
// filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) storage.Store

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory. Each test gets a fresh store instance to ensure
// isolation.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("VaultLifecycle", func(t *testing.T) {
		store := factory(t)
		vault := deuce.NewVault("p1", "vault_A")

		exists, err := store.VaultExists(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultExists() failed: %v", err)
		}
		if exists {
			t.Fatal("VaultExists() = true before CreateVault")
		}

		if err := store.CreateVault(t.Context(), vault); err != nil {
			t.Fatalf("CreateVault() failed: %v", err)
		}
		if err := store.CreateVault(t.Context(), vault); err != nil {
			t.Fatalf("CreateVault() second call failed: %v", err)
		}

		exists, err = store.VaultExists(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultExists() failed: %v", err)
		}
		if !exists {
			t.Fatal("VaultExists() = false after CreateVault")
		}

		if err := store.DeleteVault(t.Context(), vault); err != nil {
			t.Fatalf("DeleteVault() failed: %v", err)
		}
		exists, err = store.VaultExists(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultExists() failed: %v", err)
		}
		if exists {
			t.Fatal("VaultExists() = true after DeleteVault")
		}

		if err := store.DeleteVault(t.Context(), vault); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("DeleteVault() on missing vault = %v, want ErrVaultNotFound", err)
		}
	})

	t.Run("DeleteVaultRefusedWhileNotEmpty", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)
		storageID := storeBlock(t, store, vault, []byte("payload"))

		if err := store.DeleteVault(t.Context(), vault); !errors.Is(err, storage.ErrVaultNotEmpty) {
			t.Fatalf("DeleteVault() = %v, want ErrVaultNotEmpty", err)
		}

		if err := store.DeleteBlock(t.Context(), vault, storageID); err != nil {
			t.Fatalf("DeleteBlock() failed: %v", err)
		}
		if err := store.DeleteVault(t.Context(), vault); err != nil {
			t.Fatalf("DeleteVault() after emptying failed: %v", err)
		}
	})

	t.Run("StoreAndGetBlock", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		data := []byte("hello block storage")
		storageID := storeBlock(t, store, vault, data)

		if !deuce.ValidStorageID(storageID) {
			t.Fatalf("StoreBlock() returned malformed storage ID %q", storageID)
		}
		embedded, ok := deuce.SplitStorageID(storageID)
		if !ok || embedded != deuce.BlockID(data) {
			t.Fatalf("storage ID %q does not embed block ID %q", storageID, deuce.BlockID(data))
		}

		got := readBlock(t, store, vault, storageID)
		if !bytes.Equal(got, data) {
			t.Fatalf("GetBlock() = %q, want %q", got, data)
		}

		size, err := store.BlockSize(t.Context(), vault, storageID)
		if err != nil {
			t.Fatalf("BlockSize() failed: %v", err)
		}
		if size != int64(len(data)) {
			t.Fatalf("BlockSize() = %d, want %d", size, len(data))
		}

		exists, err := store.BlockExists(t.Context(), vault, storageID)
		if err != nil {
			t.Fatalf("BlockExists() failed: %v", err)
		}
		if !exists {
			t.Fatal("BlockExists() = false after StoreBlock")
		}
	})

	t.Run("RepeatedStoreMintsDistinctObjects", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		data := []byte("same content twice")
		first := storeBlock(t, store, vault, data)
		second := storeBlock(t, store, vault, data)
		if first == second {
			t.Fatalf("StoreBlock() returned the same storage ID twice: %q", first)
		}

		for _, id := range []string{first, second} {
			if got := readBlock(t, store, vault, id); !bytes.Equal(got, data) {
				t.Fatalf("GetBlock(%s) = %q, want %q", id, got, data)
			}
		}
	})

	t.Run("StoreBlocksBatch", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		blocks := []storage.Block{
			{BlockID: deuce.BlockID([]byte("one")), Data: []byte("one")},
			{BlockID: deuce.BlockID([]byte("two")), Data: []byte("two")},
			{BlockID: deuce.BlockID([]byte("three")), Data: []byte("three")},
		}
		storageIDs, err := store.StoreBlocks(t.Context(), vault, blocks)
		if err != nil {
			t.Fatalf("StoreBlocks() failed: %v", err)
		}
		if len(storageIDs) != len(blocks) {
			t.Fatalf("StoreBlocks() returned %d IDs, want %d", len(storageIDs), len(blocks))
		}

		for i, id := range storageIDs {
			embedded, ok := deuce.SplitStorageID(id)
			if !ok || embedded != blocks[i].BlockID {
				t.Fatalf("storage ID %q does not embed block ID %q", id, blocks[i].BlockID)
			}
			if got := readBlock(t, store, vault, id); !bytes.Equal(got, blocks[i].Data) {
				t.Fatalf("GetBlock(%s) = %q, want %q", id, got, blocks[i].Data)
			}
		}
	})

	t.Run("MissingBlockErrors", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)
		missing := deuce.NewStorageID(deuce.BlockID([]byte("never stored")))

		if _, err := store.GetBlock(t.Context(), vault, missing); !errors.Is(err, storage.ErrBlockNotFound) {
			t.Fatalf("GetBlock() = %v, want ErrBlockNotFound", err)
		}
		if _, err := store.BlockSize(t.Context(), vault, missing); !errors.Is(err, storage.ErrBlockNotFound) {
			t.Fatalf("BlockSize() = %v, want ErrBlockNotFound", err)
		}
		if err := store.DeleteBlock(t.Context(), vault, missing); !errors.Is(err, storage.ErrBlockNotFound) {
			t.Fatalf("DeleteBlock() = %v, want ErrBlockNotFound", err)
		}
		exists, err := store.BlockExists(t.Context(), vault, missing)
		if err != nil {
			t.Fatalf("BlockExists() failed: %v", err)
		}
		if exists {
			t.Fatal("BlockExists() = true for missing block")
		}
	})

	t.Run("MissingVaultErrors", func(t *testing.T) {
		store := factory(t)
		vault := deuce.NewVault("p1", "never_created")
		storageID := deuce.NewStorageID(deuce.BlockID([]byte("data")))

		if _, err := store.StoreBlock(t.Context(), vault, deuce.BlockID([]byte("data")), bytes.NewReader([]byte("data")), 4); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("StoreBlock() = %v, want ErrVaultNotFound", err)
		}
		if _, err := store.ListBlocks(t.Context(), vault, "", 0); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("ListBlocks() = %v, want ErrVaultNotFound", err)
		}
		if _, err := store.VaultStats(t.Context(), vault); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("VaultStats() = %v, want ErrVaultNotFound", err)
		}
		if _, err := store.GetBlock(t.Context(), vault, storageID); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("GetBlock() = %v, want ErrVaultNotFound", err)
		}
		if err := store.DeleteBlock(t.Context(), vault, storageID); !errors.Is(err, storage.ErrVaultNotFound) {
			t.Fatalf("DeleteBlock() = %v, want ErrVaultNotFound", err)
		}
	})

	t.Run("ListBlocks", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		stored := []string{
			storeBlock(t, store, vault, []byte("alpha")),
			storeBlock(t, store, vault, []byte("beta")),
			storeBlock(t, store, vault, []byte("gamma")),
			storeBlock(t, store, vault, []byte("delta")),
		}
		sort.Strings(stored)

		all, err := store.ListBlocks(t.Context(), vault, "", 0)
		if err != nil {
			t.Fatalf("ListBlocks() failed: %v", err)
		}
		assertIDs(t, all, stored)

		// Marker resume is inclusive.
		fromSecond, err := store.ListBlocks(t.Context(), vault, stored[1], 0)
		if err != nil {
			t.Fatalf("ListBlocks(marker) failed: %v", err)
		}
		assertIDs(t, fromSecond, stored[1:])

		limited, err := store.ListBlocks(t.Context(), vault, "", 2)
		if err != nil {
			t.Fatalf("ListBlocks(limit) failed: %v", err)
		}
		assertIDs(t, limited, stored[:2])
	})

	t.Run("VaultStats", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		empty, err := store.VaultStats(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultStats() failed: %v", err)
		}
		if empty.BlockCount != 0 || empty.TotalSize != 0 {
			t.Fatalf("VaultStats() on empty vault = %+v, want zero counts", empty)
		}

		storeBlock(t, store, vault, bytes.Repeat([]byte("a"), 100))
		storeBlock(t, store, vault, bytes.Repeat([]byte("b"), 50))

		stats, err := store.VaultStats(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultStats() failed: %v", err)
		}
		if stats.BlockCount != 2 {
			t.Errorf("VaultStats().BlockCount = %d, want 2", stats.BlockCount)
		}
		if stats.TotalSize != 150 {
			t.Errorf("VaultStats().TotalSize = %d, want 150", stats.TotalSize)
		}
	})

	t.Run("DeleteBlockKeepsVault", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)
		storageID := storeBlock(t, store, vault, []byte("only block"))

		if err := store.DeleteBlock(t.Context(), vault, storageID); err != nil {
			t.Fatalf("DeleteBlock() failed: %v", err)
		}

		exists, err := store.VaultExists(t.Context(), vault)
		if err != nil {
			t.Fatalf("VaultExists() failed: %v", err)
		}
		if !exists {
			t.Fatal("VaultExists() = false after deleting the vault's last block")
		}
	})

	t.Run("ClosedStore", func(t *testing.T) {
		store := factory(t)
		vault := testVault(t, store)

		if err := store.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
		if err := store.CreateVault(t.Context(), vault); !errors.Is(err, storage.ErrStoreClosed) {
			t.Fatalf("CreateVault() after Close = %v, want ErrStoreClosed", err)
		}
		if _, err := store.GetBlock(t.Context(), vault, "x"); !errors.Is(err, storage.ErrStoreClosed) {
			t.Fatalf("GetBlock() after Close = %v, want ErrStoreClosed", err)
		}
	})
}

// testVault creates the canonical test vault and returns its address.
func testVault(t *testing.T, store storage.Store) deuce.Vault {
	t.Helper()

	vault := deuce.NewVault("p1", "vault_A")
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}
	return vault
}

// storeBlock stores data under its content ID and returns the storage ID.
func storeBlock(t *testing.T, store storage.Store, vault deuce.Vault, data []byte) string {
	t.Helper()

	storageID, err := store.StoreBlock(t.Context(), vault, deuce.BlockID(data), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("StoreBlock() failed: %v", err)
	}
	return storageID
}

// readBlock fetches a storage object and returns its bytes.
func readBlock(t *testing.T, store storage.Store, vault deuce.Vault, storageID string) []byte {
	t.Helper()

	rc, err := store.GetBlock(t.Context(), vault, storageID)
	if err != nil {
		t.Fatalf("GetBlock(%s) failed: %v", storageID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading block %s failed: %v", storageID, err)
	}
	return data
}

// assertIDs fails the test unless got equals want element for element.
func assertIDs(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("listing returned %d IDs %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("listing[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
