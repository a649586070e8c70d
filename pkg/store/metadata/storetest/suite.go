package storetest

import (
	"fmt"
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
)

// StoreFactory creates a fresh metadata.Store instance for each test. The
// factory receives *testing.T so it can use t.TempDir() for drivers that need
// filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) metadata.Store

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory. Each test gets a fresh store instance to ensure
// isolation.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("VaultOps", func(t *testing.T) {
		runVaultOpsTests(t, factory)
	})

	t.Run("BlockOps", func(t *testing.T) {
		runBlockOpsTests(t, factory)
	})

	t.Run("FileOps", func(t *testing.T) {
		runFileOpsTests(t, factory)
	})
}

// testVault creates the canonical test vault and returns its address.
func testVault(t *testing.T, store metadata.Store) deuce.Vault {
	t.Helper()

	vault := deuce.NewVault("p1", "vault_A")
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}
	return vault
}

// registerBlock registers a block holding data and returns its IDs.
func registerBlock(t *testing.T, store metadata.Store, vault deuce.Vault, data []byte) (string, string) {
	t.Helper()

	blockID := deuce.BlockID(data)
	storageID := deuce.NewStorageID(blockID)
	if err := store.RegisterBlock(t.Context(), vault, blockID, storageID, int64(len(data))); err != nil {
		t.Fatalf("RegisterBlock(%s) failed: %v", blockID, err)
	}
	return blockID, storageID
}

// createFile creates an unfinalized file and returns its ID.
func createFile(t *testing.T, store metadata.Store, vault deuce.Vault) string {
	t.Helper()

	fileID := deuce.NewFileID()
	if err := store.CreateFile(t.Context(), vault, fileID); err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	return fileID
}

// blockOfSize returns n distinct bytes, so distinct calls with distinct fill
// bytes produce distinct block IDs.
func blockOfSize(n int, fill byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = fill
	}
	return data
}

// refCount fetches a block's reference count, failing the test on error.
func refCount(t *testing.T, store metadata.Store, vault deuce.Vault, blockID string) int64 {
	t.Helper()

	block, err := store.GetBlock(t.Context(), vault, blockID)
	if err != nil {
		t.Fatalf("GetBlock(%s) failed: %v", blockID, err)
	}
	return block.RefCount
}

// uniqueBlocks registers count distinct blocks of the given size and returns
// their block IDs in registration order.
func uniqueBlocks(t *testing.T, store metadata.Store, vault deuce.Vault, count, size int) []string {
	t.Helper()

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		data := blockOfSize(size, 0)
		copy(data, fmt.Sprintf("block-%04d", i))
		id, _ := registerBlock(t, store, vault, data)
		ids = append(ids, id)
	}
	return ids
}
