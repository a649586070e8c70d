package fs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/storage"
	"github.com/painterjd/deuce/pkg/store/storage/fs"
	"github.com/painterjd/deuce/pkg/store/storage/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) storage.Store {
		store, err := fs.New(fs.Config{Path: t.TempDir()})
		if err != nil {
			t.Fatalf("fs.New() failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

// Blocks land as plain files under {base}/{project}/{vault} with no leftover
// temporary files after a successful write.
func TestLayoutOnDisk(t *testing.T) {
	base := t.TempDir()
	store, err := fs.New(fs.Config{Path: base})
	if err != nil {
		t.Fatalf("fs.New() failed: %v", err)
	}
	defer store.Close()

	vault := deuce.NewVault("p1", "vault_A")
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	data := []byte("on disk")
	storageID, err := store.StoreBlock(t.Context(), vault, deuce.BlockID(data), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("StoreBlock() failed: %v", err)
	}

	path := filepath.Join(base, "p1", "vault_A", storageID)
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s failed: %v", path, err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("file contents = %q, want %q", got, data)
	}

	entries, err := os.ReadDir(filepath.Join(base, "p1", "vault_A"))
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("leftover temporary file %s", entry.Name())
		}
	}
}

// Deleting a vault prunes the project directory when it was the project's
// last vault.
func TestDeleteVaultPrunesProjectDir(t *testing.T) {
	base := t.TempDir()
	store, err := fs.New(fs.Config{Path: base})
	if err != nil {
		t.Fatalf("fs.New() failed: %v", err)
	}
	defer store.Close()

	vault := deuce.NewVault("p1", "vault_A")
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}
	if err := store.DeleteVault(t.Context(), vault); err != nil {
		t.Fatalf("DeleteVault() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "p1")); !os.IsNotExist(err) {
		t.Fatalf("project directory still present after last vault delete (err=%v)", err)
	}
}
