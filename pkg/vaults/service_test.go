package vaults_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/store/metadata"
	metamem "github.com/painterjd/deuce/pkg/store/metadata/memory"
	"github.com/painterjd/deuce/pkg/store/storage"
	storemem "github.com/painterjd/deuce/pkg/store/storage/memory"
	"github.com/painterjd/deuce/pkg/vaults"
)

func newService(t *testing.T) (*vaults.Service, metadata.Store, storage.Store) {
	t.Helper()
	meta := metamem.New()
	store := storemem.New()
	t.Cleanup(func() {
		meta.Close()
		store.Close()
	})
	return vaults.New(meta, store), meta, store
}

func TestCreateIsIdempotent(t *testing.T) {
	svc, meta, store := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	if err := svc.Create(t.Context(), vault); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := svc.Create(t.Context(), vault); err != nil {
		t.Fatalf("Create() second call failed: %v", err)
	}

	for name, check := range map[string]func() (bool, error){
		"storage":  func() (bool, error) { return store.VaultExists(t.Context(), vault) },
		"metadata": func() (bool, error) { return meta.VaultExists(t.Context(), vault) },
	} {
		exists, err := check()
		if err != nil {
			t.Fatalf("%s VaultExists() failed: %v", name, err)
		}
		if !exists {
			t.Fatalf("vault missing on %s backend after Create()", name)
		}
	}
}

func TestExistsConsultsStorageBackend(t *testing.T) {
	svc, meta, _ := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	// A vault known only to metadata must not report as existing.
	if err := meta.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	exists, err := svc.Exists(t.Context(), vault)
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if exists {
		t.Fatal("Exists() = true for a vault the storage backend does not know")
	}
}

func TestStatsMergesBothBackends(t *testing.T) {
	svc, meta, store := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	if err := svc.Create(t.Context(), vault); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	data := []byte("one hundred bytes of nothing in particular...")
	blockID := deuce.BlockID(data)
	storageID, err := store.StoreBlock(t.Context(), vault, blockID, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("StoreBlock() failed: %v", err)
	}
	if err := meta.RegisterBlock(t.Context(), vault, blockID, storageID, int64(len(data))); err != nil {
		t.Fatalf("RegisterBlock() failed: %v", err)
	}
	if err := meta.CreateFile(t.Context(), vault, deuce.NewFileID()); err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}

	stats, err := svc.Stats(t.Context(), vault)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Metadata.BlockCount != 1 || stats.Metadata.FileCount != 1 {
		t.Fatalf("metadata stats = %d blocks, %d files, want 1 and 1",
			stats.Metadata.BlockCount, stats.Metadata.FileCount)
	}
	if stats.Storage.BlockCount != 1 || stats.Storage.TotalSize != int64(len(data)) {
		t.Fatalf("storage stats = %d blocks, %d bytes, want 1 and %d",
			stats.Storage.BlockCount, stats.Storage.TotalSize, len(data))
	}
}

func TestStatsMissingVault(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Stats(t.Context(), deuce.NewVault("p1", "nope"))
	if !metadata.IsNotFound(err) {
		t.Fatalf("Stats() on missing vault = %v, want NotFound", err)
	}
}

func TestStatsToleratesMissingMetadataVault(t *testing.T) {
	svc, _, store := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	// Simulates a create interrupted after the storage write.
	if err := store.CreateVault(t.Context(), vault); err != nil {
		t.Fatalf("CreateVault() failed: %v", err)
	}

	stats, err := svc.Stats(t.Context(), vault)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Metadata.BlockCount != 0 || stats.Metadata.FileCount != 0 {
		t.Fatalf("metadata stats = %+v, want zero counts", stats.Metadata)
	}
}

func TestDeleteRequiresEmptyStorage(t *testing.T) {
	svc, meta, store := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	if err := svc.Create(t.Context(), vault); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	data := []byte("payload")
	if _, err := store.StoreBlock(t.Context(), vault, deuce.BlockID(data), bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("StoreBlock() failed: %v", err)
	}

	if err := svc.Delete(t.Context(), vault); !errors.Is(err, storage.ErrVaultNotEmpty) {
		t.Fatalf("Delete() on non-empty vault = %v, want ErrVaultNotEmpty", err)
	}

	// The metadata side must be untouched after the refused delete.
	exists, err := meta.VaultExists(t.Context(), vault)
	if err != nil {
		t.Fatalf("VaultExists() failed: %v", err)
	}
	if !exists {
		t.Fatal("metadata vault removed by a refused delete")
	}
}

func TestDeleteRemovesBothBackends(t *testing.T) {
	svc, meta, store := newService(t)
	vault := deuce.NewVault("p1", "vault_A")

	if err := svc.Create(t.Context(), vault); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := svc.Delete(t.Context(), vault); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if exists, _ := store.VaultExists(t.Context(), vault); exists {
		t.Fatal("storage vault survived Delete()")
	}
	if exists, _ := meta.VaultExists(t.Context(), vault); exists {
		t.Fatal("metadata vault survived Delete()")
	}

	if err := svc.Delete(t.Context(), vault); !errors.Is(err, storage.ErrVaultNotFound) {
		t.Fatalf("Delete() on missing vault = %v, want ErrVaultNotFound", err)
	}
}

func TestListVaults(t *testing.T) {
	svc, _, _ := newService(t)

	for _, id := range []string{"alpha", "beta", "gamma"} {
		if err := svc.Create(t.Context(), deuce.NewVault("p1", id)); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
	}
	if err := svc.Create(t.Context(), deuce.NewVault("p2", "other")); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := svc.List(t.Context(), "p1", "", 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}

	got, err = svc.List(t.Context(), "p1", "beta", 1)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(got) != 1 || got[0] != "beta" {
		t.Fatalf("List(marker=beta, limit=1) = %v, want [beta]", got)
	}
}

func TestHealthReportsBothBackends(t *testing.T) {
	svc, _, _ := newService(t)

	lines := svc.Health(t.Context())
	if len(lines) != 2 {
		t.Fatalf("Health() returned %d lines, want 2: %v", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "is active") {
			t.Fatalf("Health() line %q does not report an active backend", line)
		}
	}
}
