package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateMetadataStore_Memory(t *testing.T) {
	store, err := CreateMetadataStore(t.Context(), MetadataStoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateMetadataStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if lines := store.Health(t.Context()); len(lines) == 0 {
		t.Error("Expected health lines from memory store")
	}
}

func TestCreateMetadataStore_Badger(t *testing.T) {
	cfg := MetadataStoreConfig{
		Type:   "badger",
		Badger: map[string]any{"path": filepath.Join(t.TempDir(), "meta")},
	}

	store, err := CreateMetadataStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("CreateMetadataStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateMetadataStore_BadgerInMemory(t *testing.T) {
	cfg := MetadataStoreConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	}

	store, err := CreateMetadataStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("CreateMetadataStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateMetadataStore_SQLite(t *testing.T) {
	cfg := MetadataStoreConfig{
		Type:   "sqlite",
		SQLite: map[string]any{"path": filepath.Join(t.TempDir(), "metadata.db")},
	}

	store, err := CreateMetadataStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("CreateMetadataStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateMetadataStore_UnknownType(t *testing.T) {
	_, err := CreateMetadataStore(t.Context(), MetadataStoreConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("Expected error for unknown metadata store type")
	}
	if !strings.Contains(err.Error(), "supported") {
		t.Errorf("Expected error to list supported types, got: %v", err)
	}
}

func TestCreateMetadataStore_BadDriverBlock(t *testing.T) {
	cfg := MetadataStoreConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": "not-a-bool"},
	}

	if _, err := CreateMetadataStore(t.Context(), cfg); err == nil {
		t.Fatal("Expected error for malformed driver settings")
	}
}

func TestCreateStorageStore_Memory(t *testing.T) {
	store, err := CreateStorageStore(t.Context(), StorageStoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateStorageStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()
}

func TestCreateStorageStore_FS(t *testing.T) {
	cfg := StorageStoreConfig{
		Type: "fs",
		FS:   map[string]any{"path": filepath.Join(t.TempDir(), "blocks")},
	}

	store, err := CreateStorageStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("CreateStorageStore() failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if lines := store.Health(t.Context()); len(lines) == 0 {
		t.Error("Expected health lines from fs store")
	}
}

func TestCreateStorageStore_S3RequiresBucket(t *testing.T) {
	cfg := StorageStoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	if _, err := CreateStorageStore(t.Context(), cfg); err == nil {
		t.Fatal("Expected error for s3 storage without bucket")
	}
}

func TestCreateStorageStore_UnknownType(t *testing.T) {
	_, err := CreateStorageStore(t.Context(), StorageStoreConfig{Type: "tape"})
	if err == nil {
		t.Fatal("Expected error for unknown storage store type")
	}
	if !strings.Contains(err.Error(), "supported") {
		t.Errorf("Expected error to list supported types, got: %v", err)
	}
}
