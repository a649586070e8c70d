package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/metadata/badger"
	metamem "github.com/painterjd/deuce/pkg/store/metadata/memory"
	"github.com/painterjd/deuce/pkg/store/metadata/postgres"
	"github.com/painterjd/deuce/pkg/store/metadata/sqlite"
	"github.com/painterjd/deuce/pkg/store/storage"
	storagefs "github.com/painterjd/deuce/pkg/store/storage/fs"
	storagemem "github.com/painterjd/deuce/pkg/store/storage/memory"
	storages3 "github.com/painterjd/deuce/pkg/store/storage/s3"
)

// CreateMetadataStore creates a metadata store instance from configuration.
//
// The driver-specific settings block matching cfg.Type is decoded into the
// driver's own Config struct; other blocks are ignored.
func CreateMetadataStore(ctx context.Context, cfg MetadataStoreConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return metamem.New(), nil
	case "badger":
		return createBadgerMetadataStore(cfg)
	case "sqlite":
		return createSQLiteMetadataStore(cfg)
	case "postgres":
		return createPostgresMetadataStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, sqlite, postgres)", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB metadata store.
func createBadgerMetadataStore(cfg MetadataStoreConfig) (metadata.Store, error) {
	var badgerCfg badger.Config
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	// BadgerDB requires a path; place it under the data dir when unset
	if badgerCfg.Path == "" && !badgerCfg.InMemory {
		badgerCfg.Path = filepath.Join(DefaultDataDir(), "metadata")
	}

	store, err := badger.New(badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger metadata store: %w", err)
	}

	return store, nil
}

// createSQLiteMetadataStore creates a SQLite metadata store.
func createSQLiteMetadataStore(cfg MetadataStoreConfig) (metadata.Store, error) {
	var sqliteCfg sqlite.Config
	if err := mapstructure.Decode(cfg.SQLite, &sqliteCfg); err != nil {
		return nil, fmt.Errorf("invalid sqlite config: %w", err)
	}

	store, err := sqlite.New(sqliteCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite metadata store: %w", err)
	}

	return store, nil
}

// createPostgresMetadataStore creates a PostgreSQL metadata store.
func createPostgresMetadataStore(ctx context.Context, cfg MetadataStoreConfig) (metadata.Store, error) {
	var pgCfg postgres.Config
	if err := mapstructure.Decode(cfg.Postgres, &pgCfg); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	pgCfg.ApplyDefaults()

	store, err := postgres.New(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres metadata store: %w", err)
	}

	return store, nil
}

// CreateStorageStore creates a block storage instance from configuration.
func CreateStorageStore(ctx context.Context, cfg StorageStoreConfig) (storage.Store, error) {
	switch cfg.Type {
	case "memory":
		return storagemem.New(), nil
	case "fs":
		return createFSStorageStore(cfg)
	case "s3":
		return createS3StorageStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage store type: %q (supported: memory, fs, s3)", cfg.Type)
	}
}

// createFSStorageStore creates a filesystem-backed block store.
func createFSStorageStore(cfg StorageStoreConfig) (storage.Store, error) {
	var fsCfg storagefs.Config
	if err := mapstructure.Decode(cfg.FS, &fsCfg); err != nil {
		return nil, fmt.Errorf("invalid fs config: %w", err)
	}

	store, err := storagefs.New(fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open fs storage store: %w", err)
	}

	return store, nil
}

// createS3StorageStore creates an S3-backed block store.
func createS3StorageStore(ctx context.Context, cfg StorageStoreConfig) (storage.Store, error) {
	var s3Cfg storages3.Config
	if err := mapstructure.Decode(cfg.S3, &s3Cfg); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	if s3Cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires bucket to be set")
	}

	store, err := storages3.NewFromConfig(ctx, s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 storage store: %w", err)
	}

	return store, nil
}
