//go:build integration

// Package api_test drives the full HTTP stack end to end: real router, real
// services, real store drivers, accessed only through the API client. Every
// test runs against each embedded store combination.
package api_test

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/painterjd/deuce/pkg/api"
	"github.com/painterjd/deuce/pkg/api/auth"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/painterjd/deuce/pkg/blocks"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/painterjd/deuce/pkg/files"
	"github.com/painterjd/deuce/pkg/store/metadata"
	"github.com/painterjd/deuce/pkg/store/metadata/badger"
	metamem "github.com/painterjd/deuce/pkg/store/metadata/memory"
	"github.com/painterjd/deuce/pkg/store/metadata/sqlite"
	"github.com/painterjd/deuce/pkg/store/storage"
	"github.com/painterjd/deuce/pkg/store/storage/fs"
	storemem "github.com/painterjd/deuce/pkg/store/storage/memory"
	"github.com/painterjd/deuce/pkg/vaults"
)

const (
	testProject = "p1"
	testVault   = "vault_A"
)

// backend is one metadata+storage store combination under test.
type backend struct {
	name  string
	build func(t *testing.T) (metadata.Store, storage.Store)
}

// backends returns the store combinations that run without external
// services. Postgres and S3 have their own suites under the drivers.
func backends() []backend {
	return []backend{
		{
			name: "memory",
			build: func(t *testing.T) (metadata.Store, storage.Store) {
				return metamem.New(), storemem.New()
			},
		},
		{
			name: "sqlite-fs",
			build: func(t *testing.T) (metadata.Store, storage.Store) {
				meta, err := sqlite.New(sqlite.Config{Path: filepath.Join(t.TempDir(), "metadata.db")})
				require.NoError(t, err)
				store, err := fs.New(fs.Config{Path: t.TempDir()})
				require.NoError(t, err)
				return meta, store
			},
		},
		{
			name: "badger-fs",
			build: func(t *testing.T) (metadata.Store, storage.Store) {
				meta, err := badger.New(badger.Config{InMemory: true})
				require.NoError(t, err)
				store, err := fs.New(fs.Config{Path: t.TempDir()})
				require.NoError(t, err)
				return meta, store
			},
		},
	}
}

// startServer runs the API over the given stores and returns a client
// scoped to project. The server and stores are torn down with the test.
func startServer(t *testing.T, b backend, cfg api.APIConfig, project string) *apiclient.Client {
	t.Helper()

	meta, store := b.build(t)
	t.Cleanup(func() {
		_ = meta.Close()
		_ = store.Close()
	})

	services := api.Services{
		Vaults:  vaults.New(meta, store),
		Blocks:  blocks.New(meta, store),
		Storage: blocks.NewStorageService(meta, store),
		Files:   files.New(meta, store),
	}

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		v, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
		require.NoError(t, err)
		verifier = v
	}

	srv := httptest.NewServer(api.NewRouter(cfg, services, verifier))
	t.Cleanup(srv.Close)

	return apiclient.New(srv.URL, project)
}

// forEachBackend runs fn once per store combination, each against its own
// server with a fresh client for testProject.
func forEachBackend(t *testing.T, fn func(t *testing.T, c *apiclient.Client)) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			fn(t, startServer(t, b, api.APIConfig{}, testProject))
		})
	}
}

// mustVault creates a vault, failing the test on error.
func mustVault(t *testing.T, c *apiclient.Client, vaultID string) {
	t.Helper()
	require.NoError(t, c.CreateVault(vaultID))
}

// mustUpload uploads data as a block and returns its ID and receipt.
func mustUpload(t *testing.T, c *apiclient.Client, vaultID string, data []byte) (string, *apiclient.BlockReceipt) {
	t.Helper()
	id := deuce.BlockID(data)
	receipt, err := c.UploadBlock(vaultID, id, data)
	require.NoError(t, err)
	return id, receipt
}
