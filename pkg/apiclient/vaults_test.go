package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.CreateVault("demo"))
}

func TestVaultExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/v1.0/vaults/demo" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")

	exists, err := client.VaultExists("demo")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.VaultExists("missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetVaultStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults/demo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"metadata": {
				"files": {"count": 2},
				"blocks": {"count": 5},
				"internal": {}
			},
			"storage": {
				"block-count": 6,
				"total-size": 4096,
				"internal": {"orphans": "1"}
			}
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	stats, err := client.GetVaultStats("demo")
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Metadata.Files.Count)
	assert.Equal(t, int64(5), stats.Metadata.Blocks.Count)
	assert.Equal(t, int64(6), stats.Storage.BlockCount)
	assert.Equal(t, int64(4096), stats.Storage.TotalSize)
	assert.Equal(t, "1", stats.Storage.Internal["orphans"])
}

func TestDeleteVault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.DeleteVault("demo"))
}

func TestDeleteVaultConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":       "Conflict",
			"description": "Vault is not empty",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	err := client.DeleteVault("demo")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsConflict())
}

func TestListVaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults", r.URL.Path)
		assert.Equal(t, "alpha", r.URL.Query().Get("marker"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("X-Next-Batch", "http://example.com/v1.0/vaults?limit=2&marker=gamma")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]VaultRef{
			"alpha": {URL: "http://example.com/v1.0/vaults/alpha"},
			"beta":  {URL: "http://example.com/v1.0/vaults/beta"},
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	vaults, next, err := client.ListVaults("alpha", 2)
	require.NoError(t, err)

	assert.Len(t, vaults, 2)
	assert.Equal(t, "http://example.com/v1.0/vaults/beta", vaults["beta"].URL)
	assert.Equal(t, "gamma", next)
}

func TestListVaultsLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No marker or limit when the caller asks for server defaults.
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	vaults, next, err := client.ListVaults("", 0)
	require.NoError(t, err)
	assert.Empty(t, vaults)
	assert.Empty(t, next)
}
