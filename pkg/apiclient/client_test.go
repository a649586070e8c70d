package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080", "project-1")
	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, "project-1", client.projectID)
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	client := New("http://localhost:8080/", "project-1")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
}

func TestWithToken(t *testing.T) {
	client := New("http://localhost:8080", "project-1")
	tokenClient := client.WithToken("test-token")

	// Original client should not have token
	assert.Empty(t, client.token)

	// New client should have token
	assert.Equal(t, "test-token", tokenClient.token)
	assert.Equal(t, "http://localhost:8080", tokenClient.baseURL)
	assert.Equal(t, "project-1", tokenClient.projectID)
}

func TestSetToken(t *testing.T) {
	client := New("http://localhost:8080", "project-1")
	client.SetToken("my-token")
	assert.Equal(t, "my-token", client.token)
}

func TestDoSetsProjectHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "project-1", r.Header.Get("X-Project-Id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.Ping())
}

func TestDoWithAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1").WithToken("test-token")
	require.NoError(t, client.Ping())
}

func TestDoWithAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":       "Not Found",
			"description": "Vault not found",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	_, err := client.GetVaultStats("missing")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not Found", apiErr.Title)
	assert.Equal(t, "Vault not found", apiErr.Description)
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, apiErr.IsConflict())
}

func TestDoWithNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unreachable"))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	err := client.Ping()
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream unreachable", apiErr.Description)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{
			"Metadata storage is active.",
			"Block storage is active.",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	lines, err := client.Health()
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "is active.")
}

func TestHome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"vaults": "http://example.com/v1.0/vaults",
			"vault":  "http://example.com/v1.0/vaults/{vault_id}",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	routes, err := client.Home()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/v1.0/vaults", routes["vaults"])
}
