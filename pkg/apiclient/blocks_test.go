package apiclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// SHA-1 of "hello world".
const testBlockID = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"

func TestUploadBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/blocks/"+testBlockID, r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), body)

		w.Header().Set("X-Block-ID", testBlockID)
		w.Header().Set("X-Storage-ID", testBlockID+"_8d460e39-7b9c-4c70-8f4f-7b55f4f6f8f1")
		w.Header().Set("X-Block-Reference-Count", "1")
		w.Header().Set("X-Ref-Modified", "1405962557")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	receipt, err := client.UploadBlock("demo", testBlockID, []byte("hello world"))
	require.NoError(t, err)

	assert.Equal(t, testBlockID, receipt.BlockID)
	assert.Equal(t, testBlockID+"_8d460e39-7b9c-4c70-8f4f-7b55f4f6f8f1", receipt.StorageID)
	assert.Equal(t, int64(1), receipt.RefCount)
	assert.Equal(t, int64(1405962557), receipt.RefModified)
}

func TestUploadBlockHashMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":       "Precondition Failure",
			"description": "Block ID does not match the content hash",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	_, err := client.UploadBlock("demo", testBlockID, []byte("tampered"))
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsPreconditionFailed())
}

func TestUploadBlocksBatch(t *testing.T) {
	batch := map[string][]byte{
		testBlockID: []byte("hello world"),
		"430ce34d020724ed75a196dfc2ad67c77772d169": []byte("hello world!"),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/blocks", r.URL.Path)
		assert.Equal(t, "application/msgpack", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var got map[string][]byte
		require.NoError(t, msgpack.Unmarshal(body, &got))
		assert.Equal(t, batch, got)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.UploadBlocks("demo", batch))
}

func TestGetBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/blocks/"+testBlockID, r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("hello world"))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	data, err := client.GetBlock("demo", testBlockID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
}

func TestHeadBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("X-Block-ID", testBlockID)
		w.Header().Set("X-Storage-ID", testBlockID+"_8d460e39-7b9c-4c70-8f4f-7b55f4f6f8f1")
		w.Header().Set("X-Block-Reference-Count", "3")
		w.Header().Set("X-Ref-Modified", "1405962557")
		w.Header().Set("X-Block-Size", "11")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	info, err := client.HeadBlock("demo", testBlockID)
	require.NoError(t, err)

	assert.Equal(t, testBlockID, info.BlockID)
	assert.Equal(t, int64(3), info.RefCount)
	assert.Equal(t, int64(11), info.Size)
}

func TestDeleteBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/blocks/"+testBlockID, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.DeleteBlock("demo", testBlockID))
}

func TestListBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults/demo/blocks", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		w.Header().Set("X-Next-Batch", "http://example.com/v1.0/vaults/demo/blocks?limit=3&marker="+testBlockID)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{
			"0000000000000000000000000000000000000001",
			"0000000000000000000000000000000000000002",
			"0000000000000000000000000000000000000003",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	ids, next, err := client.ListBlocks("demo", "", 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, testBlockID, next)
}
