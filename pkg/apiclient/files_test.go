package apiclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFileID = "f1e2d3c4-b5a6-4978-8695-a4b3c2d1e0f9"

func TestCreateFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/files", r.URL.Path)
		w.Header().Set("Location", "http://"+r.Host+"/v1.0/vaults/demo/files/"+testFileID)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	fileID, err := client.CreateFile("demo")
	require.NoError(t, err)
	assert.Equal(t, testFileID, fileID)
}

func TestCreateFileWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	_, err := client.CreateFile("demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Location")
}

func TestAssignBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0/vaults/demo/files/"+testFileID, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Blocks []Assignment `json:"blocks"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Blocks, 2)
		assert.Equal(t, int64(0), req.Blocks[0].Offset)
		assert.Equal(t, int64(11), req.Blocks[1].Offset)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{req.Blocks[1].ID})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	missing, err := client.AssignBlocks("demo", testFileID, []Assignment{
		{ID: testBlockID, Offset: 0},
		{ID: "430ce34d020724ed75a196dfc2ad67c77772d169", Offset: 11},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"430ce34d020724ed75a196dfc2ad67c77772d169"}, missing)
}

func TestFinalizeFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "1024", r.Header.Get("X-File-Length"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, body)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.FinalizeFile("demo", testFileID, 1024))
}

func TestFinalizeFileGap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title":       "Precondition Failure",
			"description": "Gap in file assignments at offset 11",
		})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	err := client.FinalizeFile("demo", testFileID, 1024)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsPreconditionFailed())
	assert.Contains(t, apiErr.Description, "Gap")
}

func TestGetFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults/demo/files/"+testFileID, r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("hello worldhello world!"))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	reader, err := client.GetFile("demo", testFileID)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello worldhello world!"), data)
}

func TestDeleteFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	require.NoError(t, client.DeleteFile("demo", testFileID))
}

func TestListFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults/demo/files", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]string{testFileID})
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	ids, next, err := client.ListFiles("demo", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{testFileID}, ids)
	assert.Empty(t, next)
}

func TestListFileBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/vaults/demo/files/"+testFileID+"/blocks", r.URL.Path)
		assert.Equal(t, "11", r.URL.Query().Get("marker"))

		w.Header().Set("X-Next-Batch", "http://example.com/v1.0/vaults/demo/files/"+testFileID+"/blocks?limit=2&marker=46")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[["` + testBlockID + `", 11], ["430ce34d020724ed75a196dfc2ad67c77772d169", 22]]`))
	}))
	defer server.Close()

	client := New(server.URL, "project-1")
	fbs, next, err := client.ListFileBlocks("demo", testFileID, 11, 2)
	require.NoError(t, err)

	require.Len(t, fbs, 2)
	assert.Equal(t, testBlockID, fbs[0].BlockID)
	assert.Equal(t, int64(11), fbs[0].Offset)
	assert.Equal(t, int64(22), fbs[1].Offset)
	assert.Equal(t, int64(46), next)
}

func TestFileBlockRejectsMalformedPair(t *testing.T) {
	var fb FileBlock
	err := json.Unmarshal([]byte(`["abc"]`), &fb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair")
}
