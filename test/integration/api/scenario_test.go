//go:build integration

package api_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/painterjd/deuce/pkg/deuce"
)

// TestHappyPath uploads one block and reads it back byte for byte.
func TestHappyPath(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		data := []byte("hello")
		id, receipt := mustUpload(t, c, testVault, data)

		assert.Equal(t, id, receipt.BlockID)
		assert.Zero(t, receipt.RefCount, "fresh block should have no references")

		got, err := c.GetBlock(testVault, id)
		require.NoError(t, err)
		assert.Equal(t, data, got)

		info, err := c.HeadBlock(testVault, id)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), info.Size)
		assert.Zero(t, info.RefCount)
	})
}

// TestDedupSecondUploadOrphaned re-uploads identical bytes and verifies the
// original binding survives while the second object becomes an orphan.
func TestDedupSecondUploadOrphaned(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		data := []byte("hello")
		_, first := mustUpload(t, c, testVault, data)
		_, second := mustUpload(t, c, testVault, data)

		assert.Equal(t, first.BlockID, second.BlockID)
		require.NotEqual(t, first.StorageID, second.StorageID,
			"each upload writes its own storage object")

		live, err := c.HeadStorageBlock(testVault, first.StorageID)
		require.NoError(t, err)
		assert.False(t, live.Orphaned)
		assert.Equal(t, first.BlockID, live.BlockID)

		orphan, err := c.HeadStorageBlock(testVault, second.StorageID)
		require.NoError(t, err)
		assert.True(t, orphan.Orphaned)
		assert.Zero(t, orphan.RefCount)
		assert.Empty(t, orphan.BlockID, "orphans carry no binding")
	})
}

// TestAssembleFile builds a 300-byte file from three blocks assigned out of
// order and reads back the concatenation.
func TestAssembleFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		parts := [][]byte{
			bytes.Repeat([]byte{'a'}, 100),
			bytes.Repeat([]byte{'b'}, 100),
			bytes.Repeat([]byte{'c'}, 100),
		}
		var ids []string
		for _, data := range parts {
			id, _ := mustUpload(t, c, testVault, data)
			ids = append(ids, id)
		}

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)

		// Assignment order must not matter; only offsets do.
		missing, err := c.AssignBlocks(testVault, fileID, []apiclient.Assignment{
			{ID: ids[2], Offset: 200},
			{ID: ids[0], Offset: 0},
			{ID: ids[1], Offset: 100},
		})
		require.NoError(t, err)
		assert.Empty(t, missing, "all blocks were uploaded first")

		require.NoError(t, c.FinalizeFile(testVault, fileID, 300))

		rc, err := c.GetFile(testVault, fileID)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		want := bytes.Join(parts, nil)
		assert.Equal(t, want, body)

		manifest, next, err := c.ListFileBlocks(testVault, fileID, 0, 0)
		require.NoError(t, err)
		assert.Zero(t, next)
		require.Len(t, manifest, 3)
		for i, fb := range manifest {
			assert.Equal(t, ids[i], fb.BlockID)
			assert.Equal(t, int64(i*100), fb.Offset)
		}
	})
}

// TestFinalizeGapReported leaves bytes [100, 200) uncovered and expects the
// finalize rejection to name that range.
func TestFinalizeGapReported(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		b1, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'a'}, 100))
		b3, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'c'}, 100))

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)

		_, err = c.AssignBlocks(testVault, fileID, []apiclient.Assignment{
			{ID: b1, Offset: 0},
			{ID: b3, Offset: 200},
		})
		require.NoError(t, err)

		err = c.FinalizeFile(testVault, fileID, 300)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict())
		assert.Contains(t, apiErr.Description, "[100, 200)")

		// The file stays unfinalized and can be repaired.
		b2, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'b'}, 100))
		_, err = c.AssignBlocks(testVault, fileID, []apiclient.Assignment{{ID: b2, Offset: 100}})
		require.NoError(t, err)
		require.NoError(t, c.FinalizeFile(testVault, fileID, 300))
	})
}

// TestDeleteReferencedBlockRefused deletes a block that a finalized file
// still references.
func TestDeleteReferencedBlockRefused(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		id, _ := mustUpload(t, c, testVault, []byte("referenced bytes"))

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)
		_, err = c.AssignBlocks(testVault, fileID, []apiclient.Assignment{{ID: id, Offset: 0}})
		require.NoError(t, err)

		err = c.DeleteBlock(testVault, id)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict())

		info, err := c.HeadBlock(testVault, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), info.RefCount)

		// Dropping the file releases the reference and unblocks the delete.
		require.NoError(t, c.DeleteFile(testVault, fileID))
		require.NoError(t, c.DeleteBlock(testVault, id))
	})
}

// TestOrphanReclaim deletes the orphaned duplicate of a block but is refused
// the live copy.
func TestOrphanReclaim(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		data := []byte("hello")
		_, first := mustUpload(t, c, testVault, data)
		_, second := mustUpload(t, c, testVault, data)

		require.NoError(t, c.DeleteStorageBlock(testVault, second.StorageID))

		var apiErr *apiclient.APIError
		_, err := c.HeadStorageBlock(testVault, second.StorageID)
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsNotFound())

		err = c.DeleteStorageBlock(testVault, first.StorageID)
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict(), "live copy must survive reclamation")

		got, err := c.GetBlock(testVault, deuce.BlockID(data))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})
}
