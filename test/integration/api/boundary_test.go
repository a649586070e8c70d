//go:build integration

package api_test

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/painterjd/deuce/pkg/deuce"
)

// TestFinalizeEmptyFile finalizes a zero-length file with no assignments.
func TestFinalizeEmptyFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)
		require.NoError(t, c.FinalizeFile(testVault, fileID, 0))

		rc, err := c.GetFile(testVault, fileID)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Empty(t, body)

		manifest, next, err := c.ListFileBlocks(testVault, fileID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, manifest)
		assert.Zero(t, next)
	})
}

// TestFinalizeOneByteGap leaves a single uncovered byte and expects the
// rejection to name exactly that range.
func TestFinalizeOneByteGap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		b1, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'a'}, 100))
		b2, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'b'}, 100))

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)
		_, err = c.AssignBlocks(testVault, fileID, []apiclient.Assignment{
			{ID: b1, Offset: 0},
			{ID: b2, Offset: 101},
		})
		require.NoError(t, err)

		err = c.FinalizeFile(testVault, fileID, 201)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict())
		assert.Contains(t, apiErr.Description, "[100, 101)")
	})
}

// TestFinalizeTrailingOverlap declares a length shorter than the last
// block's extent.
func TestFinalizeTrailingOverlap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		id, _ := mustUpload(t, c, testVault, bytes.Repeat([]byte{'a'}, 100))

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)
		_, err = c.AssignBlocks(testVault, fileID, []apiclient.Assignment{{ID: id, Offset: 0}})
		require.NoError(t, err)

		err = c.FinalizeFile(testVault, fileID, 50)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict())
		assert.Contains(t, apiErr.Description, "overlaps")
		assert.Contains(t, apiErr.Description, "[50, 100)")
	})
}

// TestListLimitExactPopulation lists with limit equal to the population and
// expects no continuation marker.
func TestListLimitExactPopulation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		for i := 0; i < 5; i++ {
			mustUpload(t, c, testVault, []byte(fmt.Sprintf("block %d", i)))
		}

		ids, next, err := c.ListBlocks(testVault, "", 5)
		require.NoError(t, err)
		assert.Len(t, ids, 5)
		assert.Empty(t, next, "exact-population page must not paginate")
		assert.True(t, sort.StringsAreSorted(ids))

		// One short of the population paginates, and the continuation
		// returns exactly the remainder.
		page, next, err := c.ListBlocks(testVault, "", 4)
		require.NoError(t, err)
		assert.Len(t, page, 4)
		require.NotEmpty(t, next)

		rest, next, err := c.ListBlocks(testVault, next, 4)
		require.NoError(t, err)
		assert.Empty(t, next)
		assert.Equal(t, ids[4:], rest)
	})
}

// TestListNonexistentMarker lists from a marker that matches no block and
// expects the suffix strictly after it.
func TestListNonexistentMarker(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		for i := 0; i < 4; i++ {
			mustUpload(t, c, testVault, []byte(fmt.Sprintf("payload %d", i)))
		}

		ids, _, err := c.ListBlocks(testVault, "", 0)
		require.NoError(t, err)
		require.Len(t, ids, 4)

		// Sorts strictly between ids[1] and ids[2] and equals neither.
		marker := ids[1] + "0"

		got, next, err := c.ListBlocks(testVault, marker, 0)
		require.NoError(t, err)
		assert.Empty(t, next)
		assert.Equal(t, ids[2:], got)
	})
}

// TestVaultRecreate deletes and re-creates a vault and expects a state
// indistinguishable from the first create.
func TestVaultRecreate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		id, _ := mustUpload(t, c, testVault, []byte("transient"))
		require.NoError(t, c.DeleteBlock(testVault, id))
		require.NoError(t, c.DeleteVault(testVault))

		exists, err := c.VaultExists(testVault)
		require.NoError(t, err)
		require.False(t, exists)

		mustVault(t, c, testVault)

		exists, err = c.VaultExists(testVault)
		require.NoError(t, err)
		assert.True(t, exists)

		stats, err := c.GetVaultStats(testVault)
		require.NoError(t, err)
		assert.Zero(t, stats.Metadata.Files.Count)
		assert.Zero(t, stats.Metadata.Blocks.Count)
		assert.Zero(t, stats.Storage.BlockCount)

		ids, _, err := c.ListBlocks(testVault, "", 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

// TestRepeatedUploadsSingleBinding uploads identical bytes three times and
// expects one live object, the rest orphans, all hashing to the block ID.
func TestRepeatedUploadsSingleBinding(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		data := []byte("the same bytes every time")
		blockID := deuce.BlockID(data)
		for i := 0; i < 3; i++ {
			mustUpload(t, c, testVault, data)
		}

		storageIDs, next, err := c.ListStorageBlocks(testVault, "", 0)
		require.NoError(t, err)
		assert.Empty(t, next)
		require.Len(t, storageIDs, 3)

		live := 0
		for _, sid := range storageIDs {
			info, err := c.HeadStorageBlock(testVault, sid)
			require.NoError(t, err)
			if !info.Orphaned {
				live++
				assert.Equal(t, blockID, info.BlockID)
			}

			// Orphaned or not, the stored bytes hash to the block ID.
			raw, err := c.GetStorageBlock(testVault, sid)
			require.NoError(t, err)
			assert.Equal(t, blockID, deuce.BlockID(raw))
		}
		assert.Equal(t, 1, live, "exactly one object carries the binding")
	})
}

// TestBatchUploadAndRepair uploads a batch, assigns a block that was never
// uploaded, and repairs the file after the finalize rejection.
func TestBatchUploadAndRepair(t *testing.T) {
	forEachBackend(t, func(t *testing.T, c *apiclient.Client) {
		mustVault(t, c, testVault)

		parts := [][]byte{
			bytes.Repeat([]byte{'x'}, 10),
			bytes.Repeat([]byte{'y'}, 10),
		}
		batch := make(map[string][]byte, len(parts))
		var ids []string
		for _, data := range parts {
			id := deuce.BlockID(data)
			batch[id] = data
			ids = append(ids, id)
		}
		require.NoError(t, c.UploadBlocks(testVault, batch))

		for i, id := range ids {
			got, err := c.GetBlock(testVault, id)
			require.NoError(t, err)
			assert.Equal(t, parts[i], got)
		}

		// Assignments may precede uploads; the reply names the absentees.
		tail := bytes.Repeat([]byte{'z'}, 10)
		tailID := deuce.BlockID(tail)

		fileID, err := c.CreateFile(testVault)
		require.NoError(t, err)
		missing, err := c.AssignBlocks(testVault, fileID, []apiclient.Assignment{
			{ID: ids[0], Offset: 0},
			{ID: ids[1], Offset: 10},
			{ID: tailID, Offset: 20},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{tailID}, missing)

		// The unregistered block leaves a hole until it is uploaded.
		err = c.FinalizeFile(testVault, fileID, 30)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsConflict())

		mustUpload(t, c, testVault, tail)
		require.NoError(t, c.FinalizeFile(testVault, fileID, 30))

		rc, err := c.GetFile(testVault, fileID)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, append(bytes.Join(parts, nil), tail...), body)
	})
}
