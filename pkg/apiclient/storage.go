package apiclient

import (
	"fmt"
	"io"
	"net/http"
)

// StorageBlockInfo describes one storage object. Orphaned objects have no
// block binding, so BlockID and RefModified stay zero for them.
type StorageBlockInfo struct {
	StorageID   string
	BlockID     string
	Size        int64
	RefCount    int64
	RefModified int64
	Orphaned    bool
}

// ListStorageBlocks fetches one page of the vault's storage IDs, orphans
// included.
func (c *Client) ListStorageBlocks(vaultID, marker string, limit int) ([]string, string, error) {
	return c.listIDs(vaultPath(vaultID)+"/storage/blocks", marker, limit)
}

// HeadStorageBlock fetches a storage object's metadata.
func (c *Client) HeadStorageBlock(vaultID, storageID string) (*StorageBlockInfo, error) {
	resp, err := c.do(http.MethodHead, storageBlockPath(vaultID, storageID), "", nil)
	if err != nil {
		return nil, err
	}
	discard(resp)

	info := &StorageBlockInfo{
		StorageID: resp.Header.Get(headerStorageID),
		Size:      intHeader(resp.Header, headerBlockSize),
		RefCount:  intHeader(resp.Header, headerRefCount),
		Orphaned:  resp.Header.Get(headerBlockOrphaned) == "True",
	}
	if !info.Orphaned {
		info.BlockID = resp.Header.Get(headerBlockID)
		info.RefModified = intHeader(resp.Header, headerRefModified)
	}
	return info, nil
}

// GetStorageBlock downloads a storage object's content, reachable here even
// when the object is an orphan.
func (c *Client) GetStorageBlock(vaultID, storageID string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, storageBlockPath(vaultID, storageID), "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage block: %w", err)
	}
	return data, nil
}

// DeleteStorageBlock reclaims an orphaned storage object. Objects still
// bound to a block are refused with a conflict.
func (c *Client) DeleteStorageBlock(vaultID, storageID string) error {
	resp, err := c.do(http.MethodDelete, storageBlockPath(vaultID, storageID), "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

func storageBlockPath(vaultID, storageID string) string {
	return fmt.Sprintf("/v1.0/vaults/%s/storage/blocks/%s", vaultID, storageID)
}
