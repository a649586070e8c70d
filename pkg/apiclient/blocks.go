package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// BlockReceipt describes the vault's binding for a block after an upload.
// On a re-upload StorageID still names the object written by this request,
// which the server immediately orphans in favor of the original.
type BlockReceipt struct {
	BlockID     string
	StorageID   string
	RefCount    int64
	RefModified int64
}

// BlockInfo is the metadata of a registered block.
type BlockInfo struct {
	BlockReceipt
	Size int64
}

// UploadBlock uploads one block. blockID must be the lowercase SHA-1 hex of
// data; a mismatch is refused with a precondition failure.
func (c *Client) UploadBlock(vaultID, blockID string, data []byte) (*BlockReceipt, error) {
	resp, err := c.do(http.MethodPut, blockPath(vaultID, blockID), "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	discard(resp)
	return receiptFromHeaders(resp.Header), nil
}

// UploadBlocks uploads a batch of blocks keyed by block ID in one request.
// The batch is atomic: one bad hash fails the whole request and nothing is
// written.
func (c *Client) UploadBlocks(vaultID string, batch map[string][]byte) error {
	payload, err := msgpack.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	resp, err := c.do(http.MethodPost, vaultPath(vaultID)+"/blocks", "application/msgpack", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// GetBlock downloads a block's content.
func (c *Client) GetBlock(vaultID, blockID string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, blockPath(vaultID, blockID), "", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read block: %w", err)
	}
	return data, nil
}

// HeadBlock fetches a block's metadata without its content.
func (c *Client) HeadBlock(vaultID, blockID string) (*BlockInfo, error) {
	resp, err := c.do(http.MethodHead, blockPath(vaultID, blockID), "", nil)
	if err != nil {
		return nil, err
	}
	discard(resp)

	return &BlockInfo{
		BlockReceipt: *receiptFromHeaders(resp.Header),
		Size:         intHeader(resp.Header, headerBlockSize),
	}, nil
}

// DeleteBlock deletes a block. Blocks still referenced by a file are
// refused with a conflict.
func (c *Client) DeleteBlock(vaultID, blockID string) error {
	resp, err := c.do(http.MethodDelete, blockPath(vaultID, blockID), "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// ListBlocks fetches one page of the vault's block IDs.
func (c *Client) ListBlocks(vaultID, marker string, limit int) ([]string, string, error) {
	return c.listIDs(vaultPath(vaultID)+"/blocks", marker, limit)
}

func receiptFromHeaders(h http.Header) *BlockReceipt {
	return &BlockReceipt{
		BlockID:     h.Get(headerBlockID),
		StorageID:   h.Get(headerStorageID),
		RefCount:    intHeader(h, headerRefCount),
		RefModified: intHeader(h, headerRefModified),
	}
}

func blockPath(vaultID, blockID string) string {
	return fmt.Sprintf("/v1.0/vaults/%s/blocks/%s", vaultID, blockID)
}
