package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
)

// Assignment places a block at a byte offset in a file.
type Assignment struct {
	ID     string `json:"id"`
	Offset int64  `json:"offset"`
}

// FileBlock is one manifest entry, serialized on the wire as a
// [block_id, offset] pair.
type FileBlock struct {
	BlockID string
	Offset  int64
}

func (b *FileBlock) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New("file block must be a [block_id, offset] pair")
	}
	if err := json.Unmarshal(raw[0], &b.BlockID); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &b.Offset)
}

// CreateFile creates an empty file manifest and returns the server-minted
// file ID.
func (c *Client) CreateFile(vaultID string) (string, error) {
	resp, err := c.do(http.MethodPost, vaultPath(vaultID)+"/files", "", nil)
	if err != nil {
		return "", err
	}
	discard(resp)

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("response carries no Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid Location header: %w", err)
	}
	return path.Base(u.Path), nil
}

// AssignBlocks adds blocks to an open file's manifest. The answer lists the
// assigned IDs that have no registered block in the vault yet; those must be
// uploaded before the file can be finalized.
func (c *Client) AssignBlocks(vaultID, fileID string, assignments []Assignment) ([]string, error) {
	body, err := json.Marshal(struct {
		Blocks []Assignment `json:"blocks"`
	}{Blocks: assignments})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assignments: %w", err)
	}

	resp, err := c.do(http.MethodPost, filePath(vaultID, fileID), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var missing []string
	if err := json.NewDecoder(resp.Body).Decode(&missing); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return missing, nil
}

// FinalizeFile seals the file at the given length. The manifest must cover
// exactly [0, length) with registered blocks, no gaps and no overlaps.
func (c *Client) FinalizeFile(vaultID, fileID string, length int64) error {
	resp, err := c.do(http.MethodPost, filePath(vaultID, fileID), "", nil,
		headerFileLength, strconv.FormatInt(length, 10))
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// GetFile streams a finalized file's content. The caller owns the reader.
// Unfinalized files are refused with a precondition failure.
func (c *Client) GetFile(vaultID, fileID string) (io.ReadCloser, error) {
	resp, err := c.do(http.MethodGet, filePath(vaultID, fileID), "", nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteFile deletes a file, finalized or not, and releases the block
// references its manifest held.
func (c *Client) DeleteFile(vaultID, fileID string) error {
	resp, err := c.do(http.MethodDelete, filePath(vaultID, fileID), "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// ListFiles fetches one page of the vault's finalized file IDs.
func (c *Client) ListFiles(vaultID, marker string, limit int) ([]string, string, error) {
	return c.listIDs(vaultPath(vaultID)+"/files", marker, limit)
}

// ListFileBlocks fetches one page of a file's manifest in offset order.
// marker is a byte offset; the returned offset feeds the next call and is
// zero once the manifest is exhausted.
func (c *Client) ListFileBlocks(vaultID, fileID string, marker int64, limit int) ([]FileBlock, int64, error) {
	var pageMarker string
	if marker > 0 {
		pageMarker = strconv.FormatInt(marker, 10)
	}

	var fbs []FileBlock
	resp, err := c.getJSON(filePath(vaultID, fileID)+"/blocks"+listQuery(pageMarker, limit), &fbs)
	if err != nil {
		return nil, 0, err
	}

	var next int64
	if s := nextMarker(resp); s != "" {
		next, _ = strconv.ParseInt(s, 10, 64)
	}
	return fbs, next, nil
}

func filePath(vaultID, fileID string) string {
	return fmt.Sprintf("/v1.0/vaults/%s/files/%s", vaultID, fileID)
}
