package apiclient

import (
	"fmt"
	"net/http"
)

// VaultRef is one entry of a vault listing.
type VaultRef struct {
	URL string `json:"url"`
}

// VaultStats holds the statistics of a vault, reported separately by the
// metadata and storage backends.
type VaultStats struct {
	Metadata MetadataStats `json:"metadata"`
	Storage  StorageStats  `json:"storage"`
}

// MetadataStats counts what the metadata backend tracks for a vault.
type MetadataStats struct {
	Files    CountStat         `json:"files"`
	Blocks   CountStat         `json:"blocks"`
	Internal map[string]string `json:"internal"`
}

// StorageStats describes the storage backend's view of a vault, orphaned
// objects included.
type StorageStats struct {
	BlockCount int64             `json:"block-count"`
	TotalSize  int64             `json:"total-size"`
	Internal   map[string]string `json:"internal"`
}

// CountStat is a bare counter.
type CountStat struct {
	Count int64 `json:"count"`
}

// CreateVault creates a vault. Creating an existing vault succeeds.
func (c *Client) CreateVault(vaultID string) error {
	resp, err := c.do(http.MethodPut, vaultPath(vaultID), "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// VaultExists reports whether the vault exists.
func (c *Client) VaultExists(vaultID string) (bool, error) {
	resp, err := c.do(http.MethodHead, vaultPath(vaultID), "", nil)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	discard(resp)
	return true, nil
}

// GetVaultStats fetches the vault's statistics.
func (c *Client) GetVaultStats(vaultID string) (*VaultStats, error) {
	var stats VaultStats
	if _, err := c.getJSON(vaultPath(vaultID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteVault deletes an empty vault. Vaults that still hold storage
// objects are refused with a conflict.
func (c *Client) DeleteVault(vaultID string) error {
	resp, err := c.do(http.MethodDelete, vaultPath(vaultID), "", nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

// ListVaults fetches one page of the project's vaults, mapping each name to
// its resource URL.
func (c *Client) ListVaults(marker string, limit int) (map[string]VaultRef, string, error) {
	vaults := map[string]VaultRef{}
	resp, err := c.getJSON("/v1.0/vaults"+listQuery(marker, limit), &vaults)
	if err != nil {
		return nil, "", err
	}
	return vaults, nextMarker(resp), nil
}

func vaultPath(vaultID string) string {
	return fmt.Sprintf("/v1.0/vaults/%s", vaultID)
}
