package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/painterjd/deuce/pkg/deuce"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize the
// different record types into logical namespaces. This design:
//   - Prevents key collisions between record types
//   - Enables efficient range scans (all blocks of a vault, all assignments
//     of a file) with inclusive marker resume via Seek
//   - Makes the database structure self-documenting
//
// Vault IDs are restricted to [a-zA-Z0-9_-], block IDs are lowercase SHA-1
// hex, file IDs are UUIDs and storage IDs are <sha1>_<uuid>, so none of the
// embedded identifiers can contain the ":" separator.
//
// Key Namespace Prefixes:
//
// Record Type       Prefix   Key Format                                       Value Type
// ========================================================================================
// Vaults            "v:"     v:<project>:<vault>                              vaultRecord (JSON)
// Blocks            "b:"     b:<project>:<vault>:<blockID>                    blockRecord (JSON)
// Storage Index     "s:"     s:<project>:<vault>:<storageID>                  blockID (bytes)
// Reference Counts  "r:"     r:<project>:<vault>:<blockID>                    int64 (binary)
// Files             "f:"     f:<project>:<vault>:<fileID>                     fileRecord (JSON)
// Assignments       "a:"     a:<project>:<vault>:<fileID>:<offset>:<blockID>  assignmentRecord (JSON)
//
// Assignment offsets are zero-padded to 20 digits so that byte-wise key order
// matches numeric offset order during range scans.

const (
	prefixVault      = "v:"
	prefixBlock      = "b:"
	prefixStorage    = "s:"
	prefixRefCount   = "r:"
	prefixFile       = "f:"
	prefixAssignment = "a:"
)

// ============================================================================
// Key Generation Functions
// ============================================================================

// keyVault generates a key for vault data: "v:<project>:<vault>"
func keyVault(v deuce.Vault) []byte {
	return []byte(prefixVault + v.ProjectID + ":" + v.VaultID)
}

// keyVaultPrefix generates a prefix for scanning a project's vaults: "v:<project>:"
func keyVaultPrefix(projectID string) []byte {
	return []byte(prefixVault + projectID + ":")
}

// keyBlock generates a key for block data: "b:<project>:<vault>:<blockID>"
func keyBlock(v deuce.Vault, blockID string) []byte {
	return []byte(prefixBlock + v.ProjectID + ":" + v.VaultID + ":" + blockID)
}

// keyBlockPrefix generates a prefix for scanning a vault's blocks.
func keyBlockPrefix(v deuce.Vault) []byte {
	return []byte(prefixBlock + v.ProjectID + ":" + v.VaultID + ":")
}

// keyStorage generates a key for the storage-to-block index.
func keyStorage(v deuce.Vault, storageID string) []byte {
	return []byte(prefixStorage + v.ProjectID + ":" + v.VaultID + ":" + storageID)
}

// keyStoragePrefix generates a prefix for scanning a vault's storage index.
func keyStoragePrefix(v deuce.Vault) []byte {
	return []byte(prefixStorage + v.ProjectID + ":" + v.VaultID + ":")
}

// keyRefCount generates a key for a block's reference counter.
func keyRefCount(v deuce.Vault, blockID string) []byte {
	return []byte(prefixRefCount + v.ProjectID + ":" + v.VaultID + ":" + blockID)
}

// keyRefCountPrefix generates a prefix for scanning a vault's counters.
func keyRefCountPrefix(v deuce.Vault) []byte {
	return []byte(prefixRefCount + v.ProjectID + ":" + v.VaultID + ":")
}

// keyFile generates a key for file data: "f:<project>:<vault>:<fileID>"
func keyFile(v deuce.Vault, fileID string) []byte {
	return []byte(prefixFile + v.ProjectID + ":" + v.VaultID + ":" + fileID)
}

// keyFilePrefix generates a prefix for scanning a vault's files.
func keyFilePrefix(v deuce.Vault) []byte {
	return []byte(prefixFile + v.ProjectID + ":" + v.VaultID + ":")
}

// keyAssignment generates a key for a file block assignment.
func keyAssignment(v deuce.Vault, fileID string, offset int64, blockID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s:%020d:%s",
		prefixAssignment, v.ProjectID, v.VaultID, fileID, offset, blockID))
}

// keyAssignmentPrefix generates a prefix for scanning a file's assignments.
func keyAssignmentPrefix(v deuce.Vault, fileID string) []byte {
	return []byte(prefixAssignment + v.ProjectID + ":" + v.VaultID + ":" + fileID + ":")
}

// keyAssignmentVaultPrefix generates a prefix covering every assignment in
// the vault, across all files.
func keyAssignmentVaultPrefix(v deuce.Vault) []byte {
	return []byte(prefixAssignment + v.ProjectID + ":" + v.VaultID + ":")
}

// keyAssignmentSeek generates a seek position for resuming an assignment scan
// at the given offset.
func keyAssignmentSeek(v deuce.Vault, fileID string, offset int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s:%020d",
		prefixAssignment, v.ProjectID, v.VaultID, fileID, offset))
}

// ============================================================================
// Internal Types
// ============================================================================

// vaultRecord marks a vault's existence.
type vaultRecord struct {
	CreatedAt int64 `json:"created_at"`
}

// blockRecord holds a registered block's live binding.
type blockRecord struct {
	StorageID string `json:"storage_id"`
	Size      int64  `json:"size"`
	Invalid   bool   `json:"invalid,omitempty"`
	RefTime   int64  `json:"ref_time"`
}

// fileRecord holds a file's finalization state.
type fileRecord struct {
	Finalized bool  `json:"finalized"`
	Size      int64 `json:"size"`
}

// assignmentRecord is one row of a file's block manifest.
type assignmentRecord struct {
	BlockID string `json:"block_id"`
	Offset  int64  `json:"offset"`
	Size    *int64 `json:"size"`
}

// ============================================================================
// JSON Encoding/Decoding
// ============================================================================

func encodeVaultRecord(rec *vaultRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault record: %w", err)
	}
	return bytes, nil
}

func decodeVaultRecord(bytes []byte) (*vaultRecord, error) {
	var rec vaultRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode vault record: %w", err)
	}
	return &rec, nil
}

func encodeBlockRecord(rec *blockRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode block record: %w", err)
	}
	return bytes, nil
}

func decodeBlockRecord(bytes []byte) (*blockRecord, error) {
	var rec blockRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode block record: %w", err)
	}
	return &rec, nil
}

func encodeFileRecord(rec *fileRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return bytes, nil
}

func decodeFileRecord(bytes []byte) (*fileRecord, error) {
	var rec fileRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode file record: %w", err)
	}
	return &rec, nil
}

func encodeAssignmentRecord(rec *assignmentRecord) ([]byte, error) {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignment record: %w", err)
	}
	return bytes, nil
}

func decodeAssignmentRecord(bytes []byte) (*assignmentRecord, error) {
	var rec assignmentRecord
	if err := json.Unmarshal(bytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode assignment record: %w", err)
	}
	return &rec, nil
}

// ============================================================================
// Binary Encoding/Decoding
// ============================================================================

func encodeInt64(value int64) []byte {
	bytes := make([]byte, 8)
	binary.BigEndian.PutUint64(bytes, uint64(value))
	return bytes
}

func decodeInt64(bytes []byte) (int64, error) {
	if len(bytes) != 8 {
		return 0, fmt.Errorf("invalid int64 bytes: expected 8 bytes, got %d", len(bytes))
	}
	return int64(binary.BigEndian.Uint64(bytes)), nil
}
