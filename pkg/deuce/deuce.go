// Package deuce holds the identity primitives shared by every layer of the
// service: vault addressing, content-addressed block IDs, file IDs and the
// storage IDs minted for individual storage objects.
package deuce

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// APIVersion is the versioned prefix all routes are mounted under.
const APIVersion = "v1.0"

var (
	vaultIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	blockIDPattern = regexp.MustCompile(`^[a-f0-9]{40}$`)
	fileIDPattern  = regexp.MustCompile(
		`^[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	storageIDPattern = regexp.MustCompile(
		`^[a-f0-9]{40}_[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// Vault addresses a tenant-scoped namespace. All blocks and files live inside
// exactly one vault.
type Vault struct {
	ProjectID string
	VaultID   string
}

// NewVault builds a vault address.
func NewVault(projectID, vaultID string) Vault {
	return Vault{ProjectID: projectID, VaultID: vaultID}
}

// String renders the vault as project/vault, the form used in log lines and
// storage keys.
func (v Vault) String() string {
	return v.ProjectID + "/" + v.VaultID
}

// ValidVaultID reports whether s is a well-formed vault ID:
// 1 to 128 characters from [A-Za-z0-9_-].
func ValidVaultID(s string) bool {
	return vaultIDPattern.MatchString(s)
}

// ValidBlockID reports whether s is a well-formed block ID:
// exactly 40 lowercase hex characters (a SHA-1 digest).
func ValidBlockID(s string) bool {
	return blockIDPattern.MatchString(s)
}

// ValidFileID reports whether s is a well-formed file ID:
// a lowercase RFC 4122 version-4 UUID.
func ValidFileID(s string) bool {
	return fileIDPattern.MatchString(s)
}

// ValidStorageID reports whether s is a well-formed storage ID:
// a block ID joined to a UUID with an underscore.
func ValidStorageID(s string) bool {
	return storageIDPattern.MatchString(s)
}

// BlockID returns the content-addressed ID for a block of data: the lowercase
// hex SHA-1 of its bytes. Clients compute the same value before uploading.
func BlockID(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// NewFileID mints a fresh file ID.
func NewFileID() string {
	return uuid.NewString()
}

// NewStorageID mints a storage ID for one upload of blockID. The UUID suffix
// makes every upload land on a distinct storage object, so a re-upload of the
// same content never overwrites the object existing references point at.
func NewStorageID(blockID string) string {
	return blockID + "_" + uuid.NewString()
}

// SplitStorageID returns the block ID embedded in a storage ID. The second
// return is false when the storage ID does not carry one.
func SplitStorageID(storageID string) (string, bool) {
	i := strings.IndexByte(storageID, '_')
	if i != sha1.Size*2 {
		return "", false
	}
	blockID := storageID[:i]
	if !ValidBlockID(blockID) {
		return "", false
	}
	return blockID, true
}
