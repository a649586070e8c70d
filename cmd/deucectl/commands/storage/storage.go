// Package storage implements storage backend inspection commands for deucectl.
package storage

import (
	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/timeutil"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/spf13/cobra"
)

// Cmd is the parent command for storage backend inspection.
var Cmd = &cobra.Command{
	Use:   "storage",
	Short: "Storage backend inspection",
	Long: `Inspect the storage objects behind a vault.

Every uploaded block body lands in the backend under a storage ID of the
form <block-id>_<uuid>. Re-uploading a registered block writes a new object
that stays unbound; such orphaned objects show up here and nowhere else.
These commands exist to audit and clean up the backend.

Examples:
  # List storage objects, orphans included
  deucectl storage list backups

  # Inspect one object
  deucectl storage head backups 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2

  # Remove an orphaned object
  deucectl storage delete backups 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(headCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(deleteCmd)
}

// storageDetails is the presentation form of a storage object's metadata.
type storageDetails struct {
	StorageID   string `json:"storage_id" yaml:"storage_id"`
	BlockID     string `json:"block_id,omitempty" yaml:"block_id,omitempty"`
	Size        int64  `json:"size" yaml:"size"`
	RefCount    int64  `json:"reference_count" yaml:"reference_count"`
	RefModified int64  `json:"ref_modified,omitempty" yaml:"ref_modified,omitempty"`
	Orphaned    bool   `json:"orphaned" yaml:"orphaned"`
}

func detailsFromInfo(info *apiclient.StorageBlockInfo) storageDetails {
	return storageDetails{
		StorageID:   info.StorageID,
		BlockID:     info.BlockID,
		Size:        info.Size,
		RefCount:    info.RefCount,
		RefModified: info.RefModified,
		Orphaned:    info.Orphaned,
	}
}

// Headers implements TableRenderer.
func (storageDetails) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (d storageDetails) Rows() [][]string {
	return [][]string{
		{"Storage ID", d.StorageID},
		{"Block ID", cmdutil.EmptyOr(d.BlockID, "-")},
		{"Size", cmdutil.FormatBytes(d.Size)},
		{"Reference count", cmdutil.FormatInt(d.RefCount)},
		{"Ref modified", timeutil.FormatUnix(d.RefModified)},
		{"Orphaned", cmdutil.BoolToYesNo(d.Orphaned)},
	}
}
