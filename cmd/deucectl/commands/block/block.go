// Package block implements block management commands for deucectl.
package block

import (
	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/timeutil"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/spf13/cobra"
)

// Cmd is the parent command for block management.
var Cmd = &cobra.Command{
	Use:   "block",
	Short: "Block management",
	Long: `Manage blocks within a vault.

A block is an immutable chunk of data addressed by the SHA-1 hex digest of
its content. Uploading the same content twice is deduplicated; a block can
only be deleted while no file manifest references it.

Examples:
  # Upload a file as a single block
  deucectl block upload backups ./chunk.bin

  # List registered blocks
  deucectl block list backups

  # Inspect a block
  deucectl block head backups 356a192b7913b04c54574d18c28d46e6395428ab

  # Download a block
  deucectl block get backups 356a192b7913b04c54574d18c28d46e6395428ab -O chunk.bin`,
}

func init() {
	Cmd.AddCommand(uploadCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(headCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(deleteCmd)
}

// blockDetails is the presentation form of a block's metadata. The apiclient
// types carry header-derived fields without serialization tags, so commands
// convert before printing.
type blockDetails struct {
	BlockID     string `json:"block_id" yaml:"block_id"`
	StorageID   string `json:"storage_id" yaml:"storage_id"`
	Size        int64  `json:"size,omitempty" yaml:"size,omitempty"`
	RefCount    int64  `json:"reference_count" yaml:"reference_count"`
	RefModified int64  `json:"ref_modified" yaml:"ref_modified"`
}

func detailsFromReceipt(r *apiclient.BlockReceipt) blockDetails {
	return blockDetails{
		BlockID:     r.BlockID,
		StorageID:   r.StorageID,
		RefCount:    r.RefCount,
		RefModified: r.RefModified,
	}
}

func detailsFromInfo(info *apiclient.BlockInfo) blockDetails {
	d := detailsFromReceipt(&info.BlockReceipt)
	d.Size = info.Size
	return d
}

// Headers implements TableRenderer.
func (blockDetails) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (d blockDetails) Rows() [][]string {
	rows := [][]string{
		{"Block ID", d.BlockID},
		{"Storage ID", d.StorageID},
	}
	if d.Size > 0 {
		rows = append(rows, []string{"Size", cmdutil.FormatBytes(d.Size)})
	}
	rows = append(rows,
		[]string{"Reference count", cmdutil.FormatInt(d.RefCount)},
		[]string{"Ref modified", timeutil.FormatUnix(d.RefModified)},
	)
	return rows
}
