// Package file implements file management commands for deucectl.
package file

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for file management.
var Cmd = &cobra.Command{
	Use:   "file",
	Short: "File management",
	Long: `Manage files within a vault.

A file is an ordered tiling of blocks. Create a file, assign blocks to byte
offsets, then finalize it at its total length; once finalized the content
can be read back as one stream. Assignments may name blocks that are not
uploaded yet, but finalize requires every tile to be registered and the
tiling to cover the length exactly.

Examples:
  # Create a file and capture its ID
  FILE=$(deucectl file create backups -o json | jq -r .file_id)

  # Assign two blocks
  deucectl file assign backups $FILE \
    --block 356a192b7913b04c54574d18c28d46e6395428ab:0 \
    --block da4b9237bacccdf19c0760cab7aec4a8359010b0:1024

  # Finalize at the total length
  deucectl file finalize backups $FILE --length 2048

  # Read the content back
  deucectl file get backups $FILE -O restored.bin`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(assignCmd)
	Cmd.AddCommand(finalizeCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(blocksCmd)
	Cmd.AddCommand(deleteCmd)
}
