// Package vault implements vault management commands for deucectl.
package vault

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for vault management.
var Cmd = &cobra.Command{
	Use:   "vault",
	Short: "Vault management",
	Long: `Manage vaults within the current project.

A vault is an isolated container for blocks and files. Block IDs are
deduplicated per vault, and a vault can only be deleted once it holds no
blocks and no files.

Examples:
  # Create a vault
  deucectl vault create backups

  # List vaults
  deucectl vault list

  # Show vault statistics
  deucectl vault stats backups

  # Delete an empty vault
  deucectl vault delete backups`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(deleteCmd)
}
