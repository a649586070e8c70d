package block

import (
	"fmt"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <vault-id> <block-id>",
	Short: "Delete a block",
	Long: `Delete a block from a vault.

The server refuses to delete a block that file manifests still reference.
You will be prompted for confirmation unless --force is specified.

Examples:
  # Delete block with confirmation
  deucectl block delete backups 356a192b7913b04c54574d18c28d46e6395428ab

  # Delete block without confirmation
  deucectl block delete backups 356a192b7913b04c54574d18c28d46e6395428ab --force`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	vaultID, blockID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Block", blockID, deleteForce, func() error {
		if err := client.DeleteBlock(vaultID, blockID); err != nil {
			return fmt.Errorf("failed to delete block: %w", err)
		}
		return nil
	})
}
