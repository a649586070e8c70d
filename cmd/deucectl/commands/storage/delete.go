package storage

import (
	"fmt"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <vault-id> <storage-id>",
	Short: "Delete a storage object",
	Long: `Delete an orphaned storage object from the backend.

The server refuses to delete the live copy of a registered block; only
orphaned objects can be reclaimed here. You will be prompted for
confirmation unless --force is specified.

Examples:
  # Delete an orphaned object
  deucectl storage delete backups 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	vaultID, storageID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Storage object", storageID, deleteForce, func() error {
		if err := client.DeleteStorageBlock(vaultID, storageID); err != nil {
			return fmt.Errorf("failed to delete storage object: %w", err)
		}
		return nil
	})
}
