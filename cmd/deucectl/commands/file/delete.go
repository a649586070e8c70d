package file

import (
	"fmt"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <vault-id> <file-id>",
	Short: "Delete a file",
	Long: `Delete a file from a vault, finalized or not.

Deleting a file releases the block references its manifest held; blocks
whose last reference goes away become deletable.

You will be prompted for confirmation unless --force is specified.

Examples:
  # Delete file with confirmation
  deucectl file delete backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24

  # Delete file without confirmation
  deucectl file delete backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 --force`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	vaultID, fileID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("File", fileID, deleteForce, func() error {
		if err := client.DeleteFile(vaultID, fileID); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	})
}
