package vault

import (
	"fmt"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <vault-id>",
	Short: "Delete a vault",
	Long: `Delete a vault from the current project.

The vault must be empty: the server refuses to delete a vault that still
holds blocks or files. You will be prompted for confirmation unless
--force is specified.

Examples:
  # Delete vault with confirmation
  deucectl vault delete backups

  # Delete vault without confirmation
  deucectl vault delete backups --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation("Vault", vaultID, deleteForce, func() error {
		if err := client.DeleteVault(vaultID); err != nil {
			return fmt.Errorf("failed to delete vault: %w", err)
		}
		return nil
	})
}
