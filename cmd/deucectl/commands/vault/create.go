package vault

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <vault-id>",
	Short: "Create a vault",
	Long: `Create a vault in the current project.

Creating a vault that already exists succeeds without changing it.

Examples:
  # Create a vault
  deucectl vault create backups`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := client.CreateVault(vaultID); err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout,
		map[string]string{"vault_id": vaultID},
		fmt.Sprintf("Vault '%s' created successfully", vaultID))
}
