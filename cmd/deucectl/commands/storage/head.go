package storage

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var headCmd = &cobra.Command{
	Use:   "head <vault-id> <storage-id>",
	Short: "Show storage object metadata",
	Long: `Show a storage object's metadata without downloading its content.

Orphaned objects have no block binding, so block ID and ref modified stay
empty for them.

Examples:
  # Inspect an object
  deucectl storage head backups 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2`,
	Args: cobra.ExactArgs(2),
	RunE: runHead,
}

func runHead(cmd *cobra.Command, args []string) error {
	vaultID, storageID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	info, err := client.HeadStorageBlock(vaultID, storageID)
	if err != nil {
		return fmt.Errorf("failed to head storage object: %w", err)
	}

	details := detailsFromInfo(info)
	return cmdutil.PrintResource(os.Stdout, details, details)
}
