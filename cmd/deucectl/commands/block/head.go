package block

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var headCmd = &cobra.Command{
	Use:   "head <vault-id> <block-id>",
	Short: "Show block metadata",
	Long: `Show a block's metadata without downloading its content.

Examples:
  # Inspect a block
  deucectl block head backups 356a192b7913b04c54574d18c28d46e6395428ab

  # As JSON
  deucectl block head backups 356a192b7913b04c54574d18c28d46e6395428ab -o json`,
	Args: cobra.ExactArgs(2),
	RunE: runHead,
}

func runHead(cmd *cobra.Command, args []string) error {
	vaultID, blockID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	info, err := client.HeadBlock(vaultID, blockID)
	if err != nil {
		return fmt.Errorf("failed to head block: %w", err)
	}

	details := detailsFromInfo(info)
	return cmdutil.PrintResource(os.Stdout, details, details)
}
