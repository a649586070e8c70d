package block

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	listMarker string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list <vault-id>",
	Short: "List blocks in a vault",
	Long: `List the registered block IDs of a vault in lexicographic order.

Listings are paged. When a page fills up, the next marker is printed; pass
it back with --marker to continue.

Examples:
  # List blocks
  deucectl block list backups

  # Continue from a marker
  deucectl block list backups --marker 356a192b7913b04c54574d18c28d46e6395428ab`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listMarker, "marker", "", "Start listing at this block ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum blocks per page (0 = server default)")
}

func runList(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	blocks, next, err := client.ListBlocks(vaultID, listMarker, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}

	table := output.NewTableData("BLOCK ID")
	for _, id := range blocks {
		table.AddRow(id)
	}

	if err := cmdutil.PrintOutput(os.Stdout, blocks, len(blocks) == 0, "No blocks found.", table); err != nil {
		return err
	}

	cmdutil.PrintNextMarker(next)
	return nil
}
