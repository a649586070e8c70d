package storage

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
	Short: "List storage objects in a vault",
	Long: `List the storage IDs of a vault in lexicographic order.

Unlike 'block list', this walks the storage backend itself, so orphaned
objects appear too. Listings are paged; when a page fills up, the next
marker is printed.

Examples:
  # List storage objects
  deucectl storage list backups

  # Continue from a marker
  deucectl storage list backups --marker 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listMarker, "marker", "", "Start listing at this storage ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum objects per page (0 = server default)")
}

func runList(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ids, next, err := client.ListStorageBlocks(vaultID, listMarker, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list storage objects: %w", err)
	}

	table := output.NewTableData("STORAGE ID")
	for _, id := range ids {
		table.AddRow(id)
	}

	if err := cmdutil.PrintOutput(os.Stdout, ids, len(ids) == 0, "No storage objects found.", table); err != nil {
		return err
	}

	cmdutil.PrintNextMarker(next)
	return nil
}
