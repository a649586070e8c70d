package file

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
	Short: "List finalized files in a vault",
	Long: `List the finalized file IDs of a vault in lexicographic order.

Open files do not appear until they are finalized. Listings are paged;
when a page fills up, the next marker is printed.

Examples:
  # List files
  deucectl file list backups

  # Continue from a marker
  deucectl file list backups --marker 6093ba1c-90e4-4e43-8869-0987fd5f1f24`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listMarker, "marker", "", "Start listing at this file ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum files per page (0 = server default)")
}

func runList(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	files, next, err := client.ListFiles(vaultID, listMarker, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	table := output.NewTableData("FILE ID")
	for _, id := range files {
		table.AddRow(id)
	}

	if err := cmdutil.PrintOutput(os.Stdout, files, len(files) == 0, "No files found.", table); err != nil {
		return err
	}

	cmdutil.PrintNextMarker(next)
	return nil
}
