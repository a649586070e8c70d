package vault

import (
	"fmt"
	"os"
	"sort"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	listMarker string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List vaults",
	Long: `List the vaults of the current project.

Listings are paged. When a page fills up, the next marker is printed; pass
it back with --marker to continue.

Examples:
  # List vaults as table
  deucectl vault list

  # Continue from a marker
  deucectl vault list --marker backups

  # List as JSON
  deucectl vault list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listMarker, "marker", "", "Start listing at this vault ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum vaults per page (0 = server default)")
}

// VaultList holds a vault listing page for table rendering.
type VaultList map[string]apiclient.VaultRef

// Headers implements TableRenderer.
func (vl VaultList) Headers() []string {
	return []string{"VAULT ID", "URL"}
}

// Rows implements TableRenderer.
func (vl VaultList) Rows() [][]string {
	ids := make([]string, 0, len(vl))
	for id := range vl {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, vl[id].URL})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	vaults, next, err := client.ListVaults(listMarker, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list vaults: %w", err)
	}

	if err := cmdutil.PrintOutput(os.Stdout, vaults, len(vaults) == 0, "No vaults found.", VaultList(vaults)); err != nil {
		return err
	}

	cmdutil.PrintNextMarker(next)
	return nil
}
