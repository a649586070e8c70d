package vault

import (
	"fmt"
	"os"
	"strconv"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <vault-id>",
	Short: "Show vault statistics",
	Long: `Show the statistics of a vault.

The metadata side counts registered blocks and finalized files; the storage
side reports what actually sits in the backend, orphaned objects included.

Examples:
  # Show stats as table
  deucectl vault stats backups

  # Show stats as JSON
  deucectl vault stats backups -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

// vaultStatsTable renders VaultStats as key-value rows.
type vaultStatsTable apiclient.VaultStats

// Headers implements TableRenderer.
func (vaultStatsTable) Headers() []string {
	return []string{"STAT", "VALUE"}
}

// Rows implements TableRenderer.
func (s vaultStatsTable) Rows() [][]string {
	rows := [][]string{
		{"Files", strconv.FormatInt(s.Metadata.Files.Count, 10)},
		{"Blocks", strconv.FormatInt(s.Metadata.Blocks.Count, 10)},
		{"Storage objects", strconv.FormatInt(s.Storage.BlockCount, 10)},
		{"Storage bytes", strconv.FormatInt(s.Storage.TotalSize, 10)},
	}
	for k, v := range s.Metadata.Internal {
		rows = append(rows, []string{"metadata." + k, v})
	}
	for k, v := range s.Storage.Internal {
		rows = append(rows, []string{"storage." + k, v})
	}
	return rows
}

func runStats(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	stats, err := client.GetVaultStats(vaultID)
	if err != nil {
		return fmt.Errorf("failed to get vault stats: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		fmt.Printf("Vault: %s\n\n", vaultID)
	}

	return cmdutil.PrintResource(os.Stdout, stats, vaultStatsTable(*stats))
}
