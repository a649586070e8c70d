package file

import (
	"fmt"
	"os"
	"strconv"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	blocksMarker int64
	blocksLimit  int
)

var blocksCmd = &cobra.Command{
	Use:   "blocks <vault-id> <file-id>",
	Short: "Show a file's manifest",
	Long: `Show the block manifest of a file in offset order.

Each row is one tile: the block ID and the byte offset it covers. The
manifest is paged by offset; when a page fills up, the next offset is
printed and can be passed back with --marker.

Examples:
  # Show the manifest
  deucectl file blocks backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24

  # Continue from offset 1048576
  deucectl file blocks backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 --marker 1048576`,
	Args: cobra.ExactArgs(2),
	RunE: runBlocks,
}

func init() {
	blocksCmd.Flags().Int64Var(&blocksMarker, "marker", 0, "Start listing at this byte offset")
	blocksCmd.Flags().IntVar(&blocksLimit, "limit", 0, "Maximum entries per page (0 = server default)")
}

func runBlocks(cmd *cobra.Command, args []string) error {
	vaultID, fileID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	entries, next, err := client.ListFileBlocks(vaultID, fileID, blocksMarker, blocksLimit)
	if err != nil {
		return fmt.Errorf("failed to list file blocks: %w", err)
	}

	type manifestEntry struct {
		Offset  int64  `json:"offset" yaml:"offset"`
		BlockID string `json:"block_id" yaml:"block_id"`
	}

	table := output.NewTableData("OFFSET", "BLOCK ID")
	tiles := make([]manifestEntry, 0, len(entries))
	for _, e := range entries {
		table.AddRow(strconv.FormatInt(e.Offset, 10), e.BlockID)
		tiles = append(tiles, manifestEntry{Offset: e.Offset, BlockID: e.BlockID})
	}

	if err := cmdutil.PrintOutput(os.Stdout, tiles, len(tiles) == 0, "Manifest is empty.", table); err != nil {
		return err
	}

	if next > 0 {
		cmdutil.PrintNextMarker(strconv.FormatInt(next, 10))
	}
	return nil
}
