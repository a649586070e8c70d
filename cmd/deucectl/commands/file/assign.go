package file

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/painterjd/deuce/pkg/apiclient"
	"github.com/spf13/cobra"
)

var assignBlocks []string

var assignCmd = &cobra.Command{
	Use:   "assign <vault-id> <file-id>",
	Short: "Assign blocks to a file",
	Long: `Assign blocks to byte offsets of an open file.

Each --block takes a <block-id>:<offset> pair. Blocks may be assigned
before they are uploaded; the command prints the assigned IDs the vault
has no block for yet, which must be uploaded before finalize.

Examples:
  # Assign two blocks
  deucectl file assign backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 \
    --block 356a192b7913b04c54574d18c28d46e6395428ab:0 \
    --block da4b9237bacccdf19c0760cab7aec4a8359010b0:1024`,
	Args: cobra.ExactArgs(2),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().StringArrayVar(&assignBlocks, "block", nil, "Block assignment as <block-id>:<offset> (repeatable)")
	_ = assignCmd.MarkFlagRequired("block")
}

// parseAssignment splits a <block-id>:<offset> pair.
func parseAssignment(s string) (apiclient.Assignment, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return apiclient.Assignment{}, fmt.Errorf("invalid assignment %q: want <block-id>:<offset>", s)
	}

	offset, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil {
		return apiclient.Assignment{}, fmt.Errorf("invalid offset in %q: %w", s, err)
	}

	return apiclient.Assignment{ID: s[:idx], Offset: offset}, nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	vaultID, fileID := args[0], args[1]

	assignments := make([]apiclient.Assignment, 0, len(assignBlocks))
	for _, s := range assignBlocks {
		a, err := parseAssignment(s)
		if err != nil {
			return err
		}
		assignments = append(assignments, a)
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	missing, err := client.AssignBlocks(vaultID, fileID, assignments)
	if err != nil {
		return fmt.Errorf("failed to assign blocks: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, missing)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, missing)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Assigned %d blocks", len(assignments)))
	if len(missing) > 0 {
		fmt.Println("\nNot uploaded yet (upload before finalize):")
		for _, id := range missing {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
