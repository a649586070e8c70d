package file

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var finalizeLength int64

var finalizeCmd = &cobra.Command{
	Use:   "finalize <vault-id> <file-id>",
	Short: "Finalize a file",
	Long: `Finalize a file at its total length.

The assigned blocks must tile [0, length) exactly: every block registered,
no gaps, no overlaps. The server reports the first violation otherwise.
Finalizing is idempotent and freezes the manifest; a finalized file can be
read back with 'file get'.

Examples:
  # Finalize a 2048-byte file
  deucectl file finalize backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 --length 2048

  # An empty file finalizes at length 0 with no blocks
  deucectl file finalize backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 --length 0`,
	Args: cobra.ExactArgs(2),
	RunE: runFinalize,
}

func init() {
	finalizeCmd.Flags().Int64Var(&finalizeLength, "length", 0, "Total file length in bytes (required)")
	_ = finalizeCmd.MarkFlagRequired("length")
}

func runFinalize(cmd *cobra.Command, args []string) error {
	vaultID, fileID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := client.FinalizeFile(vaultID, fileID, finalizeLength); err != nil {
		return fmt.Errorf("failed to finalize file: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout,
		map[string]any{"file_id": fileID, "length": finalizeLength},
		fmt.Sprintf("File '%s' finalized at %d bytes", fileID, finalizeLength))
}
