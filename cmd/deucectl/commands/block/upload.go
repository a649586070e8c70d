package block

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/pkg/deuce"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <vault-id> <path>...",
	Short: "Upload files as blocks",
	Long: `Upload one or more local files as blocks.

Each file becomes one block; its ID is the SHA-1 hex digest of the file
content, computed locally before the upload. A single file is uploaded on
its own and the server's receipt is printed. Multiple files go up as one
atomic batch.

Every file must fit within the server's block size limit.

Examples:
  # Upload one file
  deucectl block upload backups ./chunk.bin

  # Upload several files in one batch
  deucectl block upload backups ./chunks/*.bin`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	vaultID := args[0]
	paths := args[1:]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if len(paths) == 1 {
		data, err := os.ReadFile(paths[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", paths[0], err)
		}

		blockID := deuce.BlockID(data)
		receipt, err := client.UploadBlock(vaultID, blockID, data)
		if err != nil {
			return fmt.Errorf("failed to upload block: %w", err)
		}

		details := detailsFromReceipt(receipt)
		details.Size = int64(len(data))
		return cmdutil.PrintResource(os.Stdout, details, details)
	}

	batch := make(map[string][]byte, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		batch[deuce.BlockID(data)] = data
	}

	if err := client.UploadBlocks(vaultID, batch); err != nil {
		return fmt.Errorf("failed to upload batch: %w", err)
	}

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	return cmdutil.PrintResourceWithSuccess(os.Stdout,
		map[string]any{"uploaded": ids},
		fmt.Sprintf("Uploaded %d blocks (%d files, duplicates collapse to one block)", len(batch), len(paths)))
}
