package block

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var getFile string

var getCmd = &cobra.Command{
	Use:   "get <vault-id> <block-id>",
	Short: "Download a block",
	Long: `Download a block's content.

The content goes to stdout unless --file names a destination, so output
can be piped directly into other tools.

Examples:
  # Write block content to a file
  deucectl block get backups 356a192b7913b04c54574d18c28d46e6395428ab -O chunk.bin

  # Pipe block content through sha1sum
  deucectl block get backups 356a192b7913b04c54574d18c28d46e6395428ab | sha1sum`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getFile, "file", "O", "", "Write content to this file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	vaultID, blockID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	data, err := client.GetBlock(vaultID, blockID)
	if err != nil {
		return fmt.Errorf("failed to get block: %w", err)
	}

	if getFile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(getFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", getFile, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Block written to %s (%s)", getFile, cmdutil.FormatBytes(int64(len(data)))))
	return nil
}
