package file

import (
	"fmt"
	"io"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var getFile string

var getCmd = &cobra.Command{
	Use:   "get <vault-id> <file-id>",
	Short: "Download a file",
	Long: `Download a finalized file's content as one stream.

The content goes to stdout unless --file names a destination. Files that
are not finalized yet cannot be read.

Examples:
  # Restore a file
  deucectl file get backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 -O restored.bin

  # Pipe the content
  deucectl file get backups 6093ba1c-90e4-4e43-8869-0987fd5f1f24 | tar -tz`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getFile, "file", "O", "", "Write content to this file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	vaultID, fileID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	body, err := client.GetFile(vaultID, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	defer func() { _ = body.Close() }()

	if getFile == "" {
		_, err := io.Copy(os.Stdout, body)
		return err
	}

	out, err := os.Create(getFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", getFile, err)
	}

	n, err := io.Copy(out, body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", getFile, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("File written to %s (%s)", getFile, cmdutil.FormatBytes(n)))
	return nil
}
