package storage

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/spf13/cobra"
)

var getFile string

var getCmd = &cobra.Command{
	Use:   "get <vault-id> <storage-id>",
	Short: "Download a storage object",
	Long: `Download a storage object's content by storage ID.

This reads the backend object directly, so it works for orphaned objects
that 'block get' can no longer reach.

Examples:
  # Recover an orphaned object's content
  deucectl storage get backups 356a192b7913b04c54574d18c28d46e6395428ab_5d39bdc5-9757-4d9f-a806-ca3d08e2c1a2 -O orphan.bin`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVarP(&getFile, "file", "O", "", "Write content to this file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	vaultID, storageID := args[0], args[1]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	data, err := client.GetStorageBlock(vaultID, storageID)
	if err != nil {
		return fmt.Errorf("failed to get storage object: %w", err)
	}

	if getFile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(getFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", getFile, err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Object written to %s (%s)", getFile, cmdutil.FormatBytes(int64(len(data)))))
	return nil
}
