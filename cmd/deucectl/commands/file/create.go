package file

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <vault-id>",
	Short: "Create a file",
	Long: `Create an empty file in a vault.

The server mints the file ID and returns it. The file stays open for block
assignments until it is finalized.

Examples:
  # Create a file
  deucectl file create backups

  # Capture the ID for scripting
  FILE=$(deucectl file create backups -o json | jq -r .file_id)`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	vaultID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	fileID, err := client.CreateFile(vaultID)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, map[string]string{"file_id": fileID})
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, map[string]string{"file_id": fileID})
	default:
		fmt.Printf("File created: %s\n", fileID)
		return nil
	}
}
