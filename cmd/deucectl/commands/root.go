// Package commands implements the CLI commands for the deucectl client.
package commands

import (
	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	blockcmd "github.com/painterjd/deuce/cmd/deucectl/commands/block"
	filecmd "github.com/painterjd/deuce/cmd/deucectl/commands/file"
	storagecmd "github.com/painterjd/deuce/cmd/deucectl/commands/storage"
	vaultcmd "github.com/painterjd/deuce/cmd/deucectl/commands/vault"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "deucectl",
	Short: "Deuce Control - Block storage client",
	Long: `deucectl is the command-line client for the Deuce block storage API.

Use this tool to manage vaults, upload and fetch blocks, build files out of
blocks, and inspect the storage backend of a Deuce deployment.

Every data command acts within one project. Pass it with --project or set
DEUCE_PROJECT. The server address comes from --server or DEUCE_SERVER and
defaults to http://localhost:8080. When the server requires auth, pass a
bearer token with --token or DEUCE_TOKEN (mint one with 'deuce token').

Use "deucectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.ProjectID, _ = cmd.Flags().GetString("project")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().String("server", "", "Server URL (default: $DEUCE_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().String("project", "", "Project ID (default: $DEUCE_PROJECT)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (default: $DEUCE_TOKEN)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(vaultcmd.Cmd)
	rootCmd.AddCommand(blockcmd.Cmd)
	rootCmd.AddCommand(filecmd.Cmd)
	rootCmd.AddCommand(storagecmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
