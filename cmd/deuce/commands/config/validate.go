package config

import (
	"fmt"

	"github.com/painterjd/deuce/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the Deuce configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  deuce config validate

  # Validate specific config file
  deuce config validate --config /etc/deuce/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	// Check auth is configured
	if !cfg.Auth.Enabled {
		warnings = append(warnings, "Auth disabled - any client can act on any project")
	}

	// Check for stores that lose data on restart
	if cfg.Metadata.Type == "memory" {
		warnings = append(warnings, "Metadata store type 'memory' loses all data on restart")
	}
	if inMemory, ok := cfg.Metadata.Badger["in_memory"].(bool); ok && inMemory {
		warnings = append(warnings, "Badger in_memory mode loses all data on restart")
	}
	if cfg.Storage.Type == "memory" {
		warnings = append(warnings, "Storage store type 'memory' loses all data on restart")
	}

	// Check telemetry has somewhere to export
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		warnings = append(warnings, "Telemetry enabled but no endpoint configured")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Metadata store:  %s\n", cfg.Metadata.Type)
	fmt.Printf("  Storage store:   %s\n", cfg.Storage.Type)
	fmt.Printf("  API port:        %d\n", cfg.Server.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Log.Level)

	return nil
}
