package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/painterjd/deuce/pkg/api/auth"
	"github.com/painterjd/deuce/pkg/config"
)

var (
	tokenProject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a project",
	Long: `Mint a signed bearer token scoped to a project.

The token is signed with the auth secret from the server configuration, so
this command must run where that configuration is available. The token only
grants access to the named project.

The token is printed to stdout so it can be captured directly:

  export DEUCE_TOKEN=$(deuce token --project demo)

Examples:
  # Token for project "demo", valid 24 hours
  deuce token --project demo

  # Short-lived token
  deuce token --project demo --ttl 15m`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenProject, "project", "", "Project ID the token is scoped to (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("project")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if cfg.Auth.Secret == "" {
		return fmt.Errorf("no auth secret configured; set auth.secret or DEUCE_AUTH_SECRET")
	}

	token, err := auth.NewToken(cfg.Auth.Secret, cfg.Auth.Issuer, tokenProject, tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Println(token)
	return nil
}
