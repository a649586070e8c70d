package main

import (
	"fmt"
	"os"

	"github.com/painterjd/deuce/cmd/deuce/commands"

	// Import prometheus metrics to register collectors
	_ "github.com/painterjd/deuce/pkg/metrics"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Set version info for commands package
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
