package commands

import (
	"os"

	"github.com/painterjd/deuce/cmd/deucectl/cmdutil"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the status of the Deuce server.

Calls the ping and health endpoints and reports what the deployment says
about its own components. These endpoints are open, so no project or token
is required.

Examples:
  # Check the default server
  deucectl status

  # Check a remote deployment
  deucectl status --server https://deuce.example.com

  # Output as JSON
  deucectl status -o json`,
	RunE: runStatus,
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Server    string   `json:"server" yaml:"server"`
	Reachable bool     `json:"reachable" yaml:"reachable"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
	Health    []string `json:"health,omitempty" yaml:"health,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	client := cmdutil.GetDiagnosticsClient()

	status := ServerStatus{
		Server:    cmdutil.ServerURL(),
		Reachable: true,
	}

	if err := client.Ping(); err != nil {
		status.Reachable = false
		status.Message = err.Error()
	} else if lines, err := client.Health(); err != nil {
		status.Message = err.Error()
	} else {
		status.Health = lines
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	}

	printer := output.NewPrinter(os.Stdout, format, !cmdutil.IsColorDisabled())
	if !status.Reachable {
		printer.Error("Server is not reachable: " + status.Message)
		return nil
	}

	printer.Success("Server is up")
	if len(status.Health) > 0 {
		printer.Println()
		for _, line := range status.Health {
			printer.Println("  " + line)
		}
	}
	return nil
}
