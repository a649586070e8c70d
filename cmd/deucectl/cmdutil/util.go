// Package cmdutil provides shared utilities for deucectl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/painterjd/deuce/internal/bytesize"
	"github.com/painterjd/deuce/internal/cli/output"
	"github.com/painterjd/deuce/internal/cli/prompt"
	"github.com/painterjd/deuce/pkg/apiclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	ProjectID string
	Token     string
	Output    string
	NoColor   bool
	Verbose   bool
}

// Environment variables consulted when the corresponding flag is unset.
const (
	EnvServer  = "DEUCE_SERVER"
	EnvProject = "DEUCE_PROJECT"
	EnvToken   = "DEUCE_TOKEN"
)

// DefaultServerURL is used when neither --server nor DEUCE_SERVER is set.
const DefaultServerURL = "http://localhost:8080"

// ServerURL returns the server URL the client will talk to.
func ServerURL() string {
	return resolveServer()
}

// resolveServer returns the server URL from flags or environment.
func resolveServer() string {
	if Flags.ServerURL != "" {
		return Flags.ServerURL
	}
	if env := os.Getenv(EnvServer); env != "" {
		return env
	}
	return DefaultServerURL
}

// resolveToken returns the bearer token from flags or environment. Empty
// means the server runs without auth.
func resolveToken() string {
	if Flags.Token != "" {
		return Flags.Token
	}
	return os.Getenv(EnvToken)
}

// GetClient returns an API client scoped to the configured project.
// Flags take precedence over environment variables.
func GetClient() (*apiclient.Client, error) {
	project := Flags.ProjectID
	if project == "" {
		project = os.Getenv(EnvProject)
	}
	if project == "" {
		return nil, fmt.Errorf("no project ID configured. Use --project or set %s", EnvProject)
	}

	client := apiclient.New(resolveServer(), project)
	if token := resolveToken(); token != "" {
		client = client.WithToken(token)
	}
	return client, nil
}

// GetDiagnosticsClient returns an API client for the ping and health probes,
// which are open endpoints and need no project.
func GetDiagnosticsClient() *apiclient.Client {
	client := apiclient.New(resolveServer(), Flags.ProjectID)
	if token := resolveToken(); token != "" {
		client = client.WithToken(token)
	}
	return client
}

// GetOutputFormat returns the output format string.
func GetOutputFormat() string {
	return Flags.Output
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// PrintResourceWithSuccess prints a resource in the specified format.
// For table format, it displays a success message. For JSON/YAML, it outputs the resource.
// This is useful for create, update, and similar operations.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		PrintSuccess(successMsg)
		return nil
	}
}

// PrintResource prints a resource in the specified format.
// For table format, it uses the provided tableRenderer. For JSON/YAML, it outputs the resource.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// PrintNextMarker prints the pagination hint after a table listing when the
// server reported another page. JSON and YAML output stays machine-parseable,
// so the hint is table-only.
func PrintNextMarker(next string) {
	if next == "" {
		return
	}
	if format, err := GetOutputFormatParsed(); err != nil || format != output.FormatTable {
		return
	}
	fmt.Printf("\nMore results available. Continue with --marker %s\n", next)
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatInt renders an int64 for table display.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FormatBytes renders a byte count in human-readable form, e.g. "1.50MiB".
func FormatBytes(n int64) string {
	return bytesize.ByteSize(n).String()
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
