// Package output renders deucectl command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how a command renders its result.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses the --output flag value. Empty means table; "yml" is
// accepted as YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
}

func (f Format) String() string {
	return string(f)
}

// Printer writes human-facing status lines, with ANSI colors when the
// terminal supports them. Structured results go through PrintJSON/PrintYAML/
// PrintTable instead.
type Printer struct {
	out   io.Writer
	color bool
}

// NewPrinter creates a Printer. The format argument is accepted for call-site
// symmetry with ParseFormat but colors only ever apply to table output.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, color: color && format == FormatTable}
}

// Success prints msg in green.
func (p *Printer) Success(msg string) {
	p.line("\033[32m", msg)
}

// Error prints msg in red.
func (p *Printer) Error(msg string) {
	p.line("\033[31m", msg)
}

// Println prints its arguments like fmt.Println, uncolored.
func (p *Printer) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

func (p *Printer) line(color, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s\033[0m\n", color, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
