package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]int{"count": 3}); err != nil {
		t.Fatalf("PrintJSON() error = %v", err)
	}
	want := "{\n  \"count\": 3\n}\n"
	if buf.String() != want {
		t.Errorf("PrintJSON() = %q, want %q", buf.String(), want)
	}
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintYAML(&buf, map[string]string{"vault": "vault_A"}); err != nil {
		t.Fatalf("PrintYAML() error = %v", err)
	}
	if got := buf.String(); got != "vault: vault_A\n" {
		t.Errorf("PrintYAML() = %q", got)
	}
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("BLOCK ID", "SIZE")
	table.AddRow("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", "5")

	var buf bytes.Buffer
	if err := PrintTable(&buf, table); err != nil {
		t.Fatalf("PrintTable() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "BLOCK ID") {
		t.Errorf("table output missing header: %q", out)
	}
	if !strings.Contains(out, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d") {
		t.Errorf("table output missing row: %q", out)
	}
}

func TestPrinterColors(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatTable, true).Success("created")
	if got := buf.String(); got != "\033[32mcreated\033[0m\n" {
		t.Errorf("Success() with color = %q", got)
	}

	buf.Reset()
	NewPrinter(&buf, FormatTable, false).Error("failed")
	if got := buf.String(); got != "failed\n" {
		t.Errorf("Error() without color = %q", got)
	}
}
