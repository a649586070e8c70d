package timeutil

import (
	"testing"
	"time"
)

func TestFormatUnix(t *testing.T) {
	if got := FormatUnix(0); got != "-" {
		t.Errorf("FormatUnix(0) = %q, want %q", got, "-")
	}

	sec := int64(1405962557)
	want := time.Unix(sec, 0).Local().Format(LocalTimeFormat)
	if got := FormatUnix(sec); got != want {
		t.Errorf("FormatUnix(%d) = %q, want %q", sec, got, want)
	}
}
