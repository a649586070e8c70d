package bytesize

import "testing"

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		// Plain byte counts
		{"0", 0, false},
		{"1024", 1024, false},
		{"1024B", 1024, false},
		{"1024b", 1024, false},

		// Decimal units
		{"1K", 1000, false},
		{"500KB", 500 * KB, false},
		{"100MB", 100 * MB, false},
		{"1GB", GB, false},
		{"2TB", 2 * TB, false},

		// Binary units
		{"1Ki", KiB, false},
		{"512KiB", 512 * KiB, false},
		{"4Mi", 4 * MiB, false},
		{"1GiB", GiB, false},
		{"1Ti", TiB, false},

		// Case and whitespace
		{"1gi", GiB, false},
		{"1GI", GiB, false},
		{"  1Gi", GiB, false},
		{"1Gi  ", GiB, false},
		{"1 Gi", GiB, false},

		// Fractions
		{"1.5Mi", ByteSize(1.5 * float64(MiB)), false},
		{"0.5Gi", 512 * MiB, false},

		// Errors
		{"", 0, true},
		{"   ", 0, true},
		{"1Xi", 0, true},
		{"-1Gi", 0, true},
		{"Gi", 0, true},
		{"garbage", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseByteSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("500KB")); err != nil {
		t.Fatalf("UnmarshalText(500KB) error = %v", err)
	}
	if b != 500*KB {
		t.Errorf("UnmarshalText(500KB) = %d, want %d", b, 500*KB)
	}

	if err := b.UnmarshalText([]byte("invalid")); err == nil {
		t.Error("UnmarshalText(invalid) expected error")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input ByteSize
		want  string
	}{
		{512, "512B"},
		{2 * KiB, "2.00KiB"},
		{100 * MiB, "100.00MiB"},
		{GiB, "1.00GiB"},
		{ByteSize(1.5 * float64(GiB)), "1.50GiB"},
		{2 * TiB, "2.00TiB"},
	}

	for _, tt := range tests {
		if got := tt.input.String(); got != tt.want {
			t.Errorf("ByteSize(%d).String() = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestInt64(t *testing.T) {
	if got := (500 * KB).Int64(); got != 500_000 {
		t.Errorf("Int64() = %d, want 500000", got)
	}
}
