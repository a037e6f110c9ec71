package worker

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"aapl", "AAPL", false},
		{" MSFT ", "MSFT", false},
		{"BRK.B", "BRK.B", false},
		{"^GSPC", "^GSPC", false},
		{"BF-B", "BF-B", false},
		{"", "", true},
		{"AA PL", "", true},
		{"../etc", "", true},
	}

	for _, tt := range tests {
		got, err := normalizeTicker(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeTicker(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("normalizeTicker(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestOutputBaseName(t *testing.T) {
	name := outputBaseName("AAPL", mustTime(t, "2020-01-02T15:04:05Z"))
	want := "AAPL/AAPL_20200102150405.csv"
	if name != want {
		t.Errorf("outputBaseName = %q, want %q", name, want)
	}
}
