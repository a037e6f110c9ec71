package compression

import (
	"io"
	"testing"

	"github.com/stockslurp/stockslurp/internal/testutil"
)

func roundTrip(t *testing.T, scheme string) {
	t.Helper()
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, scheme)
	if err != nil {
		t.Fatalf("NewWriter %s: %v", scheme, err)
	}
	original := []byte("2020-01-01,100.0,101.0,99.0,100.5,15000\n")
	if _, err := w.Write(original); err != nil {
		t.Fatalf("Write %s: %v", scheme, err)
	}
	w.Close()

	r, err := NewReader(&buf, scheme)
	if err != nil {
		t.Fatalf("NewReader %s: %v", scheme, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll %s: %v", scheme, err)
	}
	if string(out) != string(original) {
		t.Errorf("%s decompress mismatch: got %q, want %q", scheme, out, original)
	}
}

func TestNewWriter_Gzip(t *testing.T)  { roundTrip(t, "gzip") }
func TestNewWriter_Bzip2(t *testing.T) { roundTrip(t, "bzip2") }
func TestNewWriter_Zstd(t *testing.T)  { roundTrip(t, "zstd") }

func TestNewWriter_None(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	w, err := NewWriter(&buf, "none")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("uncompressed")
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	w.Close()
	if buf.String() != string(payload) {
		t.Errorf("none passthrough got %q", buf.String())
	}
}

func TestSchemeForPath(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"AAPL_20240102150405.csv.gz", "gzip"},
		{"AAPL_20240102150405.csv.bz2", "bzip2"},
		{"AAPL_20240102150405.csv.zst", "zstd"},
		{"AAPL_20240102150405.csv", ""},
	}
	for _, c := range cases {
		if got := SchemeForPath(c.path); got != c.want {
			t.Errorf("SchemeForPath(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestNewWriter_Unsupported(t *testing.T) {
	var buf testutil.WriteCloserBuffer
	if _, err := NewWriter(&buf, "lzma"); err == nil {
		t.Error("expected unsupported compression error")
	}
	if _, err := NewReader(&buf, "lzma"); err == nil {
		t.Error("expected unsupported compression error")
	}
}
