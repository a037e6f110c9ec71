package compression

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
)

// NewWriter returns an io.WriteCloser that wraps w with the requested compression.
// Supported: "gzip", "bzip2", "zstd", or "" (no compression).
func NewWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case "gzip":
		return gzip.NewWriter(w), nil
	case "bzip2":
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			return nil, err
		}
		return bw, nil
	case "zstd":
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return zw, nil
	case "", "none":
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// NewReader returns a reader that decompresses r with the matching scheme.
// Callers must Close it; the zstd decoder in particular holds worker
// goroutines until closed.
func NewReader(r io.Reader, compression string) (io.ReadCloser, error) {
	switch compression {
	case "gzip":
		return gzip.NewReader(r)
	case "bzip2":
		return bzip2.NewReader(r, nil)
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case "", "none":
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// SchemeForPath maps a file extension to the compression scheme NewReader
// expects; unsuffixed paths get "" (plain).
func SchemeForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return "gzip"
	case strings.HasSuffix(path, ".bz2"):
		return "bzip2"
	case strings.HasSuffix(path, ".zst"):
		return "zstd"
	}
	return ""
}
