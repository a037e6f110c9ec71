package main

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/stockslurp/stockslurp/internal/compression"
)

var (
	errMethodNotAllowed  = errors.New("method not allowed")
	errMissingSourceName = errors.New("X-Source-Name header is required")
)

// getReader opens the archive (or stdin) and decompresses it with scheme
// ("gzip", "bzip2", "zstd", or "" for plain input).
func getReader(archivePath, scheme string) (*bufio.Reader, error) {
	var r io.Reader
	if archivePath == "" || archivePath == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(archivePath)
		if err != nil {
			return nil, err
		}
		r = file
	}
	cr, err := compression.NewReader(r, scheme)
	if err != nil {
		return nil, err
	}
	return bufio.NewReader(cr), nil
}
