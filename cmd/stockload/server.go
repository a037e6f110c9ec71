package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func StartHTTPServer(addr, inboxDir string, watcher *WatcherConfig, jobs chan<- InsertJob, metrics *StockloadMetrics) {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", uploadHandler(inboxDir, watcher, jobs))
	mux.HandleFunc("/metrics", metricsHandler(metrics))

	log.Printf("HTTP server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func metricsHandler(metrics *StockloadMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		processed, failed, rows, elapsed := metrics.Snapshot()
		type status struct {
			BatchesProcessed int64         `json:"batches_processed"`
			BatchesFailed    int64         `json:"batches_failed"`
			RowsLoaded       int64         `json:"rows_loaded"`
			Elapsed          time.Duration `json:"elapsed"`
		}
		s := status{BatchesProcessed: processed, BatchesFailed: failed, RowsLoaded: rows, Elapsed: elapsed}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func uploadHandler(inboxDir string, watcher *WatcherConfig, jobs chan<- InsertJob) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handleUpload(r, inboxDir, watcher, jobs)
		if err != nil {
			http.Error(w, "upload error: "+err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUpload(r *http.Request, inboxDir string, watcher *WatcherConfig, jobs chan<- InsertJob) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return errMethodNotAllowed
	}

	// The uploaded filename carries the ticker, so it must be preserved:
	// X-Source-Name: AAPL_20240102150405.csv
	name := filepath.Base(r.Header.Get("X-Source-Name"))
	if name == "" || name == "." {
		return errMissingSourceName
	}

	// Compression is detected from the file extension after upload, so only
	// tag the name when the client did not already include one.
	cenc := strings.ToLower(r.Header.Get("Content-Encoding"))
	switch {
	case strings.Contains(cenc, "gzip") && !strings.HasSuffix(name, ".gz"):
		name += ".gz"
	case strings.Contains(cenc, "bzip2") && !strings.HasSuffix(name, ".bz2"):
		name += ".bz2"
	case strings.Contains(cenc, "zstd") && !strings.HasSuffix(name, ".zst"):
		name += ".zst"
	}

	// Stage under a temp name so the watcher never sees a partial file
	tmp, err := os.CreateTemp(inboxDir, "upload-*")
	if err != nil {
		return err
	}
	defer tmp.Close()
	n, err := io.Copy(tmp, r.Body)
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}

	inboxPath := filepath.Join(inboxDir, name)
	if err := os.Rename(tmp.Name(), inboxPath); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	// The watcher polls the same directory; mark the upload seen before
	// enqueueing so it cannot produce a second job for the same file.
	if watcher != nil {
		watcher.AddSeen(inboxPath)
	}

	log.Printf("[upload] received %s (%d bytes)", inboxPath, n)
	jobs <- InsertJob{Name: name, Path: inboxPath}
	return nil
}
