package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

/*
To run the integration tests, you'll need a running PostgreSQL instance.
The easiest way is to use Docker to spin up a disposable container:

    docker run --rm \
      -e POSTGRES_USER=stockload \
      -e POSTGRES_PASSWORD=stockload \
      -e POSTGRES_DB=stockload_test \
      -p 5433:5432 \
      --name stockload-test-postgres \
      postgres:latest

Then set the environment variable so the tests connect to this instance:

    export TEST_DATABASE_DSN="host=localhost port=5433 user=stockload password=stockload dbname=stockload_test sslmode=disable"

Tests that need the database are skipped when TEST_DATABASE_DSN is unset.
*/

const testData = `2024-01-02,185.64,186.95,183.89,184.22,58414500
2024-01-03,184.25,185.88,183.43,184.35,71983600
2024-01-04,181.91,183.09,180.88,182.15,1.02e+08`

func setupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, runInitDB(db))
	return db
}

func teardownTestDB(t *testing.T, db *sql.DB) {
	_, err := db.Exec(`TRUNCATE ohlcv_rows, load_history RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	db.Close()
}

func compressGzip(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(data)
	w.Close()
	return buf.Bytes()
}

func writeTestFile(t *testing.T, dir, name, ext, data string) string {
	path := filepath.Join(dir, name+ext)
	switch ext {
	case ".csv":
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	case ".csv.gz":
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())
	case ".csv.bz2":
		f, err := os.Create(path)
		require.NoError(t, err)
		bz, err := bzip2.NewWriter(f, nil)
		require.NoError(t, err)
		_, err = bz.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, bz.Close())
		require.NoError(t, f.Close())
	case ".csv.zst":
		f, err := os.Create(path)
		require.NoError(t, err)
		zw, err := zstd.NewWriter(f)
		require.NoError(t, err)
		_, err = zw.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())
	}
	return path
}

func TestTickerFromFilename(t *testing.T) {
	cases := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"AAPL_20240102150405.csv", "AAPL", false},
		{"BRK.B_20240102150405.csv.gz", "BRK.B", false},
		{"^GSPC_20240102150405.csv.bz2", "^GSPC", false},
		{"noseparator.csv", "", true},
		{"_leading.csv", "", true},
	}
	for _, tc := range cases {
		got, err := tickerFromFilename(tc.name)
		if tc.wantErr {
			require.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, got, tc.name)
	}
}

func TestIsHeaderLine(t *testing.T) {
	require.True(t, isHeaderLine("Date,Close,High,Low,Open,Volume"))
	require.True(t, isHeaderLine("Index,Date,Close,High,Low,Open,Volume"))
	require.False(t, isHeaderLine("2024-01-02,185.64,186.95,183.89,184.22,58414500"))
	require.False(t, isHeaderLine(""))
}

func TestListMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "AAPL_1", ".csv", testData)
	writeTestFile(t, dir, "MSFT_1", ".csv.gz", testData)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	files, err := listMatchingFiles(dir, []string{"*.csv", "*.csv.gz"})
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestInsertBatch(t *testing.T) {
	db := setupTestDB(t)
	defer teardownTestDB(t, db)

	date := "2024-01-02"
	closePx := "185.64"
	row := OHLCVRow{Date: &date, Close: &closePx}
	metrics := NewStockloadMetrics()
	err := insertBatch(context.Background(), db, "AAPL", "AAPL_20240102150405.csv",
		[]OHLCVRow{row}, 0, metrics)
	require.NoError(t, err)

	var got string
	err = db.QueryRow(`SELECT close FROM ohlcv_rows WHERE ticker = $1 AND trade_date = $2`,
		"AAPL", "2024-01-02").Scan(&got)
	require.NoError(t, err)
	require.Equal(t, "185.64", got)

	processed, failed, rows, _ := metrics.Snapshot()
	require.Equal(t, int64(1), processed)
	require.Equal(t, int64(0), failed)
	require.Equal(t, int64(1), rows)
}

func TestProcessFileJob_CompressionFormats(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".csv", ".csv.gz", ".csv.bz2", ".csv.zst"} {
		t.Run(ext, func(t *testing.T) {
			db := setupTestDB(t)
			defer teardownTestDB(t, db)
			path := writeTestFile(t, dir, "AAPL_20240102150405", ext, testData)
			metrics := NewStockloadMetrics()
			job := InsertJob{Name: filepath.Base(path), Path: path}
			err := processFileJob(context.Background(), db, job, 10, 0, metrics, "ohlcv")
			require.NoError(t, err)
			var count int
			require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ohlcv_rows`).Scan(&count))
			require.Equal(t, 3, count)

			var loaded int64
			require.NoError(t, db.QueryRow(`SELECT rows_loaded FROM load_history WHERE source_file = $1`,
				job.Name).Scan(&loaded))
			require.Equal(t, int64(3), loaded)
		})
	}
}

func TestProcessFileJob_IndexedMapping(t *testing.T) {
	db := setupTestDB(t)
	defer teardownTestDB(t, db)

	indexed := "0,2024-01-02,185.64,186.95,183.89,184.22,58414500\n" +
		"1,2024-01-03,184.25,185.88,183.43,184.35,71983600\n"
	path := writeTestFile(t, t.TempDir(), "MSFT_20240102150405", ".csv", indexed)
	metrics := NewStockloadMetrics()
	job := InsertJob{Name: filepath.Base(path), Path: path}
	require.NoError(t, processFileJob(context.Background(), db, job, 10, 0, metrics, "ohlcv_indexed"))

	var idx string
	err := db.QueryRow(`SELECT row_index FROM ohlcv_rows WHERE ticker = $1 AND trade_date = $2`,
		"MSFT", "2024-01-03").Scan(&idx)
	require.NoError(t, err)
	require.Equal(t, "1", idx)
}

func TestUploadHandler(t *testing.T) {
	inboxDir := t.TempDir()
	jobs := make(chan InsertJob, 1)
	srv := httptest.NewServer(uploadHandler(inboxDir, nil, jobs))
	defer srv.Close()

	req, err := http.NewRequest("POST", srv.URL+"/upload", bytes.NewReader([]byte(testData)))
	require.NoError(t, err)
	req.Header.Set("X-Source-Name", "AAPL_20240102150405.csv")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var job InsertJob
	select {
	case job = <-jobs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for insert job")
	}
	require.Equal(t, "AAPL_20240102150405.csv", job.Name)

	b, err := os.ReadFile(job.Path)
	require.NoError(t, err)
	require.Equal(t, testData, string(b))
}

func TestUploadHandler_MissingSourceName(t *testing.T) {
	inboxDir := t.TempDir()
	jobs := make(chan InsertJob, 1)
	srv := httptest.NewServer(uploadHandler(inboxDir, nil, jobs))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/upload", "text/csv", bytes.NewReader([]byte(testData)))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadHandler_GzipNaming(t *testing.T) {
	inboxDir := t.TempDir()
	jobs := make(chan InsertJob, 1)
	srv := httptest.NewServer(uploadHandler(inboxDir, nil, jobs))
	defer srv.Close()

	req, err := http.NewRequest("POST", srv.URL+"/upload", bytes.NewReader(compressGzip([]byte(testData))))
	require.NoError(t, err)
	req.Header.Set("X-Source-Name", "GOOG_20240102150405.csv")
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	job := <-jobs
	require.Equal(t, "GOOG_20240102150405.csv.gz", job.Name)
}

func TestInboxWatcher_Workers_E2E(t *testing.T) {
	db := setupTestDB(t)
	defer teardownTestDB(t, db)

	inboxDir := t.TempDir()
	writeTestFile(t, inboxDir, "AAPL_20240102150405", ".csv", testData+"\n")

	jobs := make(chan InsertJob, 2)
	stop := make(chan struct{})

	cfg := NewWatcherConfig(inboxDir, "", []string{"*.csv"}, 100*time.Millisecond)
	go StartInboxWatcher(cfg, jobs, stop)

	metrics := NewStockloadMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go fileWorker(context.Background(), db, jobs, 10, &wg, 0, metrics, "", "ohlcv", cfg)
	}

	time.Sleep(300 * time.Millisecond) // let watcher find files
	close(stop)
	time.Sleep(100 * time.Millisecond)
	close(jobs)
	wg.Wait()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ohlcv_rows`).Scan(&count))
	require.Equal(t, 3, count)

	// Worker deletes the file when no done dir is configured
	files, err := listMatchingFiles(inboxDir, []string{"*.csv"})
	require.NoError(t, err)
	require.Empty(t, files)
}

// An upload into a watched inbox must produce exactly one insert job: the
// handler marks the file seen before enqueueing, so the watcher skips it.
func TestUploadIntoWatchedInbox_SingleJob(t *testing.T) {
	inboxDir := t.TempDir()
	jobs := make(chan InsertJob, 4)
	stop := make(chan struct{})
	defer close(stop)

	cfg := NewWatcherConfig(inboxDir, "", []string{"*.csv", "*.csv.gz"}, 50*time.Millisecond)
	go StartInboxWatcher(cfg, jobs, stop)

	srv := httptest.NewServer(uploadHandler(inboxDir, cfg, jobs))
	defer srv.Close()

	req, err := http.NewRequest("POST", srv.URL+"/upload", bytes.NewReader([]byte(testData)))
	require.NoError(t, err)
	req.Header.Set("X-Source-Name", "AAPL_20240102150405.csv")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Give the watcher several poll cycles to (wrongly) re-enqueue.
	deadline := time.After(400 * time.Millisecond)
	var got []InsertJob
collect:
	for {
		select {
		case job := <-jobs:
			got = append(got, job)
		case <-deadline:
			break collect
		}
	}
	require.Len(t, got, 1)
	require.Equal(t, "AAPL_20240102150405.csv", got[0].Name)
}

// After a worker finishes a file and clears it from the seen set, a new file
// arriving under the same name is queued again.
func TestInboxWatcher_RequeueAfterRemoveSeen(t *testing.T) {
	inboxDir := t.TempDir()
	jobs := make(chan InsertJob, 2)
	stop := make(chan struct{})
	defer close(stop)

	cfg := NewWatcherConfig(inboxDir, "", []string{"*.csv"}, 50*time.Millisecond)
	path := writeTestFile(t, inboxDir, "AAPL_20240102150405", ".csv", testData)
	go StartInboxWatcher(cfg, jobs, stop)

	var first InsertJob
	select {
	case first = <-jobs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first job")
	}
	require.Equal(t, path, first.Path)

	// Simulate the worker finishing: remove the file, clear the seen entry,
	// then drop a fresh file under the same name.
	require.NoError(t, os.Remove(path))
	cfg.RemoveSeen(path)
	writeTestFile(t, inboxDir, "AAPL_20240102150405", ".csv", testData)

	select {
	case second := <-jobs:
		require.Equal(t, path, second.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for requeued job")
	}
}
