package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stockslurp/stockslurp/internal/compression"
	"github.com/stockslurp/stockslurp/internal/udf"
)

func fileWorker(
	ctx context.Context,
	db *sql.DB,
	jobs <-chan InsertJob,
	batchSize int,
	wg *sync.WaitGroup,
	logStatEvery int64,
	metrics *StockloadMetrics,
	doneDir string,
	mapping string,
	watcher *WatcherConfig,
) {
	defer wg.Done()

	for job := range jobs {
		err := processFileJob(ctx, db, job, batchSize, logStatEvery, metrics, mapping)
		if err != nil {
			// The path stays in the seen set so a poison file is not
			// re-enqueued every poll.
			log.Printf("[error] processing file %s: %v", job.Path, err)
			metrics.IncFailed()
			continue
		}

		// Clean up the file after successful processing
		if doneDir != "" {
			dest := filepath.Join(doneDir, filepath.Base(job.Path))
			if err := os.Rename(job.Path, dest); err != nil {
				log.Printf("[error] failed to move %s to done dir: %v", job.Path, err)
			}
		} else {
			if err := os.Remove(job.Path); err != nil {
				log.Printf("[error] failed to delete %s after processing: %v", job.Path, err)
			}
		}
		// The path is free again, so a future file under the same name
		// gets picked up.
		if watcher != nil {
			watcher.RemoveSeen(job.Path)
		}
	}
}

func processFileJob(
	ctx context.Context,
	db *sql.DB,
	job InsertJob,
	batchSize int,
	logStatEvery int64,
	metrics *StockloadMetrics,
	mapping string,
) error {
	transform, err := udf.ForName(mapping)
	if err != nil {
		return err
	}

	ticker, err := tickerFromFilename(job.Name)
	if err != nil {
		return err
	}

	f, err := os.Open(job.Path)
	if err != nil {
		return fmt.Errorf("open failed: %w", err)
	}
	defer f.Close()

	scheme := compression.SchemeForPath(job.Path)
	reader, err := compression.NewReader(f, scheme)
	if err != nil {
		return fmt.Errorf("%s reader: %w", scheme, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	batch := make([]OHLCVRow, 0, batchSize)
	var totalRows int64

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || isHeaderLine(line) {
			continue
		}

		var row OHLCVRow
		if err := json.Unmarshal([]byte(transform.Transform(line)), &row); err != nil {
			log.Printf("[warn] bad row in %s: %v", job.Path, err)
			continue
		}
		batch = append(batch, row)
		totalRows++

		if len(batch) >= batchSize {
			if err := insertBatch(ctx, db, ticker, job.Name, batch, logStatEvery, metrics); err != nil {
				return fmt.Errorf("insert batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	if len(batch) > 0 {
		if err := insertBatch(ctx, db, ticker, job.Name, batch, logStatEvery, metrics); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	}

	if err := recordLoadHistory(ctx, db, job.Name, totalRows); err != nil {
		log.Printf("[warn] could not record load history for %s: %v", job.Name, err)
	}
	return nil
}

// tickerFromFilename derives the ticker symbol from the upstream output
// naming convention {TICKER}_{timestamp}.csv[.gz|.bz2|.zst].
func tickerFromFilename(name string) (string, error) {
	base := filepath.Base(name)
	idx := strings.Index(base, "_")
	if idx <= 0 {
		return "", fmt.Errorf("cannot derive ticker from filename %q", name)
	}
	return base[:idx], nil
}

// isHeaderLine detects a CSV header row by its first token. Output files
// normally carry data rows only, but jobs configured with a csv transformer
// header option repeat the header per chunk.
func isHeaderLine(line string) bool {
	first := line
	if i := strings.Index(line, ","); i >= 0 {
		first = line[:i]
	}
	switch first {
	case "Index", "Date":
		return true
	}
	return false
}
