package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"
)

type InsertJob struct {
	Name string // e.g. filename or upload-id (for logging)
	Path string // Full path to file
}

// OHLCVRow mirrors the JSON object shape the udf transform emits for one CSV
// record. All values are strings; missing positions decode as nil.
type OHLCVRow struct {
	Index  *string `json:"Index"`
	Date   *string `json:"Date"`
	Close  *string `json:"Close"`
	High   *string `json:"High"`
	Low    *string `json:"Low"`
	Open   *string `json:"Open"`
	Volume *string `json:"Volume"`
}

func insertBatch(
	ctx context.Context,
	db *sql.DB,
	ticker string,
	sourceFile string,
	batch []OHLCVRow,
	logStatEvery int64,
	metrics *StockloadMetrics,
) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		metrics.IncFailed()
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(pq.CopyIn(
		"ohlcv_rows",
		"ticker", "row_index", "trade_date", "close", "high", "low", "open", "volume", "source_file",
	))
	if err != nil {
		return fmt.Errorf("prepare COPY: %w", err)
	}

	for _, row := range batch {
		_, err = stmt.Exec(
			ticker,
			nullableString(row.Index),
			nullableString(row.Date),
			nullableString(row.Close),
			nullableString(row.High),
			nullableString(row.Low),
			nullableString(row.Open),
			nullableString(row.Volume),
			sourceFile,
		)
		if err != nil {
			return fmt.Errorf("COPY exec: %w", err)
		}
	}
	_, err = stmt.Exec()
	if err != nil {
		return fmt.Errorf("COPY exec flush: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("COPY close: %w", err)
	}

	if err = tx.Commit(); err != nil {
		metrics.IncFailed()
		return fmt.Errorf("commit: %w", err)
	}

	metrics.AddRows(int64(len(batch)))
	if logStatEvery > 0 {
		n := metrics.IncProcessed()
		if n%logStatEvery == 0 {
			log.Printf("[progress] %s", metrics)
		}
	} else {
		metrics.IncProcessed()
	}

	return nil
}

func recordLoadHistory(ctx context.Context, db *sql.DB, sourceFile string, rows int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO load_history (source_file, rows_loaded) VALUES ($1, $2)
		 ON CONFLICT (source_file) DO UPDATE SET rows_loaded = load_history.rows_loaded + EXCLUDED.rows_loaded, loaded_at = now()`,
		sourceFile, rows)
	return err
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
