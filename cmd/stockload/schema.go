package main

import (
	"database/sql"
	"log"
	"strings"
)

// Value columns are TEXT on purpose: the upstream transform carries tokens
// through without type coercion, including markers like "null" and
// "undefined" from legacy archives. Typed views are built downstream.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS ohlcv_rows (
    id BIGSERIAL PRIMARY KEY,
    ticker TEXT NOT NULL,
    row_index TEXT,
    trade_date TEXT,
    close TEXT,
    high TEXT,
    low TEXT,
    open TEXT,
    volume TEXT,
    source_file TEXT NOT NULL,
    loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS load_history (
    id BIGSERIAL PRIMARY KEY,
    source_file TEXT NOT NULL UNIQUE,
    rows_loaded BIGINT NOT NULL,
    loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Indexes are run outside transaction because "CONCURRENTLY" is not allowed inside a transaction block.
var indexes = []string{
	`CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_ohlcv_rows_ticker ON ohlcv_rows(ticker);`,
	`CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_ohlcv_rows_trade_date ON ohlcv_rows(trade_date);`,
	`CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_ohlcv_rows_source_file ON ohlcv_rows(source_file);`,
}

func runInitDB(db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		s := strings.TrimSpace(stmt)
		if s == "" {
			continue
		}
		_, err := db.Exec(s)
		if err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		_, err := db.Exec(idx)
		if err != nil {
			log.Printf("index error (can ignore if already exists): %v\nSQL: %s", err, idx)
		}
	}
	return nil
}
