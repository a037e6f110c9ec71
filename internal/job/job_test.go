package job

import (
	"strings"
	"testing"
)

func TestJobLoadAndValidate(t *testing.T) {
	const minimal = `{
		"version": "0.1.0",
		"tickers": ["AAPL", "TATAMOTORS.NS"],
		"options": {
			"fetch": {"period": "3y", "interval": "1d", "retry_attempts": 3, "retry_delay": 5},
			"output": {
				"extractor": "ohlcv_fields",
				"transformer": "jsonl",
				"sink": "disk",
				"sink_options": {"path": "/tmp/out"}
			}
		}
	}`
	job, err := Load(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Version != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %q", job.Version)
	}
	if len(job.Tickers) != 2 {
		t.Errorf("expected 2 tickers, got %d", len(job.Tickers))
	}
	if job.Options.Fetch.MappingName() != "ohlcv" {
		t.Errorf("expected default mapping ohlcv, got %q", job.Options.Fetch.MappingName())
	}
}

func TestJobLoad_MissingFields(t *testing.T) {
	const missing = `{
		"options": {
			"fetch": {},
			"output": {}
		}
	}`
	_, err := Load(strings.NewReader(missing))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	t.Logf("got expected error: %v", err)
}

func TestJobLoad_BadPeriod(t *testing.T) {
	const bad = `{
		"version": "0.1.0",
		"tickers": ["AAPL"],
		"options": {
			"fetch": {"period": "4y", "interval": "1d"},
			"output": {"extractor": "raw", "transformer": "passthrough", "sink": "null"}
		}
	}`
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Fatal("expected period validation error")
	}
}

func TestMappingName_IncludeIndex(t *testing.T) {
	cfg := FetchConfig{IncludeIndex: true}
	if cfg.MappingName() != "ohlcv_indexed" {
		t.Errorf("got %q", cfg.MappingName())
	}
}
