package extractor

import (
	"testing"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/feed"
	"github.com/stockslurp/stockslurp/internal/job"
)

func makeCtx(includeIndex bool, extractorOpts map[string]interface{}) *etl_core.Context {
	return &etl_core.Context{
		Spec: &job.JobSpec{
			Version: "0.1.0",
			Tickers: []string{"AAPL"},
			Options: job.JobOptions{
				Fetch: job.FetchConfig{Period: "1y", Interval: "1d", IncludeIndex: includeIndex},
				Output: job.OutputOptions{
					ExtractorOptions: extractorOpts,
				},
			},
		},
	}
}

func TestOHLCVFieldsExtractor(t *testing.T) {
	ext, err := ForName("ohlcv_fields")
	if err != nil {
		t.Fatal(err)
	}
	row := &feed.Row{Ticker: "AAPL", Line: "2020-01-01,100.5,101.0,99.0,100.0,15000", Index: 0}
	out, err := ext.Extract(makeCtx(false, nil), row)
	if err != nil {
		t.Fatal(err)
	}
	if out["Date"] != "2020-01-01" || out["Close"] != "100.5" || out["Volume"] != "15000" {
		t.Errorf("unexpected fields: %v", out)
	}
	if out["Ticker"] != "AAPL" {
		t.Errorf("ticker not carried: %v", out["Ticker"])
	}
}

func TestOHLCVFieldsExtractor_IndexedShape(t *testing.T) {
	ext, _ := ForName("ohlcv_fields")
	row := &feed.Row{Ticker: "AAPL", Line: "3,2020-01-01,100.5,101.0,99.0,100.0,15000"}
	out, err := ext.Extract(makeCtx(true, nil), row)
	if err != nil {
		t.Fatal(err)
	}
	if out["Index"] != "3" || out["Date"] != "2020-01-01" {
		t.Errorf("unexpected fields: %v", out)
	}
}

func TestOHLCVFieldsExtractor_ShortLine(t *testing.T) {
	ext, _ := ForName("ohlcv_fields")
	row := &feed.Row{Ticker: "AAPL", Line: "2020-01-01,100.5"}
	out, err := ext.Extract(makeCtx(false, nil), row)
	if err != nil {
		t.Fatal(err)
	}
	if out["Date"] != "2020-01-01" || out["Close"] != "100.5" {
		t.Errorf("populated fields wrong: %v", out)
	}
	if _, ok := out["High"]; ok {
		t.Error("High should be absent for short line")
	}
}

func TestOHLCVFieldsExtractor_MappingOverride(t *testing.T) {
	ext, _ := ForName("ohlcv_fields")
	opts := map[string]interface{}{"mapping": "ohlcv_indexed"}
	row := &feed.Row{Ticker: "AAPL", Line: "7,2020-01-01,1,2,3,4,5"}
	out, err := ext.Extract(makeCtx(false, opts), row)
	if err != nil {
		t.Fatal(err)
	}
	if out["Index"] != "7" {
		t.Errorf("mapping override not applied: %v", out)
	}

	opts["mapping"] = "bogus"
	if _, err := ext.Extract(makeCtx(false, opts), row); err == nil {
		t.Error("expected error for unknown mapping")
	}
}

func TestRawExtractor(t *testing.T) {
	ext, err := ForName("raw")
	if err != nil {
		t.Fatal(err)
	}
	row := &feed.Row{Ticker: "AAPL", Line: "anything,goes"}
	out, err := ext.Extract(makeCtx(false, nil), row)
	if err != nil {
		t.Fatal(err)
	}
	if string(out["raw"].([]byte)) != "anything,goes" {
		t.Errorf("raw extract wrong: %v", out)
	}
}

func TestExtractorFactoryErrors(t *testing.T) {
	if _, err := ForName("notexist"); err == nil {
		t.Error("ForName should error for unknown extractor")
	}
}
