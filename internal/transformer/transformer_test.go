package transformer

import (
	"testing"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/job"
)

// makeCtx builds an etl_core.Context with the given transformer options.
func makeCtx(fields ...string) *etl_core.Context {
	transformerOptions := map[string]interface{}{}
	if len(fields) > 0 {
		fs := make([]interface{}, len(fields))
		for i, f := range fields {
			fs[i] = f
		}
		transformerOptions["fields"] = fs
	}
	return &etl_core.Context{
		Spec: &job.JobSpec{
			Version: "0.1.0",
			Tickers: []string{"AAPL"},
			Options: job.JobOptions{
				Fetch: job.FetchConfig{Period: "1y", Interval: "1d"},
				Output: job.OutputOptions{
					TransformerOptions: transformerOptions,
				},
			},
		},
	}
}

func TestTransformerFactoryErrors(t *testing.T) {
	if _, err := ForName("notexist"); err == nil {
		t.Error("ForName should error for unknown transformer")
	}
}

func TestFieldsOption_FallsBackToJobMapping(t *testing.T) {
	ctx := makeCtx()
	fields := fieldsOption(ctx)
	want := []string{"Date", "Close", "High", "Low", "Open", "Volume"}
	if len(fields) != len(want) {
		t.Fatalf("fields %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}
