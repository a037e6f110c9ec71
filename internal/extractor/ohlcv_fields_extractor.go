package extractor

import (
	"strings"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/feed"
	"github.com/stockslurp/stockslurp/internal/udf"
)

// OHLCVFieldsExtractor assigns the row's comma-separated tokens to named
// candle fields using a udf mapping. Positions the line does not cover are
// left absent so the transformer applies its missing-value policy; extra
// trailing tokens are dropped.
type OHLCVFieldsExtractor struct{}

func (e *OHLCVFieldsExtractor) Extract(ctx *etl_core.Context, row *feed.Row) (map[string]interface{}, error) {
	fields, err := e.mapping(ctx)
	if err != nil {
		return nil, err
	}
	tokens := strings.Split(row.Line, ",")
	out := make(map[string]interface{}, len(fields)+1)
	for i, name := range fields {
		if i < len(tokens) {
			out[name] = tokens[i]
		}
	}
	out["Ticker"] = row.Ticker
	return out, nil
}

// The mapping option overrides the default derived from the job's row shape.
func (e *OHLCVFieldsExtractor) mapping(ctx *etl_core.Context) (udf.FieldMapping, error) {
	name, _ := ctx.Spec.Options.Output.ExtractorOptions["mapping"].(string)
	if name == "" {
		name = ctx.Spec.Options.Fetch.MappingName()
	}
	return udf.MappingForName(name)
}

func init() {
	Register("ohlcv_fields", &OHLCVFieldsExtractor{})
}
