package extractor

import (
	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/feed"
)

// RawExtractor passes the line through untouched for passthrough pipelines.
type RawExtractor struct{}

func (e *RawExtractor) Extract(ctx *etl_core.Context, row *feed.Row) (map[string]interface{}, error) {
	return map[string]interface{}{"raw": []byte(row.Line)}, nil
}

func init() {
	Register("raw", &RawExtractor{})
}
