package extractor

import (
	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/feed"
)

type DummyExtractor struct{}

func (e *DummyExtractor) Extract(ctx *etl_core.Context, row *feed.Row) (map[string]interface{}, error) {
	return map[string]interface{}{"raw": []byte(row.Line)}, nil
}

func init() {
	Register("dummy", &DummyExtractor{})
}
