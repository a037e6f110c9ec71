package extractor

import (
	"fmt"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/feed"
)

// Extractor turns one raw feed row into a field map for the transformer stage.
type Extractor interface {
	Extract(ctx *etl_core.Context, row *feed.Row) (map[string]interface{}, error)
}

var registry = make(map[string]Extractor)

func Register(name string, e Extractor) {
	registry[name] = e
}

func ForName(name string) (Extractor, error) {
	ext, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("extractor not found: %s", name)
	}
	return ext, nil
}
