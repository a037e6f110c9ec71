package transformer

import (
	"fmt"

	"github.com/stockslurp/stockslurp/internal/etl_core"
)

type PassthroughTransformer struct{}

func (p *PassthroughTransformer) Transform(ctx *etl_core.Context, data map[string]interface{}) ([]byte, error) {
	raw, ok := data["raw"].([]byte)
	if !ok {
		return nil, fmt.Errorf("passthrough transformer requires raw bytes from the extractor")
	}
	return append(raw, '\n'), nil
}

func (p *PassthroughTransformer) Header(ctx *etl_core.Context) ([]byte, error) {
	return []byte{}, nil
}

func (p *PassthroughTransformer) Footer(ctx *etl_core.Context) ([]byte, error) {
	return []byte{}, nil
}

func init() {
	Register("passthrough", &PassthroughTransformer{})
	Register("dummy", &PassthroughTransformer{})
}
