package transformer

import (
	"fmt"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/udf"
)

type Transformer interface {
	Transform(ctx *etl_core.Context, data map[string]interface{}) ([]byte, error)

	// Header returns any leading bytes (e.g., header row, opening bracket, etc).
	// Should return nil/empty if not needed.
	Header(ctx *etl_core.Context) ([]byte, error)

	// Footer returns any trailing bytes (e.g., closing bracket, sentinel value, etc).
	// Should return nil/empty if not needed.
	Footer(ctx *etl_core.Context) ([]byte, error)
}

var registry = make(map[string]Transformer)

func Register(name string, t Transformer) {
	registry[name] = t
}

func ForName(name string) (Transformer, error) {
	tr, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("transformer not found: %s", name)
	}
	return tr, nil
}

// fieldsOption reads the ordered output field list from the transformer
// options, falling back to the job's udf mapping when unset.
func fieldsOption(ctx *etl_core.Context) []string {
	raw, _ := ctx.Spec.Options.Output.TransformerOptions["fields"].([]interface{})
	if len(raw) > 0 {
		fields := make([]string, 0, len(raw))
		for _, f := range raw {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	}
	mapping, err := udf.MappingForName(ctx.Spec.Options.Fetch.MappingName())
	if err != nil {
		return nil
	}
	return []string(mapping)
}

func missingOption(ctx *etl_core.Context) udf.Marker {
	if m, _ := ctx.Spec.Options.Output.TransformerOptions["missing"].(string); m == string(udf.MarkerUndefined) {
		return udf.MarkerUndefined
	}
	return udf.MarkerNull
}
