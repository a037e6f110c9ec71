package udf

import "fmt"

var registry = make(map[string]*LineTransformer)

func Register(name string, t *LineTransformer) {
	registry[name] = t
}

// ForName returns the named transform configuration. External callers (the
// loader, job specs) select "ohlcv" or "ohlcv_indexed" depending on whether
// their input carries the leading index column.
func ForName(name string) (*LineTransformer, error) {
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("udf mapping not found: %s", name)
	}
	return t, nil
}

// MappingForName returns just the field list for a registered configuration.
func MappingForName(name string) (FieldMapping, error) {
	t, err := ForName(name)
	if err != nil {
		return nil, err
	}
	return t.Fields, nil
}

func init() {
	Register("ohlcv", &LineTransformer{Fields: OHLCV, Missing: MarkerNull})
	Register("ohlcv_indexed", &LineTransformer{Fields: OHLCVIndexed, Missing: MarkerNull})
}
