package transformer

import (
	"bytes"
	"encoding/json"

	"github.com/stockslurp/stockslurp/internal/etl_core"
	"github.com/stockslurp/stockslurp/internal/udf"
)

// JSONLTransformer writes one JSON object per record. With a field list in
// play (the usual case) keys appear in declared order and absent fields get
// the configured missing marker, byte-identical to what the loader-side udf
// produces for the same row.
type JSONLTransformer struct{}

func (j *JSONLTransformer) Transform(ctx *etl_core.Context, data map[string]interface{}) ([]byte, error) {
	if fields := fieldsOption(ctx); len(fields) > 0 {
		out, err := udf.MarshalOrdered(fields, data, missingOption(ctx))
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (j *JSONLTransformer) Header(ctx *etl_core.Context) ([]byte, error) {
	return []byte{}, nil
}

func (j *JSONLTransformer) Footer(ctx *etl_core.Context) ([]byte, error) {
	return []byte{}, nil
}

func init() {
	Register("jsonl", &JSONLTransformer{})
}
