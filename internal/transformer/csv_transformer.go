package transformer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/stockslurp/stockslurp/internal/etl_core"
)

type CSVTransformer struct{}

func (c *CSVTransformer) Transform(ctx *etl_core.Context, data map[string]interface{}) ([]byte, error) {
	fields := fieldsOption(ctx)
	if len(fields) == 0 {
		return nil, fmt.Errorf("CSV transformer requires fields option")
	}
	row := make([]string, len(fields))
	for i, key := range fields {
		val := data[key]
		if val == nil {
			row[i] = ""
		} else {
			row[i] = fmt.Sprintf("%v", val)
		}
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Header emits the column row only when the header_row option is set; the
// warehouse layout stores headerless files by default.
func (c *CSVTransformer) Header(ctx *etl_core.Context) ([]byte, error) {
	headerRow, _ := ctx.Spec.Options.Output.TransformerOptions["header_row"].(bool)
	if !headerRow {
		return []byte{}, nil
	}
	fields := fieldsOption(ctx)
	if len(fields) == 0 {
		return nil, fmt.Errorf("CSV transformer requires fields option for header")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (c *CSVTransformer) Footer(ctx *etl_core.Context) ([]byte, error) {
	return []byte{}, nil
}

func init() {
	Register("csv", &CSVTransformer{})
}
