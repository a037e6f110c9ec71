// Package udf implements the line transform applied to raw OHLCV CSV records
// before they are loaded into the warehouse. It is the Go port of the
// javascript transform the Dataflow template used to run: split a line on
// commas, assign positional tokens to named attributes, serialize as a JSON
// object with keys in declared order.
package udf

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Marker selects what a LineTransformer emits for field positions the input
// line does not cover.
type Marker string

const (
	// MarkerNull emits JSON null for missing positions.
	MarkerNull Marker = "null"

	// MarkerUndefined emits the literal string "undefined", matching what the
	// legacy javascript runtime stringified for out-of-range array reads.
	// Only useful for byte parity with archives produced by the old pipeline.
	MarkerUndefined Marker = "undefined"
)

// FieldMapping is the ordered list of output key names assigned to positional
// input tokens.
type FieldMapping []string

// The two row shapes the ingestion side produces: with and without the
// leading positional index column.
var (
	OHLCVIndexed = FieldMapping{"Index", "Date", "Close", "High", "Low", "Open", "Volume"}
	OHLCV        = FieldMapping{"Date", "Close", "High", "Low", "Open", "Volume"}
)

// LineTransformer converts one comma-separated record into a JSON object
// string. It performs no trimming, no quoting, no type coercion, and never
// fails: short input yields the missing-value marker for uncovered keys,
// extra trailing tokens are dropped. Safe for concurrent use.
type LineTransformer struct {
	Fields  FieldMapping
	Missing Marker
}

// Transform maps the line's comma-separated tokens onto t.Fields in order and
// returns the serialized JSON object. Key order follows t.Fields exactly.
func (t *LineTransformer) Transform(line string) string {
	tokens := strings.Split(line, ",")
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, name := range t.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, name)
		buf.WriteByte(':')
		if i < len(tokens) {
			writeJSONString(buf, tokens[i])
		} else {
			buf.WriteString(t.missingValue())
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

func (t *LineTransformer) missingValue() string {
	if t.Missing == MarkerUndefined {
		return `"undefined"`
	}
	return "null"
}

// MarshalOrdered serializes values under the given field names, preserving
// declared key order. A nil value (field absent from the map) is rendered
// with the missing marker. Shared by LineTransformer and the jsonl
// transformer so the two output paths cannot drift.
func MarshalOrdered(fields []string, values map[string]interface{}, missing Marker) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, name := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, name)
		buf.WriteByte(':')
		val, ok := values[name]
		if !ok || val == nil {
			if missing == MarkerUndefined {
				buf.WriteString(`"undefined"`)
			} else {
				buf.WriteString("null")
			}
			continue
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s) // marshaling a string cannot fail
	buf.Write(b)
}
