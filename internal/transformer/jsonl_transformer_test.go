package transformer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLTransformer_OrderedOutput(t *testing.T) {
	tr, err := ForName("jsonl")
	if err != nil {
		t.Fatal(err)
	}
	ctx := makeCtx("Date", "Close", "Volume")
	input := map[string]interface{}{"Date": "2020-01-01", "Close": "100.5", "Volume": "15000"}

	out, err := tr.Transform(ctx, input)
	if err != nil {
		t.Fatal("jsonl.Transform error:", err)
	}
	want := `{"Date":"2020-01-01","Close":"100.5","Volume":"15000"}` + "\n"
	if string(out) != want {
		t.Errorf("jsonl.Transform got %q, want %q", out, want)
	}
}

func TestJSONLTransformer_MissingFields(t *testing.T) {
	tr, _ := ForName("jsonl")
	ctx := makeCtx("Date", "Close")
	out, err := tr.Transform(ctx, map[string]interface{}{"Date": "2020-01-01"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != `{"Date":"2020-01-01","Close":null}` {
		t.Errorf("got %q", out)
	}

	ctx.Spec.Options.Output.TransformerOptions["missing"] = "undefined"
	out, err = tr.Transform(ctx, map[string]interface{}{"Date": "2020-01-01"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != `{"Date":"2020-01-01","Close":"undefined"}` {
		t.Errorf("got %q", out)
	}
}

func TestJSONLTransformer_HeaderFooterEmpty(t *testing.T) {
	tr, _ := ForName("jsonl")
	ctx := makeCtx()
	header, err := tr.Header(ctx)
	if err != nil || len(header) != 0 {
		t.Fatalf("jsonl.Header got: %q, want empty", header)
	}
	footer, err := tr.Footer(ctx)
	if err != nil || len(footer) != 0 {
		t.Fatalf("jsonl.Footer got: %q, want empty", footer)
	}
}

func TestJSONLTransformer_ValidJSONPerLine(t *testing.T) {
	tr, _ := ForName("jsonl")
	ctx := makeCtx()
	out, err := tr.Transform(ctx, map[string]interface{}{
		"Date": "2020-01-01", "Close": "1", "High": "2", "Low": "3", "Open": "4", "Volume": "5",
	})
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("jsonl.Transform produced invalid JSON: %v", err)
	}
	if parsed["Date"] != "2020-01-01" || parsed["Volume"] != "5" {
		t.Errorf("unexpected content: %v", parsed)
	}
}
