package job

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stockslurp/stockslurp/internal/feed"
)

type JobSpec struct {
	Version string     `json:"version" yaml:"version"`
	Note    string     `json:"note,omitempty" yaml:"note"`
	Tickers []string   `json:"tickers" yaml:"tickers"`
	Options JobOptions `json:"options" yaml:"options"`
}

type JobOptions struct {
	Fetch  FetchConfig   `json:"fetch" yaml:"fetch"`
	Output OutputOptions `json:"output" yaml:"output"`
}

type FetchConfig struct {
	// Provider endpoint serving per-ticker CSV history.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// History window and candle interval, provider enums.
	Period   string `json:"period" yaml:"period"`
	Interval string `json:"interval" yaml:"interval"`

	// IncludeIndex prepends a positional row index to each emitted record,
	// producing the seven-column row shape instead of six.
	IncludeIndex bool `json:"include_index" yaml:"include_index"`

	// Seconds between provider calls and between retry attempts.
	RateLimitDelay int `json:"rate_limit_delay" yaml:"rate_limit_delay"`
	RetryAttempts  int `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay     int `json:"retry_delay" yaml:"retry_delay"`
}

type OutputOptions struct {
	ChunkRecords       int                    `json:"chunk_records" yaml:"chunk_records"`
	ChunkBytes         int                    `json:"chunk_bytes" yaml:"chunk_bytes"`
	Extractor          string                 `json:"extractor" yaml:"extractor"`
	ExtractorOptions   map[string]interface{} `json:"extractor_options" yaml:"extractor_options"`
	Transformer        string                 `json:"transformer" yaml:"transformer"`
	TransformerOptions map[string]interface{} `json:"transformer_options" yaml:"transformer_options"`
	Sink               string                 `json:"sink" yaml:"sink"`
	SinkOptions        map[string]interface{} `json:"sink_options" yaml:"sink_options"`
}

func (f FetchConfig) RetryDelayDuration() time.Duration {
	return time.Duration(f.RetryDelay) * time.Second
}

func (f FetchConfig) RateLimitDelayDuration() time.Duration {
	return time.Duration(f.RateLimitDelay) * time.Second
}

// MappingName returns the udf field mapping matching the row shape this job
// emits.
func (f FetchConfig) MappingName() string {
	if f.IncludeIndex {
		return "ohlcv_indexed"
	}
	return "ohlcv"
}

func LoadFromFile(path string) (*JobSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*JobSpec, error) {
	var js JobSpec
	dec := json.NewDecoder(r)
	if err := dec.Decode(&js); err != nil {
		return nil, err
	}
	if err := js.Validate(); err != nil {
		return nil, err
	}
	return &js, nil
}

func (j *JobSpec) Validate() error {
	var missing []string

	if j.Version == "" {
		missing = append(missing, "version")
	}
	if len(j.Tickers) == 0 {
		missing = append(missing, "tickers")
	}
	if j.Options.Fetch.Period == "" {
		missing = append(missing, "options.fetch.period")
	}
	if j.Options.Fetch.Interval == "" {
		missing = append(missing, "options.fetch.interval")
	}
	if j.Options.Output.Extractor == "" {
		missing = append(missing, "options.output.extractor")
	}
	if j.Options.Output.Transformer == "" {
		missing = append(missing, "options.output.transformer")
	}
	if j.Options.Output.Sink == "" {
		missing = append(missing, "options.output.sink")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing/invalid job fields: %s", strings.Join(missing, ", "))
	}

	if err := feed.ValidatePeriod(j.Options.Fetch.Period); err != nil {
		return err
	}
	return feed.ValidateInterval(j.Options.Fetch.Interval)
}
