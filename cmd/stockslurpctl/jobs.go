package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stockslurp/stockslurp/internal/job"
	"gopkg.in/yaml.v3"
)

func jobTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print an example job spec YAML",
		Run: func(cmd *cobra.Command, args []string) {
			tmpl := job.JobSpec{
				Version: "1.0.0",
				Note:    "Example market history job",
				Tickers: []string{"AAPL", "MSFT", "GOOG"},
				Options: job.JobOptions{
					Fetch: job.FetchConfig{
						BaseURL:        "https://query1.finance.example.com/v7/finance/download",
						Period:         "1y",
						Interval:       "1d",
						IncludeIndex:   false,
						RateLimitDelay: 1,
						RetryAttempts:  3,
						RetryDelay:     5,
					},
					Output: job.OutputOptions{
						Extractor:   "ohlcv_fields",
						Transformer: "jsonl",
						Sink:        "disk",
						SinkOptions: map[string]interface{}{
							"path": "/var/lib/stockslurp/out",
						},
					},
				},
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			_ = enc.Encode(&tmpl)
		},
	}
}

func jobSubmitCmd() *cobra.Command {
	var (
		dryRun bool
		file   string
		// JobSpec fields
		version string
		note    string
		tickers []string
		// FetchConfig
		baseURL        string
		period         string
		interval       string
		includeIndex   bool
		rateLimitDelay int
		retryAttempts  int
		retryDelay     int
		// OutputOptions
		chunkRecords          int
		chunkBytes            int
		extractor             string
		transformer           string
		sink                  string
		extractorOptionsStr   string
		transformerOptionsStr string
		sinkOptionsStr        string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new job (via YAML or CLI flags)",
		Long: `You can submit a job by:
  - providing a YAML/JSON spec with --file,
  - or using flags.
To generate a template: stockslurpctl job template`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client := cliClient()
			var spec job.JobSpec

			switch {
			case file != "":
				// YAML/JSON file
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				dec := yaml.NewDecoder(f)
				if err := dec.Decode(&spec); err != nil {
					// Try JSON fallback
					f.Seek(0, io.SeekStart)
					jdec := json.NewDecoder(f)
					if jerr := jdec.Decode(&spec); jerr != nil {
						return fmt.Errorf("decode spec %s: YAML error: %v; JSON error: %v", file, err, jerr)
					}
				}
			default:
				// CLI flags
				spec.Version = version
				spec.Note = note
				for _, t := range tickers {
					t = strings.TrimSpace(t)
					if t != "" {
						spec.Tickers = append(spec.Tickers, t)
					}
				}
				spec.Options.Fetch.BaseURL = baseURL
				spec.Options.Fetch.Period = period
				spec.Options.Fetch.Interval = interval
				spec.Options.Fetch.IncludeIndex = includeIndex
				spec.Options.Fetch.RateLimitDelay = rateLimitDelay
				spec.Options.Fetch.RetryAttempts = retryAttempts
				spec.Options.Fetch.RetryDelay = retryDelay

				spec.Options.Output.ChunkRecords = chunkRecords
				spec.Options.Output.ChunkBytes = chunkBytes
				spec.Options.Output.Extractor = extractor
				spec.Options.Output.Transformer = transformer
				spec.Options.Output.Sink = sink

				extractorOpts, err := parseOptions(extractorOptionsStr)
				if err != nil {
					return fmt.Errorf("extractor-options invalid JSON (%q): %w", extractorOptionsStr, err)
				}

				transformerOpts, err := parseOptions(transformerOptionsStr)
				if err != nil {
					return fmt.Errorf("transformer-options invalid JSON (%q): %w", transformerOptionsStr, err)
				}

				sinkOpts, err := parseOptions(sinkOptionsStr)
				if err != nil {
					return fmt.Errorf("sink-options invalid JSON (%q): %w", sinkOptionsStr, err)
				}

				spec.Options.Output.ExtractorOptions = extractorOpts
				spec.Options.Output.TransformerOptions = transformerOpts
				spec.Options.Output.SinkOptions = sinkOpts
			}

			if err := spec.Validate(); err != nil {
				return fmt.Errorf("job spec validation failed: %w", err)
			}

			if dryRun {
				fmt.Println("# JobSpec (YAML preview, not submitted):")
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				if err := enc.Encode(&spec); err != nil {
					return fmt.Errorf("error encoding YAML: %w", err)
				}
				return nil
			}

			jobID, err := client.SubmitJob(ctx, &spec)
			if err != nil {
				return err
			}

			fmt.Printf("Job submitted: %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print job spec without submitting")
	cmd.Flags().StringVar(&file, "file", "", "Job spec YAML/JSON file")

	// JobSpec flags
	cmd.Flags().StringVar(&version, "version", "1.0.0", "Job spec version")
	cmd.Flags().StringVar(&note, "note", "", "Job note")
	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "Ticker symbols (comma separated)")

	// FetchConfig
	cmd.Flags().StringVar(&baseURL, "base-url", "", "History provider base URL")
	cmd.Flags().StringVar(&period, "period", "1y", "History window (1d..10y, ytd, max)")
	cmd.Flags().StringVar(&interval, "interval", "1d", "Candle interval (1m..3mo)")
	cmd.Flags().BoolVar(&includeIndex, "include-index", false, "Prepend a positional row index to each record")
	cmd.Flags().IntVar(&rateLimitDelay, "rate-limit-delay", 1, "Seconds between provider calls")
	cmd.Flags().IntVar(&retryAttempts, "retry-attempts", 3, "Fetch retry attempts")
	cmd.Flags().IntVar(&retryDelay, "retry-delay", 5, "Seconds between fetch retries")

	// OutputOptions
	cmd.Flags().IntVar(&chunkRecords, "chunk-records", 0, "Chunk size (records)")
	cmd.Flags().IntVar(&chunkBytes, "chunk-bytes", 0, "Chunk size (bytes)")
	cmd.Flags().StringVar(&extractor, "extractor", "ohlcv_fields", "Extractor")
	cmd.Flags().StringVar(&transformer, "transformer", "jsonl", "Transformer")
	cmd.Flags().StringVar(&sink, "sink", "null", "Sink")
	cmd.Flags().StringVar(&extractorOptionsStr, "extractor-options", "", "Extractor options as JSON (e.g., '{\"foo\": \"bar\"}')")
	cmd.Flags().StringVar(&transformerOptionsStr, "transformer-options", "", "Transformer options as JSON")
	cmd.Flags().StringVar(&sinkOptionsStr, "sink-options", "", "Sink options as JSON")

	return cmd
}

func jobListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client := cliClient()
			jobs, err := client.ListJobs(ctx)
			if err != nil {
				return err
			}
			outResult(jobs, printJobsTable)
			return nil
		},
	}
}

func jobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <jobID>",
		Short: "Show job status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client := cliClient()
			info, err := client.GetJob(ctx, args[0])
			if err != nil {
				return err
			}
			outResult(info, printJobStatusTable)
			return nil
		},
	}
}

func jobCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <jobID>",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client := cliClient()
			return client.CancelJob(ctx, args[0])
		},
	}
}

func jobTickersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickers <jobID>",
		Short: "List ticker assignments for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := cliClient()
			ctx := context.Background()
			tickers, err := client.GetTickerAssignments(ctx, args[0])
			if err != nil {
				return err
			}
			outResult(tickers, printTickersTable)
			return nil
		},
	}
}
