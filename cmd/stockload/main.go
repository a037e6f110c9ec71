package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		maxDBConns int
		batchSize  int
		mapping    string
	)

	rootCmd := &cobra.Command{
		Use:   "stockload",
		Short: "stockslurp history ingester for PostgreSQL",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (required)")
	rootCmd.PersistentFlags().IntVar(&maxDBConns, "max-db-conns", 8, "Number of concurrent DB workers")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 100, "Number of records to insert per transaction/batch")
	rootCmd.PersistentFlags().StringVar(&mapping, "mapping", "", "Field mapping (ohlcv or ohlcv_indexed, overrides config)")
	rootCmd.MarkPersistentFlagRequired("config")

	// ----- init-db command -----
	initCmd := &cobra.Command{
		Use:   "init-db",
		Short: "Initialize database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := runInitDB(db); err != nil {
				return err
			}
			fmt.Println("Database schema created.")
			return nil
		},
	}

	// ----- load command -----
	var archivePath string
	var sourceName string
	var useGzip, useBzip2, useZstd bool

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "One-shot ingest of a history file (stdin or disk)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, mapping, maxDBConns, batchSize)
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			name := sourceName
			if name == "" {
				if archivePath == "" || archivePath == "-" {
					return fmt.Errorf("--name is required when loading from stdin")
				}
				name = filepath.Base(archivePath)
			}

			var scheme string
			switch {
			case useGzip:
				scheme = "gzip"
			case useBzip2:
				scheme = "bzip2"
			case useZstd:
				scheme = "zstd"
			}
			if scheme != "" {
				// The staged copy is plain text, so the worker must not see
				// a compression suffix on it.
				for _, ext := range []string{".gz", ".bz2", ".zst"} {
					name = strings.TrimSuffix(name, ext)
				}
			}

			reader, err := getReader(archivePath, scheme)
			if err != nil {
				return err
			}

			ctx := context.Background()
			metrics := NewStockloadMetrics()
			jobs := make(chan InsertJob, cfg.Database.BatchSize*cfg.Database.MaxConns)
			var wg sync.WaitGroup

			for i := 0; i < cfg.Database.MaxConns; i++ {
				wg.Add(1)
				go fileWorker(ctx, db, jobs, cfg.Database.BatchSize, &wg,
					cfg.Metrics.LogStatEvery, metrics, "", cfg.Processing.Mapping, nil)
			}

			// Save stdin/archive to a temp file named so the worker can
			// derive the ticker from it
			tmpDir, err := os.MkdirTemp("", "stockload-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)
			tmpPath := filepath.Join(tmpDir, name)
			tmp, err := os.Create(tmpPath)
			if err != nil {
				return err
			}
			if _, err := bufio.NewReader(reader).WriteTo(tmp); err != nil {
				tmp.Close()
				return err
			}
			tmp.Close()

			jobs <- InsertJob{Name: name, Path: tmpPath}
			close(jobs)
			wg.Wait()
			log.Printf("Done. %s", metrics)
			return nil
		},
	}
	loadCmd.Flags().StringVar(&archivePath, "archive", "", "Input file (or '-' for stdin)")
	loadCmd.Flags().StringVar(&sourceName, "name", "", "Logical source name, e.g. AAPL_20240102150405.csv (default: archive basename)")
	loadCmd.Flags().BoolVar(&useGzip, "gzip", false, "Decompress gzip input")
	loadCmd.Flags().BoolVar(&useBzip2, "bzip2", false, "Decompress bzip2 input")
	loadCmd.Flags().BoolVar(&useZstd, "zstd", false, "Decompress zstandard input")
	loadCmd.MarkFlagRequired("archive")

	// ----- serve command -----
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP upload server, inbox watcher, or both (continuous ingestion mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyOverrides(cfg, mapping, maxDBConns, batchSize)
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			metrics := NewStockloadMetrics()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			jobs := make(chan InsertJob, 32*cfg.Database.MaxConns)
			var wg sync.WaitGroup

			patterns := strings.Split(cfg.Processing.InboxPatterns, ",")
			watcherCfg := NewWatcherConfig(cfg.Processing.InboxDir, cfg.Processing.DoneDir,
				patterns, cfg.Processing.InboxPollInterval)

			// Start workers. The upload handler, watcher, and workers share
			// watcherCfg's seen set so each inbox file yields exactly one job.
			for i := 0; i < cfg.Database.MaxConns; i++ {
				wg.Add(1)
				go fileWorker(ctx, db, jobs, cfg.Database.BatchSize, &wg,
					cfg.Metrics.LogStatEvery, metrics, cfg.Processing.DoneDir, cfg.Processing.Mapping, watcherCfg)
			}

			stop := make(chan struct{})

			if cfg.Processing.EnableWatcher && cfg.Processing.InboxDir != "" {
				go StartInboxWatcher(watcherCfg, jobs, stop)
				log.Printf("Inbox watcher started on %s", cfg.Processing.InboxDir)
			}
			if cfg.Server.ListenAddr != "" && cfg.Processing.InboxDir != "" {
				go StartHTTPServer(cfg.Server.ListenAddr, cfg.Processing.InboxDir, watcherCfg, jobs, metrics)
				log.Printf("HTTP server started at %s, uploads go to %s", cfg.Server.ListenAddr, cfg.Processing.InboxDir)
			}

			// Graceful shutdown on SIGINT/SIGTERM
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			log.Println("Signal received, shutting down...")
			close(stop)
			close(jobs)
			wg.Wait()
			log.Printf("Done. %s", metrics)
			return nil
		},
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("stockload error: %v", err)
	}
}

func applyOverrides(cfg *StockloadConfig, mapping string, maxDBConns, batchSize int) {
	if mapping != "" {
		cfg.Processing.Mapping = mapping
	}
	if maxDBConns > 0 {
		cfg.Database.MaxConns = maxDBConns
	}
	if batchSize > 0 {
		cfg.Database.BatchSize = batchSize
	}
}
