package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stockslurp/stockslurp/cmd/stockslurpd/config"
	"github.com/stockslurp/stockslurp/internal/alert"
	"github.com/stockslurp/stockslurp/internal/api"
	"github.com/stockslurp/stockslurp/internal/cluster"
)

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Run as cluster head node (API, job lifecycle, alerts)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		return runHead(cfg)
	},
}

func runHead(cfg *config.ClusterConfig) error {
	ctx := cmdContext()

	cl, err := newCluster(cfg)
	if err != nil {
		return fmt.Errorf("boot failure: %w", err)
	}
	defer cl.Close()

	logger := log.New(os.Stdout, "[api] ", log.LstdFlags)
	apiServer := api.NewServer(cl, cfg.Api, logger)

	if cfg.Secrets.ClusterKey == "" {
		return fmt.Errorf("cluster_key is required in the secrets configuration when starting in head node mode")
	}

	err = selfBootstrap(ctx, cl, cfg, logger)
	if err != nil {
		return err
	}

	mailer := alert.NewMailer(cfg.Alerts)
	go headMonitorLoop(ctx, cl, 30*time.Second, mailer, logger)

	logger.Printf("Starting API server on %s", cfg.Api.ListenAddr)
	return apiServer.Start(ctx)
}

func isTickerEffectivelyDone(t cluster.TickerAssignmentStatus) bool {
	// A ticker is considered "done" if:
	//   - It's marked Done,
	//   - Or, it's permanently failed
	return t.Done || t.Failed
}

func headMonitorLoop(ctx context.Context, cl cluster.Cluster, pollInterval time.Duration, mailer *alert.Mailer, logger *log.Logger) {
	basePoll := jitterDuration() + pollInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(basePoll + jitterDuration()):
			maybeSleep()
			jobs, err := cl.ListJobs(ctx)
			if err != nil {
				logger.Printf("Error listing jobs: %v", err)
				continue
			}

			for _, job := range jobs {
				if job.Status == cluster.JobStateCompleted ||
					job.Status == cluster.JobStateCancelled ||
					job.Status == cluster.JobStateFailed {
					continue
				}

				maybeSleep()
				tickerMap, err := cl.GetTickerAssignments(ctx, job.ID)
				if err != nil {
					logger.Printf("Error getting tickers for job %s: %v", job.ID, err)
					continue
				}

				if len(tickerMap) == 0 {
					continue
				}

				allDone := true
				orphans := 0
				var failed []string

				now := time.Now().UTC()
				for ticker, st := range tickerMap {
					if !isTickerEffectivelyDone(st) {
						allDone = false
					}
					if st.Assigned && !st.Done && st.LeaseExpiry.Before(now) {
						orphans++
					}
					if st.Failed {
						failed = append(failed, ticker)
					}
				}

				// Expired leases are reclaimed by workers on their next claim
				// pass; the head only surfaces them.
				if orphans > 0 {
					logger.Printf("Job %s: %d ticker lease(s) expired, awaiting reclaim", job.ID, orphans)
				}

				if !allDone {
					continue
				}

				maybeSleep()
				if len(failed) > 0 {
					logger.Printf("Job %s finished with %d permanently failed ticker(s); marking failed", job.ID, len(failed))
					if err := cl.MarkJobFailed(ctx, job.ID); err != nil {
						logger.Printf("Failed to mark job %s failed: %v", job.ID, err)
						continue
					}
					if err := mailer.JobFailed(job.ID, failed); err != nil {
						logger.Printf("Failure alert for job %s not delivered: %v", job.ID, err)
					}
				} else {
					if err := cl.MarkJobCompleted(ctx, job.ID); err != nil {
						logger.Printf("Failed to mark job %s completed: %v", job.ID, err)
						continue
					}
					logger.Printf("Job %s completed!", job.ID)
					if err := mailer.JobCompleted(job.ID, len(tickerMap)); err != nil {
						logger.Printf("Completion alert for job %s not delivered: %v", job.ID, err)
					}
				}
			}
		}
	}
}
