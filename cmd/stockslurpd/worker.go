package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stockslurp/stockslurp/cmd/stockslurpd/config"
	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run as worker node (ticker history processor)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		return runWorker(cfg)
	},
}

// Worker node: connect to etcd, process pending jobs as they appear.
func runWorker(cfg *config.ClusterConfig) error {
	ctx := cmdContext()

	fmt.Printf("Starting worker node: %s\n", cfg.Node.ID)
	cl, err := newCluster(cfg)
	if err != nil {
		return fmt.Errorf("boot failure: %w", err)
	}
	defer cl.Close()

	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags)

	if cfg.Secrets.ClusterKey != "" {
		err = selfBootstrap(ctx, cl, cfg, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Println("Registering worker and waiting for admin to approve secrets...")
		if err := cl.Secrets().RegisterAndWaitForClusterKey(ctx); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		logger.Println("Registration complete. Starting...")
	}

	return workerJobLoop(ctx, cl, cfg.Node.ID, logger)
}

// workerJobLoop picks up claimable jobs one at a time and runs the worker
// main loop against each until it finishes or the node is stopped.
func workerJobLoop(ctx context.Context, cl cluster.Cluster, nodeID string, logger *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		jobID, err := findClaimableJob(ctx, cl)
		if err != nil {
			logger.Printf("Error scanning for jobs: %v", err)
		}
		if jobID == "" {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5*time.Second + jitterDuration()):
			}
			continue
		}

		logger.Printf("Picking up job %s", jobID)
		if err := cl.MarkJobStarted(ctx, jobID); err != nil {
			logger.Printf("Could not mark job %s started: %v", jobID, err)
		}

		w := worker.NewWorker(cl, jobID, nodeID, logger)
		if err := w.Run(ctx); err != nil {
			logger.Printf("Job %s worker loop ended with error: %v", jobID, err)
		}
	}
}

func findClaimableJob(ctx context.Context, cl cluster.Cluster) (string, error) {
	jobs, err := cl.ListJobs(ctx)
	if err != nil {
		return "", err
	}
	for _, j := range jobs {
		if j.Status == cluster.JobStatePending || j.Status == cluster.JobStateRunning {
			return j.ID, nil
		}
	}
	return "", nil
}
