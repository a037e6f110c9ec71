package worker

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/stockslurp/stockslurp/internal/cluster"
)

// Worker supervises concurrent processing of ticker tasks for a job.
type Worker struct {
	ID          string
	Cluster     cluster.Cluster
	JobID       string
	MaxParallel int
	BatchSize   int
	PollPeriod  time.Duration
	Logger      *log.Logger
	Metrics     *cluster.WorkerMetrics

	stopCh  chan struct{}
	stopped chan struct{}
	wg      sync.WaitGroup

	mainLoopErrorCount int64
	mainLoopBackoff    time.Duration
}

const (
	mainLoopErrorThreshold = 3
	maxMainLoopBackoff     = 30 * time.Second
)

// NewWorker constructs a worker with reasonable defaults.
func NewWorker(cl cluster.Cluster, jobID, id string, logger *log.Logger) *Worker {
	return &Worker{
		ID:          id,
		Cluster:     cl,
		JobID:       jobID,
		MaxParallel: 4, // or configurable
		BatchSize:   8,
		PollPeriod:  1 * time.Second,
		Logger:      logger,
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
		Metrics:     &cluster.WorkerMetrics{},
	}
}

// Run is the worker's main supervisory loop. Returns on stop/cancel.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stopped)

	hostname, _ := os.Hostname()
	_, err := w.Cluster.RegisterWorker(ctx, cluster.WorkerInfo{
		ID:        w.ID,
		Hostname:  hostname,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var lastErr error
	heartbeatTicker := time.NewTicker(5 * time.Second)
	defer heartbeatTicker.Stop()

	sem := make(chan struct{}, w.MaxParallel)
	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("worker: context cancelled")
			w.wg.Wait()
			return ctx.Err()
		case <-w.stopCh:
			w.Logger.Println("worker: stop requested")
			w.wg.Wait()
			return nil
		case <-heartbeatTicker.C:
			w.heartbeat(ctx)
		default:
			// --- Main Loop Error Handling ---
			if lastErr != nil {
				w.mainLoopErrorCount++
				if w.mainLoopErrorCount >= mainLoopErrorThreshold {
					if w.mainLoopBackoff < maxMainLoopBackoff {
						w.mainLoopBackoff = 2 * w.mainLoopBackoff
						if w.mainLoopBackoff == 0 {
							w.mainLoopBackoff = 1 * time.Second
						}
					}
					w.Logger.Printf("worker: backing off for %s due to repeated errors", w.mainLoopBackoff)
					time.Sleep(w.mainLoopBackoff)
				}
			} else {
				w.mainLoopErrorCount = 0
				w.mainLoopBackoff = 0
			}
			// --- Regular Logic ---
			finished, err := w.checkJobFinished(ctx)
			lastErr = err
			if err != nil {
				w.Logger.Printf("worker: error checking job state: %v", err)
				continue
			}
			if finished {
				w.Logger.Println("worker: job reached a terminal state")
				w.wg.Wait()
				return nil
			}
			claimable := w.findClaimableTickers(ctx, w.BatchSize)
			lastErr = nil // Only set lastErr if there was a "hard" error above
			if len(claimable) == 0 {
				time.Sleep(w.PollPeriod)
				continue
			}
			for _, ticker := range claimable {
				sem <- struct{}{}
				w.wg.Add(1)
				go func(ticker string) {
					defer func() { <-sem; w.wg.Done() }()
					w.processTickerLoop(ctx, ticker)
				}(ticker)
			}
			time.Sleep(w.PollPeriod)
		}
	}
}

// Stop signals the worker to exit gracefully.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
		// already closed
	default:
		close(w.stopCh)
	}
	<-w.stopped // Wait for Run to exit
}

// Heartbeat keeps worker lease alive in etcd and publishes current metrics.
func (w *Worker) heartbeat(ctx context.Context) {
	if err := w.Cluster.HeartbeatWorker(ctx, w.ID); err != nil {
		w.Logger.Printf("heartbeat failed: %v", err)
		return
	}
	if err := w.Cluster.SendMetrics(ctx, w.ID, w.Metrics); err != nil {
		w.Logger.Printf("metrics publish failed: %v", err)
	}
}

// Check for job cancellation (set by CancelJob).
func (w *Worker) checkJobCancelled(ctx context.Context) (bool, error) {
	return w.Cluster.IsJobCancelled(ctx, w.JobID)
}

// checkJobFinished reports whether the job has reached a terminal state and
// this worker should stop picking up its tasks.
func (w *Worker) checkJobFinished(ctx context.Context) (bool, error) {
	cancelled, err := w.checkJobCancelled(ctx)
	if err != nil || cancelled {
		return cancelled, err
	}
	info, err := w.Cluster.GetJob(ctx, w.JobID)
	if err != nil {
		return false, err
	}
	switch info.Status {
	case cluster.JobStateCompleted, cluster.JobStateFailed, cluster.JobStateCancelled:
		return true, nil
	}
	return false, nil
}

// findClaimableTickers returns up to batchSize tickers ready for processing.
func (w *Worker) findClaimableTickers(ctx context.Context, batchSize int) []string {
	assignments, err := w.Cluster.GetTickerAssignments(ctx, w.JobID)
	if err != nil {
		w.Logger.Printf("error listing assignments: %v", err)
		return nil
	}
	now := time.Now()
	claimable := make([]string, 0, batchSize)
	for ticker, stat := range assignments {
		// Unclaimed tasks, plus tasks whose holder's lease has lapsed.
		free := !stat.Assigned || stat.LeaseExpiry.Before(now)
		if free && !stat.Done && !stat.Failed &&
			(stat.BackoffUntil.IsZero() || now.After(stat.BackoffUntil)) {
			claimable = append(claimable, ticker)
			if len(claimable) >= batchSize {
				break
			}
		}
	}
	return claimable
}
