package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/etl"
	"github.com/stockslurp/stockslurp/internal/feed"
)

func (w *Worker) processTickerLoop(ctx context.Context, ticker string) {
	if err := w.Cluster.AssignTicker(ctx, w.JobID, ticker, w.ID); err != nil {
		// Lost the claim race, somebody else has it.
		return
	}

	start := time.Now()
	var reported bool // track if we've reported Done/Failed
	defer func() {
		// Recover from panics to avoid leaving the task stuck
		if r := recover(); r != nil {
			w.Logger.Printf("panic processing ticker %s: %v", ticker, r)
			_ = w.Cluster.ReportTickerFailed(context.Background(), w.JobID, ticker)
			w.Metrics.IncFailed()
			reported = true
		}
		// If not reported, mark as failed (covers context cancel or other silent exit)
		if !reported {
			_ = w.Cluster.ReportTickerFailed(context.Background(), w.JobID, ticker)
			w.Metrics.IncFailed()
		}
		w.Metrics.AddProcessingTime(time.Since(start))
	}()

	jobInfo, err := w.Cluster.GetJob(ctx, w.JobID)
	if err != nil {
		w.Logger.Printf("failed to get job spec: %v", err)
		return
	}

	cancelled, err := w.checkJobCancelled(ctx)
	if err != nil {
		w.Logger.Printf("job cancelled check failed: %v", err)
		return
	}
	if cancelled {
		w.Logger.Printf("job %s cancelled, skipping ticker %s", w.JobID, ticker)
		return
	}

	baseName := outputBaseName(ticker, time.Now().UTC())
	pipeline, err := etl.NewPipeline(jobInfo.Spec, w.Cluster.Secrets(), baseName)
	if err != nil {
		w.Logger.Printf("etl pipeline init failed: %v", err)
		return
	}

	rows := make(chan *feed.Row, 32)
	etlErrCh := make(chan error, 1)
	go func() {
		etlErrCh <- pipeline.StreamProcess(ctx, rows)
	}()
	sent, fetchErr := w.StreamHistory(ctx, *jobInfo.Spec, ticker, rows)
	etlErr := <-etlErrCh

	// Check if context was cancelled during work (e.g., test/shutdown)
	if ctx.Err() != nil {
		w.Logger.Printf("context cancelled during ticker processing: %v", ctx.Err())
		return
	}

	if fetchErr != nil {
		w.Logger.Printf("history fetch failed: %v", fetchErr)
		return
	}
	if etlErr != nil {
		w.Logger.Printf("etl process failed: %v", etlErr)
		return
	}

	manifest := cluster.TickerManifest{OutputPath: baseName, Rows: sent}
	if err := w.Cluster.ReportTickerDone(ctx, w.JobID, ticker, manifest); err != nil {
		w.Logger.Printf("report done failed: %v", err)
		return
	}
	w.Metrics.IncProcessed()
	w.Metrics.AddRows(sent)
	w.Logger.Printf("ticker %s (job %s) completed, %d rows", ticker, w.JobID, sent)
	reported = true
}

// outputBaseName builds the per-ticker object name, e.g.
// "AAPL/AAPL_20200102150405.csv".
func outputBaseName(ticker string, ts time.Time) string {
	return fmt.Sprintf("%s/%s_%s.csv", ticker, ticker, ts.Format("20060102150405"))
}
