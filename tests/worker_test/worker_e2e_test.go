package worker_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/job"
	"github.com/stockslurp/stockslurp/internal/testcluster"
	"github.com/stockslurp/stockslurp/internal/testutil"
	"github.com/stockslurp/stockslurp/internal/worker"
	"github.com/stretchr/testify/require"
)

var outputNameRe = regexp.MustCompile(`^[A-Z0-9.^-]+/[A-Z0-9.^-]+_\d{14}\.csv$`)

func diskJobOptions(outDir string) job.JobOptions {
	opts := testcluster.DefaultTestJobOptions()
	opts.Output.Extractor = "ohlcv_fields"
	opts.Output.Transformer = "jsonl"
	opts.Output.Sink = "disk"
	opts.Output.SinkOptions = map[string]interface{}{"path": outDir}
	return opts
}

func TestWorkerProcessesJobEndToEnd(t *testing.T) {
	srv := testutil.NewStubHistoryServer(t, testutil.SampleHistoryCSV)
	defer srv.Close()

	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	outDir := t.TempDir()
	tickers := []string{"AAPL", "MSFT"}
	jobID := testcluster.SubmitTestJob(t, cl, srv.URL, tickers, diskJobOptions(outDir))

	w := worker.NewWorker(cl, jobID, "worker-e2e", testutil.NewTestLogger(true))
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	testutil.WaitFor(t, func() bool {
		return testcluster.AllTickersDone(t, cl, jobID)
	}, 30*time.Second, 200*time.Millisecond, "tickers did not complete")
	w.Stop()
	require.NoError(t, <-runErr)

	for _, ticker := range tickers {
		status, err := cl.GetTickerStatus(ctx, jobID, ticker)
		require.NoError(t, err)
		require.True(t, status.Done, "ticker %s", ticker)
		require.False(t, status.Failed, "ticker %s", ticker)
		require.Equal(t, int64(testutil.SampleHistoryFourRows), status.Rows)
		require.Regexp(t, outputNameRe, status.OutputPath)

		lines := readJSONLines(t, filepath.Join(outDir, status.OutputPath))
		require.Len(t, lines, testutil.SampleHistoryFourRows)
		require.Equal(t, "2020-01-02", lines[0]["Date"])
	}

	processed, failed, rows, _ := w.Metrics.Snapshot()
	require.Equal(t, int64(2), processed)
	require.Equal(t, int64(0), failed)
	require.Equal(t, int64(2*testutil.SampleHistoryFourRows), rows)
}

func TestWorkerStopsOnCancelledJob(t *testing.T) {
	srv := testutil.NewStubHistoryServer(t, testutil.SampleHistoryCSV)
	defer srv.Close()

	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	jobID := testcluster.SubmitTestJob(t, cl, srv.URL, []string{"AAPL"}, diskJobOptions(t.TempDir()))
	require.NoError(t, cl.CancelJob(ctx, jobID))

	w := worker.NewWorker(cl, jobID, "worker-cancel", testutil.NewTestLogger(true))
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("worker did not exit after job cancellation")
	}

	status, err := cl.GetTickerStatus(ctx, jobID, "AAPL")
	require.NoError(t, err)
	require.False(t, status.Done)
}

func TestWorkerStealsExpiredLease(t *testing.T) {
	srv := testutil.NewStubHistoryServer(t, testutil.SampleHistoryCSV)
	defer srv.Close()

	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	outDir := t.TempDir()
	jobID := testcluster.SubmitTestJob(t, cl, srv.URL, []string{"AAPL"}, diskJobOptions(outDir))

	// A crashed worker holds the task; its lease has lapsed.
	require.NoError(t, cl.AssignTicker(ctx, jobID, "AAPL", "worker-crashed"))
	testcluster.ExpireTickerLease(t, cl, jobID, "AAPL")

	w := worker.NewWorker(cl, jobID, "worker-rescue", testutil.NewTestLogger(true))
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	testutil.WaitFor(t, func() bool {
		return testcluster.AllTickersDone(t, cl, jobID)
	}, 30*time.Second, 200*time.Millisecond, "orphaned ticker was not rescued")
	w.Stop()
	require.NoError(t, <-runErr)

	status, err := cl.GetTickerStatus(ctx, jobID, "AAPL")
	require.NoError(t, err)
	require.True(t, status.Done)
	require.Equal(t, int64(testutil.SampleHistoryFourRows), status.Rows)
}

func TestWorkerExhaustsRetriesOnBadFeed(t *testing.T) {
	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	// Nothing listens here, so every fetch attempt fails.
	opts := diskJobOptions(t.TempDir())
	jobID := testcluster.SubmitTestJob(t, cl, "http://127.0.0.1:1", []string{"AAPL"}, opts)

	w := worker.NewWorker(cl, jobID, "worker-unlucky", testutil.NewTestLogger(true))
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	// First failure enters the backoff window rather than failing permanently.
	testutil.WaitFor(t, func() bool {
		status, err := cl.GetTickerStatus(ctx, jobID, "AAPL")
		return err == nil && status.Retries >= 1
	}, 30*time.Second, 200*time.Millisecond, "ticker never recorded a failure")
	w.Stop()
	require.NoError(t, <-runErr)

	status, err := cl.GetTickerStatus(ctx, jobID, "AAPL")
	require.NoError(t, err)
	require.False(t, status.Done)
	require.False(t, status.BackoffUntil.IsZero())

	// Burn the remaining attempts directly.
	for i := status.Retries; i < cluster.MaxTickerRetries; i++ {
		require.NoError(t, cl.ReportTickerFailed(ctx, jobID, "AAPL"))
	}
	status, err = cl.GetTickerStatus(ctx, jobID, "AAPL")
	require.NoError(t, err)
	require.True(t, status.Done)
	require.True(t, status.Failed)
}

func readJSONLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		row := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		out = append(out, row)
	}
	require.NoError(t, scanner.Err())
	return out
}
