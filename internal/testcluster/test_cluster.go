package testcluster

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/job"
	"github.com/stockslurp/stockslurp/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/server/v3/embed"
)

// Start an embedded etcd cluster for test, return cluster + cleanup
func SetupEtcdCluster(t *testing.T) (cluster.Cluster, func()) {
	t.Helper()
	cfg := embed.NewConfig()
	cfg.Dir = t.TempDir()
	cfg.Logger = "zap"
	cfg.LogLevel = "error"
	e, err := embed.StartEtcd(cfg)
	require.NoError(t, err)

	select {
	case <-e.Server.ReadyNotify():
	case <-time.After(10 * time.Second):
		t.Fatal("etcd server did not become ready in time")
	}

	cl, err := cluster.NewEtcdCluster(cluster.EtcdConfig{
		Endpoints:    []string{e.Clients[0].Addr().String()},
		DialTimeout:  2 * time.Second,
		Prefix:       "/stockslurp_test_" + testutil.RandString(5),
		KeychainFile: filepath.Join(t.TempDir(), "node_key"),
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = cl.Close()
		e.Close()
	}
	return cl, cleanup
}

func DefaultTestJobOptions() job.JobOptions {
	return job.JobOptions{
		Output: job.OutputOptions{
			Extractor:   "dummy",
			Transformer: "dummy",
			Sink:        "null",
		},
	}
}

// SubmitTestJob creates a job using test-safe plugins if not provided.
func SubmitTestJob(t *testing.T, cl cluster.Cluster, baseURL string, tickers []string, opts ...job.JobOptions) string {
	t.Helper()
	options := DefaultTestJobOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	options.Fetch.BaseURL = baseURL
	if options.Fetch.Period == "" {
		options.Fetch.Period = "1mo"
	}
	if options.Fetch.Interval == "" {
		options.Fetch.Interval = "1d"
	}
	spec := &job.JobSpec{
		Version: "0.1.0",
		Tickers: tickers,
		Options: options,
	}
	ctx := context.Background()
	jobID, err := cl.SubmitJob(ctx, spec)
	require.NoError(t, err)

	require.NoError(t, cl.CreateTickerTasks(ctx, jobID, tickers))
	return jobID
}

// AllTickersDone reports whether every ticker task for jobID is terminal.
func AllTickersDone(t *testing.T, cl cluster.Cluster, jobID string) bool {
	t.Helper()
	ctx := context.Background()
	assignments, err := cl.GetTickerAssignments(ctx, jobID)
	require.NoError(t, err)
	for _, stat := range assignments {
		if !stat.Done && !stat.Failed {
			return false
		}
	}
	return true
}

// ExpireTickerLease forcibly expires a task lease for the given job/ticker.
func ExpireTickerLease(t *testing.T, cl cluster.Cluster, jobID string, ticker string) {
	t.Helper()
	ctx := context.Background()

	key := cl.Prefix() + "/jobs/" + jobID + "/tickers/" + ticker + "/assignment"
	resp, err := cl.Client().Get(ctx, key)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Kvs, "no assignment found for ticker %s", ticker)

	var a cluster.TickerAssignment
	err = json.Unmarshal(resp.Kvs[0].Value, &a)
	require.NoError(t, err)

	// Set lease expiry in the past
	a.LeaseExpiry = time.Now().Add(-10 * time.Minute)
	b, err := json.Marshal(a)
	require.NoError(t, err)

	_, err = cl.Client().Put(ctx, key, string(b))
	require.NoError(t, err)
}
