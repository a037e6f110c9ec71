package cluster_test

import (
	"context"
	"testing"

	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/job"
	"github.com/stockslurp/stockslurp/internal/testcluster"
	"github.com/stretchr/testify/require"
)

func testSpec(tickers ...string) *job.JobSpec {
	return &job.JobSpec{
		Version: "0.1.0",
		Tickers: tickers,
		Options: testcluster.DefaultTestJobOptions(),
	}
}

func TestJobLifecycle(t *testing.T) {
	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()

	ctx := context.Background()
	jobID, err := cl.SubmitJob(ctx, testSpec("AAPL"))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// Immediately after submit
	info, err := cl.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, "0.1.0", info.Spec.Version)
	require.Equal(t, cluster.JobStatePending, info.Status)
	require.False(t, info.Submitted.IsZero())

	// Mark started
	require.NoError(t, cl.MarkJobStarted(ctx, jobID))
	info, err = cl.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.False(t, info.Started.IsZero())
	require.Equal(t, cluster.JobStateRunning, info.Status)

	// Mark completed
	require.NoError(t, cl.MarkJobCompleted(ctx, jobID))
	info, err = cl.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.False(t, info.Completed.IsZero())
	require.Equal(t, cluster.JobStateCompleted, info.Status)
}

func TestMarkJobFailed(t *testing.T) {
	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	jobID, err := cl.SubmitJob(ctx, testSpec("AAPL"))
	require.NoError(t, err)

	require.NoError(t, cl.MarkJobFailed(ctx, jobID))
	info, err := cl.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, cluster.JobStateFailed, info.Status)
	require.False(t, info.Completed.IsZero())
}

func TestCancelJob(t *testing.T) {
	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	_, err := cl.GetJob(ctx, "doesnotexist")
	require.Error(t, err)

	jobID, err := cl.SubmitJob(ctx, testSpec("AAPL", "MSFT"))
	require.NoError(t, err)

	cancelled, err := cl.IsJobCancelled(ctx, jobID)
	require.NoError(t, err)
	require.False(t, cancelled)

	require.NoError(t, cl.CancelJob(ctx, jobID))
	info, err := cl.GetJob(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, cluster.JobStateCancelled, info.Status)
	require.False(t, info.Cancelled.IsZero())

	cancelled, err = cl.IsJobCancelled(ctx, jobID)
	require.NoError(t, err)
	require.True(t, cancelled)

	// Cancelling again is idempotent
	require.NoError(t, cl.CancelJob(ctx, jobID))
}

func TestListJobs_AllFields(t *testing.T) {
	cl, cleanup := testcluster.SetupEtcdCluster(t)
	defer cleanup()
	ctx := context.Background()

	// Submit first job and advance it through the full lifecycle.
	jobID1, err := cl.SubmitJob(ctx, testSpec("AAPL"))
	require.NoError(t, err)
	require.NoError(t, cl.MarkJobStarted(ctx, jobID1))
	require.NoError(t, cl.MarkJobCompleted(ctx, jobID1))

	// Submit a second, simpler job
	jobID2, err := cl.SubmitJob(ctx, testSpec("MSFT", "GOOG"))
	require.NoError(t, err)

	jobs, err := cl.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	var found1, found2 *cluster.JobInfo
	for i := range jobs {
		switch jobs[i].ID {
		case jobID1:
			found1 = &jobs[i]
		case jobID2:
			found2 = &jobs[i]
		}
	}
	require.NotNil(t, found1)
	require.NotNil(t, found2)

	require.Equal(t, []string{"AAPL"}, found1.Spec.Tickers)
	require.Equal(t, cluster.JobStateCompleted, found1.Status)
	require.False(t, found1.Submitted.IsZero())
	require.False(t, found1.Started.IsZero())
	require.False(t, found1.Completed.IsZero())

	require.Equal(t, []string{"MSFT", "GOOG"}, found2.Spec.Tickers)
	require.Equal(t, cluster.JobStatePending, found2.Status)
	require.True(t, found2.Started.IsZero())
	require.True(t, found2.Completed.IsZero())
	require.True(t, found2.Cancelled.IsZero())
}
