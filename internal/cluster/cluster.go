package cluster

import (
	"context"

	"github.com/stockslurp/stockslurp/internal/job"
	"github.com/stockslurp/stockslurp/internal/secrets"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type Cluster interface {
	// Job coordination
	SubmitJob(ctx context.Context, spec *job.JobSpec) (jobID string, err error)
	ListJobs(ctx context.Context) ([]JobInfo, error)
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
	GetClusterStatus(ctx context.Context) (*ClusterStatus, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobState) error
	MarkJobStarted(ctx context.Context, jobID string) error
	MarkJobCompleted(ctx context.Context, jobID string) error
	MarkJobFailed(ctx context.Context, jobID string) error
	CancelJob(ctx context.Context, jobID string) error
	IsJobCancelled(ctx context.Context, jobID string) (bool, error)

	// Worker management
	RegisterWorker(ctx context.Context, info WorkerInfo) (workerID string, err error)
	ListWorkers(ctx context.Context) ([]WorkerInfo, error)
	HeartbeatWorker(ctx context.Context, workerID string) error
	SendMetrics(ctx context.Context, workerID string, metrics *WorkerMetrics) error
	GetWorkerMetrics(ctx context.Context, workerID string) (*WorkerMetricsView, error)

	// Ticker task orchestration
	CreateTickerTasks(ctx context.Context, jobID string, tickers []string) error
	AssignTicker(ctx context.Context, jobID string, ticker string, workerID string) error
	GetTickerAssignments(ctx context.Context, jobID string) (map[string]TickerAssignmentStatus, error)
	GetTickerStatus(ctx context.Context, jobID string, ticker string) (TickerStatus, error)
	ReportTickerDone(ctx context.Context, jobID string, ticker string, manifest TickerManifest) error
	ReportTickerFailed(ctx context.Context, jobID string, ticker string) error
	ReassignOrphanedTickers(ctx context.Context, jobID string, assignTo string) ([]string, error)

	Secrets() *secrets.Store
	Prefix() string
	Client() *clientv3.Client
	Close() error
}
