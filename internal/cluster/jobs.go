package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockslurp/stockslurp/internal/job"

	clientv3 "go.etcd.io/etcd/client/v3"
)

type JobInfo struct {
	ID        string       `json:"id"`
	Spec      *job.JobSpec `json:"spec"`
	Submitted time.Time    `json:"submitted"`
	Started   time.Time    `json:"started,omitempty"`
	Completed time.Time    `json:"completed,omitempty"`
	Status    JobState     `json:"status"`
	Cancelled time.Time    `json:"cancelled,omitempty"`
}

type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

func (c *etcdCluster) SubmitJob(ctx context.Context, spec *job.JobSpec) (string, error) {
	jobID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	base := fmt.Sprintf("%s/jobs/%s", c.Prefix(), jobID)
	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(base+"/spec", mustJSON(spec)),
		clientv3.OpPut(base+"/submitted", now),
		clientv3.OpPut(base+"/status", string(JobStatePending)),
	)
	_, err := txn.Commit()
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (c *etcdCluster) ListJobs(ctx context.Context) ([]JobInfo, error) {
	prefix := fmt.Sprintf("%s/jobs/", c.Prefix())
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	prefixDepth := len(strings.Split(prefix, "/"))
	jobMap := make(map[string]*JobInfo)
	for _, kv := range resp.Kvs {
		parts := strings.Split(string(kv.Key), "/")
		if len(parts) < prefixDepth {
			continue
		}
		jobID := parts[prefixDepth-1]
		if jobMap[jobID] == nil {
			jobMap[jobID] = &JobInfo{ID: jobID}
		}
		applyJobKV(jobMap[jobID], string(kv.Key), kv.Value)
	}
	jobs := make([]JobInfo, 0, len(jobMap))
	for _, info := range jobMap {
		jobs = append(jobs, *info)
	}
	return jobs, nil
}

func (c *etcdCluster) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	prefix := fmt.Sprintf("%s/jobs/%s/", c.Prefix(), jobID)
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("job %q not found", jobID)
	}
	info := &JobInfo{ID: jobID}
	for _, kv := range resp.Kvs {
		applyJobKV(info, string(kv.Key), kv.Value)
	}
	return info, nil
}

// applyJobKV folds one etcd key/value into a JobInfo. Ticker task keys nested
// under the job are ignored here.
func applyJobKV(info *JobInfo, key string, value []byte) {
	switch {
	case strings.HasSuffix(key, "/spec"):
		var spec job.JobSpec
		if err := json.Unmarshal(value, &spec); err == nil {
			info.Spec = &spec
		}
	case strings.HasSuffix(key, "/submitted"):
		if ts, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
			info.Submitted = ts
		}
	case strings.HasSuffix(key, "/started"):
		if ts, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
			info.Started = ts
		}
	case strings.HasSuffix(key, "/completed"):
		if ts, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
			info.Completed = ts
		}
	case strings.HasSuffix(key, "/cancelled"):
		if ts, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
			info.Cancelled = ts
		}
	case strings.HasSuffix(key, "/status"):
		info.Status = JobState(value)
	}
}

func (c *etcdCluster) UpdateJobStatus(ctx context.Context, jobID string, status JobState) error {
	key := fmt.Sprintf("%s/jobs/%s/status", c.Prefix(), jobID)
	_, err := c.client.Put(ctx, key, string(status))
	return err
}

func (c *etcdCluster) MarkJobStarted(ctx context.Context, jobID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	statusKey := fmt.Sprintf("%s/jobs/%s/status", c.Prefix(), jobID)
	startedKey := fmt.Sprintf("%s/jobs/%s/started", c.Prefix(), jobID)

	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(startedKey, now),
		clientv3.OpPut(statusKey, string(JobStateRunning)),
	)
	_, err := txn.Commit()
	return err
}

func (c *etcdCluster) MarkJobCompleted(ctx context.Context, jobID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	statusKey := fmt.Sprintf("%s/jobs/%s/status", c.Prefix(), jobID)
	completedKey := fmt.Sprintf("%s/jobs/%s/completed", c.Prefix(), jobID)

	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(completedKey, now),
		clientv3.OpPut(statusKey, string(JobStateCompleted)),
	)
	_, err := txn.Commit()
	return err
}

// MarkJobFailed records terminal failure, once all ticker tasks have either
// completed or exhausted their retries with at least one failure.
func (c *etcdCluster) MarkJobFailed(ctx context.Context, jobID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	statusKey := fmt.Sprintf("%s/jobs/%s/status", c.Prefix(), jobID)
	completedKey := fmt.Sprintf("%s/jobs/%s/completed", c.Prefix(), jobID)

	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(completedKey, now),
		clientv3.OpPut(statusKey, string(JobStateFailed)),
	)
	_, err := txn.Commit()
	return err
}

func (c *etcdCluster) CancelJob(ctx context.Context, jobID string) error {
	_, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	statusKey := fmt.Sprintf("%s/jobs/%s/status", c.Prefix(), jobID)
	cancelledKey := fmt.Sprintf("%s/jobs/%s/cancelled", c.Prefix(), jobID)

	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(cancelledKey, now),
		clientv3.OpPut(statusKey, string(JobStateCancelled)),
	)
	_, err = txn.Commit()
	return err
}

// Helper to check if job is cancelled
func (c *etcdCluster) IsJobCancelled(ctx context.Context, jobID string) (bool, error) {
	key := fmt.Sprintf("%s/jobs/%s/cancelled", c.Prefix(), jobID)
	resp, err := c.client.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return len(resp.Kvs) > 0, nil
}
