package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	tickerLeaseSeconds = 60
	// MaxTickerRetries bounds how often a ticker download is retried before
	// the task is marked permanently failed.
	MaxTickerRetries   = 3
	tickerRetryBackoff = 30 * time.Second
)

type TickerAssignment struct {
	WorkerID    string    `json:"worker_id"`
	AssignedAt  time.Time `json:"assigned_at"`
	LeaseExpiry time.Time `json:"lease_expiry"`
}

// TickerAssignmentStatus captures all assignment state for one ticker task.
type TickerAssignmentStatus struct {
	Ticker       string
	Assigned     bool
	WorkerID     string
	LeaseExpiry  time.Time
	Done         bool
	Failed       bool
	Retries      int
	BackoffUntil time.Time
	OutputPath   string
	Rows         int64
}

type TickerManifest struct {
	OutputPath   string    `json:"output_path,omitempty"`
	Rows         int64     `json:"rows,omitempty"`
	DoneAt       time.Time `json:"done_at"`
	Failed       bool      `json:"failed,omitempty"`
	Retries      int       `json:"retries,omitempty"`
	BackoffUntil time.Time `json:"backoff_until,omitempty"`
}

type TickerStatus struct {
	Assigned     bool
	WorkerID     string
	LeaseExpiry  time.Time
	Done         bool
	Failed       bool
	Retries      int
	BackoffUntil time.Time
	OutputPath   string
	Rows         int64
}

// CreateTickerTasks creates one task per ticker symbol in atomic etcd batches.
// Tasks that already exist are skipped (idempotent).
func (c *etcdCluster) CreateTickerTasks(ctx context.Context, jobID string, tickers []string) error {
	const batchSize = 128 // etcd transaction limit is 128 ops

	for start := 0; start < len(tickers); start += batchSize {
		end := start + batchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		txn := c.client.Txn(ctx)
		cmps := []clientv3.Cmp{}
		puts := []clientv3.Op{}

		for _, ticker := range tickers[start:end] {
			symbolKey := c.tickerPrefix(jobID, ticker) + "/symbol"
			// Only put if doesn't exist
			cmps = append(cmps, clientv3.Compare(clientv3.Version(symbolKey), "=", 0))
			puts = append(puts, clientv3.OpPut(symbolKey, ticker))
		}
		txn = txn.If(cmps...).Then(puts...)
		if _, err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (c *etcdCluster) tickerPrefix(jobID, ticker string) string {
	return fmt.Sprintf("%s/jobs/%s/tickers/%s", c.cfg.Prefix, jobID, ticker)
}

// GetTickerAssignments returns a map of all ticker tasks to their assignment status.
func (c *etcdCluster) GetTickerAssignments(ctx context.Context, jobID string) (map[string]TickerAssignmentStatus, error) {
	prefix := fmt.Sprintf("%s/jobs/%s/tickers/", c.cfg.Prefix, jobID)
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	statusMap := map[string]TickerAssignmentStatus{}
	for _, kv := range resp.Kvs {
		rel := strings.TrimPrefix(string(kv.Key), prefix)
		parts := strings.Split(rel, "/")
		if len(parts) != 2 {
			continue
		}
		ticker, subkey := parts[0], parts[1]
		stat := statusMap[ticker]
		stat.Ticker = ticker

		switch subkey {
		case "assignment":
			stat.Assigned = true
			var assign TickerAssignment
			_ = json.Unmarshal(kv.Value, &assign)
			stat.WorkerID = assign.WorkerID
			stat.LeaseExpiry = assign.LeaseExpiry
		case "done":
			stat.Done = true
			var man TickerManifest
			_ = json.Unmarshal(kv.Value, &man)
			stat.OutputPath = man.OutputPath
			stat.Rows = man.Rows
			stat.Failed = man.Failed
		case "failed":
			stat.Failed = true
		case "retries":
			stat.Retries, _ = strconv.Atoi(string(kv.Value))
		case "backoff_until":
			if t, err := time.Parse(time.RFC3339Nano, string(kv.Value)); err == nil {
				stat.BackoffUntil = t
			}
		}
		statusMap[ticker] = stat
	}
	return statusMap, nil
}

func (c *etcdCluster) AssignTicker(ctx context.Context, jobID string, ticker string, workerID string) error {
	base := c.tickerPrefix(jobID, ticker)
	assignmentKey := base + "/assignment"
	doneKey := base + "/done"
	retriesKey := base + "/retries"
	backoffKey := base + "/backoff_until"

	now := time.Now().UTC()
	leaseExpiry := now.Add(tickerLeaseSeconds * time.Second)

	// Get all relevant keys in one go (reduces round trips)
	getOps := []clientv3.Op{
		clientv3.OpGet(assignmentKey),
		clientv3.OpGet(doneKey),
		clientv3.OpGet(retriesKey),
		clientv3.OpGet(backoffKey),
	}
	txnResp, err := c.client.Txn(ctx).Then(getOps...).Commit()
	if err != nil {
		return err
	}

	assignKvs := txnResp.Responses[0].GetResponseRange().Kvs
	doneExists := len(txnResp.Responses[1].GetResponseRange().Kvs) > 0
	var retries int
	if kvs := txnResp.Responses[2].GetResponseRange().Kvs; len(kvs) > 0 {
		retries, _ = strconv.Atoi(string(kvs[0].Value))
	}
	var backoffUntil time.Time
	if kvs := txnResp.Responses[3].GetResponseRange().Kvs; len(kvs) > 0 {
		_ = backoffUntil.UnmarshalText(kvs[0].Value)
	}

	if doneExists {
		return fmt.Errorf("ticker %s already completed", ticker)
	}
	if retries >= MaxTickerRetries {
		return fmt.Errorf("ticker %s permanently failed (retries exceeded)", ticker)
	}
	if !backoffUntil.IsZero() && now.Before(backoffUntil) {
		return fmt.Errorf("ticker %s in backoff until %v", ticker, backoffUntil)
	}

	assignment := TickerAssignment{
		WorkerID:    workerID,
		AssignedAt:  now,
		LeaseExpiry: leaseExpiry,
	}
	assignmentBytes, _ := json.Marshal(assignment)

	if len(assignKvs) > 0 {
		var assign TickerAssignment
		_ = json.Unmarshal(assignKvs[0].Value, &assign)
		if assign.LeaseExpiry.After(now) {
			return fmt.Errorf("ticker %s already assigned", ticker)
		}
		// Assignment expired: try to claim via CAS
		cmp := clientv3.Compare(clientv3.Value(assignmentKey), "=", string(assignKvs[0].Value))
		txn2Resp, err := c.client.Txn(ctx).If(cmp).Then(
			clientv3.OpPut(assignmentKey, string(assignmentBytes)),
			clientv3.OpPut(base+"/in_progress", now.Format(time.RFC3339Nano)),
		).Commit()
		if err != nil {
			return err
		}
		if !txn2Resp.Succeeded {
			return fmt.Errorf("ticker %s work stealing failed (race)", ticker)
		}
		return nil
	}

	// No assignment: normal claim
	cmp := clientv3.Compare(clientv3.Version(assignmentKey), "=", 0)
	txn2Resp, err := c.client.Txn(ctx).If(cmp).Then(
		clientv3.OpPut(assignmentKey, string(assignmentBytes)),
		clientv3.OpPut(base+"/in_progress", now.Format(time.RFC3339Nano)),
	).Commit()
	if err != nil {
		return err
	}
	if !txn2Resp.Succeeded {
		return fmt.Errorf("ticker %s assignment race", ticker)
	}
	return nil
}

func (c *etcdCluster) GetTickerStatus(ctx context.Context, jobID string, ticker string) (TickerStatus, error) {
	base := c.tickerPrefix(jobID, ticker)
	getOps := []clientv3.Op{
		clientv3.OpGet(base + "/assignment"),
		clientv3.OpGet(base + "/done"),
		clientv3.OpGet(base + "/failed"),
		clientv3.OpGet(base + "/retries"),
		clientv3.OpGet(base + "/backoff_until"),
	}
	txnResp, err := c.client.Txn(ctx).Then(getOps...).Commit()
	if err != nil {
		return TickerStatus{}, err
	}

	kvsAt := func(i int) [][]byte {
		kvs := txnResp.Responses[i].GetResponseRange().Kvs
		vals := make([][]byte, 0, len(kvs))
		for _, kv := range kvs {
			vals = append(vals, kv.Value)
		}
		return vals
	}

	status := TickerStatus{}
	if vals := kvsAt(0); len(vals) > 0 {
		status.Assigned = true
		var assign TickerAssignment
		if err := json.Unmarshal(vals[0], &assign); err == nil {
			status.WorkerID = assign.WorkerID
			status.LeaseExpiry = assign.LeaseExpiry
		}
	}
	if vals := kvsAt(1); len(vals) > 0 {
		status.Done = true
		var manifest TickerManifest
		if err := json.Unmarshal(vals[0], &manifest); err == nil {
			status.OutputPath = manifest.OutputPath
			status.Rows = manifest.Rows
			status.Failed = manifest.Failed
		}
	}
	if vals := kvsAt(2); len(vals) > 0 {
		status.Failed = true
	}
	if vals := kvsAt(3); len(vals) > 0 {
		status.Retries, _ = strconv.Atoi(string(vals[0]))
	}
	if vals := kvsAt(4); len(vals) > 0 {
		status.BackoffUntil, _ = time.Parse(time.RFC3339Nano, string(vals[0]))
	}
	return status, nil
}

func (c *etcdCluster) ReportTickerFailed(ctx context.Context, jobID string, ticker string) error {
	base := c.tickerPrefix(jobID, ticker)
	retriesKey := base + "/retries"
	backoffKey := base + "/backoff_until"
	assignmentKey := base + "/assignment"
	inProgressKey := base + "/in_progress"
	doneKey := base + "/done"

	// Get and increment retries
	var retries int
	resp, err := c.client.Get(ctx, retriesKey)
	if err != nil {
		return err
	}
	if len(resp.Kvs) > 0 {
		retries, _ = strconv.Atoi(string(resp.Kvs[0].Value))
	}
	retries++
	if retries >= MaxTickerRetries {
		// Mark permanently failed
		man := TickerManifest{
			DoneAt:  time.Now().UTC(),
			Failed:  true,
			Retries: retries,
		}
		_, err := c.client.Txn(ctx).Then(
			clientv3.OpPut(doneKey, mustJSON(man)),
			clientv3.OpDelete(assignmentKey),
			clientv3.OpDelete(inProgressKey),
			clientv3.OpDelete(retriesKey),
			clientv3.OpDelete(backoffKey),
		).Commit()
		return err
	}

	// Exponential backoff: 30s, 60s, 120s, ...
	backoffDuration := tickerRetryBackoff * time.Duration(1<<uint(retries-1))
	backoffUntil := time.Now().Add(backoffDuration)

	backoffBytes, _ := backoffUntil.MarshalText()
	_, err = c.client.Txn(ctx).Then(
		clientv3.OpPut(retriesKey, strconv.Itoa(retries)),
		clientv3.OpPut(backoffKey, string(backoffBytes)),
		clientv3.OpDelete(assignmentKey),
		clientv3.OpDelete(inProgressKey),
	).Commit()
	return err
}

func (c *etcdCluster) ReportTickerDone(ctx context.Context, jobID string, ticker string, manifest TickerManifest) error {
	base := c.tickerPrefix(jobID, ticker)

	manifest.DoneAt = time.Now().UTC()
	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(base+"/done", mustJSON(manifest)),
		clientv3.OpDelete(base+"/assignment"),
		clientv3.OpDelete(base+"/in_progress"),
		clientv3.OpDelete(base+"/retries"),
		clientv3.OpDelete(base+"/backoff_until"),
	)
	_, err := txn.Commit()
	return err
}

func (c *etcdCluster) FindOrphanedTickers(ctx context.Context, jobID string) ([]string, error) {
	tickers, err := c.GetTickerAssignments(ctx, jobID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	orphaned := []string{}
	for ticker, s := range tickers {
		if s.Assigned && !s.Done && s.LeaseExpiry.Before(now) {
			orphaned = append(orphaned, ticker)
		}
	}
	return orphaned, nil
}

func (c *etcdCluster) ReassignOrphanedTickers(ctx context.Context, jobID string, assignTo string) ([]string, error) {
	orphaned, err := c.FindOrphanedTickers(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, ticker := range orphaned {
		_ = c.AssignTicker(ctx, jobID, ticker, assignTo)
	}
	return orphaned, nil
}
