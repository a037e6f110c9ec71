package cluster

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

type WorkerMetrics struct {
	TickersProcessed int64 // atomic
	TickersFailed    int64 // atomic
	RowsEmitted      int64 // atomic
	processingTime   int64 // nanoseconds, atomic
}

func (m *WorkerMetrics) Snapshot() (processed, failed, rows int64, totalTime time.Duration) {
	return atomic.LoadInt64(&m.TickersProcessed),
		atomic.LoadInt64(&m.TickersFailed),
		atomic.LoadInt64(&m.RowsEmitted),
		time.Duration(atomic.LoadInt64(&m.processingTime))
}

// Helper methods for atomic increments
func (m *WorkerMetrics) IncProcessed() {
	atomic.AddInt64(&m.TickersProcessed, 1)
}
func (m *WorkerMetrics) IncFailed() {
	atomic.AddInt64(&m.TickersFailed, 1)
}
func (m *WorkerMetrics) AddRows(n int64) {
	atomic.AddInt64(&m.RowsEmitted, n)
}
func (m *WorkerMetrics) AddProcessingTime(d time.Duration) {
	atomic.AddInt64(&m.processingTime, d.Nanoseconds())
}
func (m *WorkerMetrics) ProcessingTime() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.processingTime))
}

func (c *etcdCluster) SendMetrics(ctx context.Context, workerID string, metrics *WorkerMetrics) error {
	key := path.Join(c.Prefix(), "workers", workerID)
	resp, err := c.client.Get(ctx, key)
	if err != nil {
		return err
	}
	if len(resp.Kvs) == 0 {
		return fmt.Errorf("worker %s not found", workerID)
	}
	leaseID := clientv3.LeaseID(resp.Kvs[0].Lease)

	processed, failed, rows, processingTime := metrics.Snapshot()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	txn := c.client.Txn(ctx).Then(
		clientv3.OpPut(key+"/tickers_processed", strconv.FormatInt(processed, 10), clientv3.WithLease(leaseID)),
		clientv3.OpPut(key+"/tickers_failed", strconv.FormatInt(failed, 10), clientv3.WithLease(leaseID)),
		clientv3.OpPut(key+"/rows_emitted", strconv.FormatInt(rows, 10), clientv3.WithLease(leaseID)),
		clientv3.OpPut(key+"/processing_time_ns", strconv.FormatInt(processingTime.Nanoseconds(), 10), clientv3.WithLease(leaseID)),
		clientv3.OpPut(key+"/last_updated", now, clientv3.WithLease(leaseID)),
	)
	_, err = txn.Commit()
	return err
}

type WorkerMetricsView struct {
	WorkerID         string    `json:"worker_id"`
	TickersProcessed int64     `json:"tickers_processed"`
	TickersFailed    int64     `json:"tickers_failed"`
	RowsEmitted      int64     `json:"rows_emitted"`
	ProcessingTimeNs int64     `json:"processing_time_ns"`
	LastUpdated      time.Time `json:"last_updated"`
}

func (c *etcdCluster) GetWorkerMetrics(ctx context.Context, workerID string) (*WorkerMetricsView, error) {
	keyBase := path.Join(c.Prefix(), "workers", workerID)
	keys := []string{
		keyBase + "/tickers_processed",
		keyBase + "/tickers_failed",
		keyBase + "/rows_emitted",
		keyBase + "/processing_time_ns",
		keyBase + "/last_updated",
	}
	out := WorkerMetricsView{WorkerID: workerID}
	for _, key := range keys {
		resp, err := c.client.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(resp.Kvs) == 0 {
			continue
		}
		switch {
		case keyHasSuffix(key, "/tickers_processed"):
			out.TickersProcessed, _ = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		case keyHasSuffix(key, "/tickers_failed"):
			out.TickersFailed, _ = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		case keyHasSuffix(key, "/rows_emitted"):
			out.RowsEmitted, _ = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		case keyHasSuffix(key, "/processing_time_ns"):
			out.ProcessingTimeNs, _ = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		case keyHasSuffix(key, "/last_updated"):
			out.LastUpdated, _ = time.Parse(time.RFC3339Nano, string(resp.Kvs[0].Value))
		}
	}
	return &out, nil
}
