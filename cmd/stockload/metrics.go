package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

type StockloadMetrics struct {
	BatchesProcessed int64 // atomic
	BatchesFailed    int64 // atomic
	RowsLoaded       int64 // atomic
	processingStart  int64 // stores UnixNano, atomic
}

func NewStockloadMetrics() *StockloadMetrics {
	m := &StockloadMetrics{}
	m.Start()
	return m
}

func (m *StockloadMetrics) Start() {
	atomic.StoreInt64(&m.processingStart, time.Now().UnixNano())
	atomic.StoreInt64(&m.BatchesProcessed, 0)
	atomic.StoreInt64(&m.BatchesFailed, 0)
	atomic.StoreInt64(&m.RowsLoaded, 0)
}

func (m *StockloadMetrics) Snapshot() (processed, failed, rows int64, elapsed time.Duration) {
	start := atomic.LoadInt64(&m.processingStart)
	if start == 0 {
		return 0, 0, 0, 0
	}
	return atomic.LoadInt64(&m.BatchesProcessed),
		atomic.LoadInt64(&m.BatchesFailed),
		atomic.LoadInt64(&m.RowsLoaded),
		m.Elapsed()
}

func (m *StockloadMetrics) String() string {
	processed, failed, rows, elapsed := m.Snapshot()
	return fmt.Sprintf("batches processed=%d / batches failed=%d / rows loaded=%d / time elapsed=%v",
		processed, failed, rows, elapsed)
}

// Helpers for atomic increments
func (m *StockloadMetrics) IncProcessed() int64 {
	return atomic.AddInt64(&m.BatchesProcessed, 1)
}

func (m *StockloadMetrics) IncFailed() int64 {
	return atomic.AddInt64(&m.BatchesFailed, 1)
}

func (m *StockloadMetrics) AddRows(n int64) int64 {
	return atomic.AddInt64(&m.RowsLoaded, n)
}

func (m *StockloadMetrics) Elapsed() time.Duration {
	start := atomic.LoadInt64(&m.processingStart)
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}
