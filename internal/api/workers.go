package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/stockslurp/stockslurp/internal/cluster"
)

type WorkerStatus struct {
	ID               string    `json:"id"`
	Hostname         string    `json:"hostname"`
	StartedAt        time.Time `json:"started_at"`
	TickersProcessed int64     `json:"tickers_processed"`
	TickersFailed    int64     `json:"tickers_failed"`
	RowsEmitted      int64     `json:"rows_emitted"`
	ProcessingTimeNs int64     `json:"processing_time_ns"`
	LastUpdated      time.Time `json:"last_updated"`
}

func RegisterWorkerHandlers(mux *http.ServeMux, cl cluster.Cluster) {
	// List all workers with metrics
	mux.HandleFunc("/api/workers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		workers, err := cl.ListWorkers(r.Context())
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to list workers: "+err.Error())
			return
		}
		// Combine with metrics
		statuses := make([]*WorkerStatus, 0, len(workers))
		for _, wi := range workers {
			ws := &WorkerStatus{
				ID:        wi.ID,
				Hostname:  wi.Hostname,
				StartedAt: wi.StartedAt,
			}
			// Try to get metrics, but tolerate absence
			if vm, err := cl.GetWorkerMetrics(r.Context(), wi.ID); err == nil && vm != nil {
				ws.TickersProcessed = vm.TickersProcessed
				ws.TickersFailed = vm.TickersFailed
				ws.RowsEmitted = vm.RowsEmitted
				ws.ProcessingTimeNs = vm.ProcessingTimeNs
				ws.LastUpdated = vm.LastUpdated
			}
			statuses = append(statuses, ws)
		}
		jsonOK(w, statuses)
	})

	// Get metrics for specific worker
	mux.HandleFunc("/api/workers/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/workers/")
		if id == "" {
			jsonError(w, http.StatusBadRequest, "missing worker id")
			return
		}
		vm, err := cl.GetWorkerMetrics(r.Context(), id)
		if err != nil || vm == nil {
			jsonError(w, http.StatusNotFound, "not found: "+id)
			return
		}
		jsonOK(w, vm)
	})
}
