package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stockslurp/stockslurp/internal/cluster"
	"github.com/stockslurp/stockslurp/internal/job"
)

// RegisterJobHandlers wires job endpoints into the given mux.
func RegisterJobHandlers(mux *http.ServeMux, cl cluster.Cluster) {
	// POST /api/jobs (submit) & GET /api/jobs (list)
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "POST":
			handleSubmitJob(w, r, cl)
		case "GET":
			handleListJobs(w, r, cl)
		default:
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	// GET /api/jobs/{id}
	// GET /api/jobs/{id}/tickers
	// POST /api/jobs/{id}/cancel
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		parts := strings.SplitN(rest, "/", 2)
		id := parts[0]
		if id == "" {
			jsonError(w, http.StatusBadRequest, "missing job id")
			return
		}
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}
		switch {
		case sub == "" && r.Method == "GET":
			handleGetJob(w, r, cl, id)
		case sub == "tickers" && r.Method == "GET":
			handleGetTickers(w, r, cl, id)
		case sub == "cancel" && r.Method == "POST":
			handleCancelJob(w, r, cl, id)
		default:
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func handleSubmitJob(w http.ResponseWriter, r *http.Request, cl cluster.Cluster) {
	var spec job.JobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := spec.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, "job spec invalid: "+err.Error())
		return
	}
	jobID, err := cl.SubmitJob(r.Context(), &spec)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to submit job: "+err.Error())
		return
	}
	if err := cl.CreateTickerTasks(r.Context(), jobID, spec.Tickers); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create ticker tasks: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

func handleGetJob(w http.ResponseWriter, r *http.Request, cl cluster.Cluster, id string) {
	jobInfo, err := cl.GetJob(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusNotFound, "not found: "+err.Error())
		return
	}
	jsonOK(w, jobInfo)
}

func handleListJobs(w http.ResponseWriter, r *http.Request, cl cluster.Cluster) {
	jobs, err := cl.ListJobs(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list jobs: "+err.Error())
		return
	}
	jsonOK(w, jobs)
}

func handleGetTickers(w http.ResponseWriter, r *http.Request, cl cluster.Cluster, id string) {
	assignments, err := cl.GetTickerAssignments(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list ticker tasks: "+err.Error())
		return
	}
	jsonOK(w, assignments)
}

func handleCancelJob(w http.ResponseWriter, r *http.Request, cl cluster.Cluster, id string) {
	if err := cl.CancelJob(r.Context(), id); err != nil {
		jsonError(w, http.StatusNotFound, "cancel failed: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
