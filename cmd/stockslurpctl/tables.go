package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/stockslurp/stockslurp/internal/api"
	"github.com/stockslurp/stockslurp/internal/cluster"
)

func printJobsTable(data any) {
	jobs, ok := data.([]cluster.JobInfo)
	if !ok || len(jobs) == 0 {
		fmt.Println("No jobs found")
		return
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Submitted.Before(jobs[j].Submitted)
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Tickers", "Status", "Submitted", "Started", "Completed", "Cancelled"})
	for _, job := range jobs {
		table.Append([]string{
			job.ID,
			summarizeTickers(job.Spec.Tickers),
			string(job.Status),
			job.Submitted.Format("2006-01-02 15:04:05"),
			valOrDash(job.Started),
			valOrDash(job.Completed),
			valOrDash(job.Cancelled),
		})
	}
	table.Render()
}

func summarizeTickers(tickers []string) string {
	if len(tickers) <= 4 {
		return strings.Join(tickers, ",")
	}
	return fmt.Sprintf("%s,... (%d total)", strings.Join(tickers[:4], ","), len(tickers))
}

func printJobStatusTable(data any) {
	var job cluster.JobInfo
	switch jt := data.(type) {
	case cluster.JobInfo:
		job = jt
	case *cluster.JobInfo:
		job = *jt
	default:
		fmt.Println("No job info")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"ID", job.ID})
	table.Append([]string{"Status", string(job.Status)})
	table.Append([]string{"Tickers", summarizeTickers(job.Spec.Tickers)})
	table.Append([]string{"Period", job.Spec.Options.Fetch.Period})
	table.Append([]string{"Interval", job.Spec.Options.Fetch.Interval})
	table.Append([]string{"Submitted", job.Submitted.Format("2006-01-02 15:04:05")})
	table.Append([]string{"Started", valOrDash(job.Started)})
	table.Append([]string{"Completed", valOrDash(job.Completed)})
	table.Append([]string{"Cancelled", valOrDash(job.Cancelled)})
	table.Append([]string{"Note", job.Spec.Note})
	table.Render()
}

func printWorkersTable(data any) {
	workers, ok := data.([]api.WorkerStatus)
	if !ok || len(workers) == 0 {
		fmt.Println("No workers found")
		return
	}

	sort.Slice(workers, func(i, j int) bool {
		return workers[i].ID < workers[j].ID
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"ID", "Host", "Started", "Tickers Processed", "Tickers Failed", "Rows", "Processing Time (s)", "Last Updated",
	})
	for _, w := range workers {
		procTimeSec := float64(w.ProcessingTimeNs) / 1e9
		table.Append([]string{
			w.ID,
			w.Hostname,
			valOrDash(w.StartedAt),
			fmt.Sprintf("%d", w.TickersProcessed),
			fmt.Sprintf("%d", w.TickersFailed),
			fmt.Sprintf("%d", w.RowsEmitted),
			fmt.Sprintf("%.2f", procTimeSec),
			valOrDash(w.LastUpdated),
		})
	}
	table.Render()
}

func printWorkerMetricsTable(data any) {
	m, ok := data.(*cluster.WorkerMetricsView)
	if !ok || m == nil {
		fmt.Println("No worker metrics")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Worker ID", "Tickers Processed", "Tickers Failed", "Rows", "Processing Time (s)", "Last Updated"})
	table.Append([]string{
		m.WorkerID,
		fmt.Sprintf("%d", m.TickersProcessed),
		fmt.Sprintf("%d", m.TickersFailed),
		fmt.Sprintf("%d", m.RowsEmitted),
		fmt.Sprintf("%.2f", float64(m.ProcessingTimeNs)/1e9),
		valOrDash(m.LastUpdated),
	})
	table.Render()
}

func printTickersTable(data any) {
	tickers, ok := data.(map[string]cluster.TickerAssignmentStatus)
	if !ok || len(tickers) == 0 {
		fmt.Println("No tickers found")
		return
	}
	var symbols []string
	for sym := range tickers {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"Ticker", "Worker ID", "Assigned", "Done", "Failed", "Lease Expiry", "Retries", "Backoff", "Rows", "Output",
	})
	for _, sym := range symbols {
		s := tickers[sym]
		table.Append([]string{
			sym,
			s.WorkerID,
			fmt.Sprintf("%v", s.Assigned),
			fmt.Sprintf("%v", s.Done),
			fmt.Sprintf("%v", s.Failed),
			valOrDash(s.LeaseExpiry),
			fmt.Sprintf("%d", s.Retries),
			valOrDash(s.BackoffUntil),
			fmt.Sprintf("%d", s.Rows),
			s.OutputPath,
		})
	}
	table.Render()
}

func printSecretsTable(data any) {
	keys, ok := data.([]string)
	if !ok || len(keys) == 0 {
		fmt.Println("No secrets found")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Secret Keys"})
	for _, key := range keys {
		table.Append([]string{key})
	}
	table.Render()
}

func printClusterStatusTable(data any) {
	status, ok := data.(*cluster.ClusterStatus)
	if !ok || status == nil {
		fmt.Println("No cluster status")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Num Jobs", fmt.Sprintf("%d", len(status.Jobs))})
	table.Append([]string{"Num Workers", fmt.Sprintf("%d", len(status.Workers))})
	table.Render()

	// Show sub-tables for jobs and workers
	if len(status.Jobs) > 0 {
		fmt.Println("\nJobs:")
		for _, jobStatus := range status.Jobs {
			printJobStatusTable(jobStatus.Job)
		}
	}
	if len(status.Workers) > 0 {
		fmt.Println("\nWorkers:")
		wt := tablewriter.NewWriter(os.Stdout)
		wt.SetHeader([]string{"ID", "Host", "Started", "Version"})
		for _, w := range status.Workers {
			wt.Append([]string{w.ID, w.Hostname, valOrDash(w.StartedAt), w.Version})
		}
		wt.Render()
	}
}
