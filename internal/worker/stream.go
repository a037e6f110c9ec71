package worker

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockslurp/stockslurp/internal/feed"
	"github.com/stockslurp/stockslurp/internal/job"
)

// StreamHistory downloads the history for one ticker and streams its rows into
// the provided channel. The provider's header row is dropped; the remaining
// lines are emitted in file order. Closes the channel when done or on error.
// Returns the number of rows emitted.
func (w *Worker) StreamHistory(ctx context.Context, spec job.JobSpec, ticker string, ch chan<- *feed.Row) (int64, error) {
	defer close(ch)

	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return 0, err
	}

	fetchCfg := spec.Options.Fetch
	client := feed.NewClient(fetchCfg.BaseURL)
	body, err := client.Fetch(ctx, ticker, feed.FetchOptions{
		Period:        fetchCfg.Period,
		Interval:      fetchCfg.Interval,
		RetryAttempts: fetchCfg.RetryAttempts,
		RetryDelay:    fetchCfg.RetryDelayDuration(),
	})
	if err != nil {
		return 0, err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		sent    int64
		sawHead bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if !sawHead {
			// First line is the provider's column header, not data.
			sawHead = true
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if fetchCfg.IncludeIndex {
			line = fmt.Sprintf("%d,%s", sent, line)
		}
		row := &feed.Row{Ticker: ticker, Line: line, Index: sent}
		select {
		case ch <- row:
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("reading history for %s: %w", ticker, err)
	}

	// Provider politeness delay between ticker downloads.
	if d := fetchCfg.RateLimitDelayDuration(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	return sent, nil
}
