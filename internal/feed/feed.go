// Package feed fetches historical OHLCV candle data from a market-data HTTP
// provider that serves CSV history per ticker.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Row is one raw record streamed through the ETL pipeline: a single
// comma-separated line of the ticker's history plus its position in the file.
type Row struct {
	Ticker string
	Line   string
	Index  int64
}

type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:   baseURL,
		UserAgent: "stockslurp/1.0",
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   30 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				MaxIdleConnsPerHost:   10,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// FetchOptions mirror the source's download parameters.
type FetchOptions struct {
	Period   string
	Interval string

	// Retry behavior for transient provider failures.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Fetch downloads the full CSV history for ticker. The response body includes
// the provider's header row; callers decide whether to keep it. Retries
// transient failures per opts before giving up.
func (c *Client) Fetch(ctx context.Context, ticker string, opts FetchOptions) (io.ReadCloser, error) {
	if err := ValidatePeriod(opts.Period); err != nil {
		return nil, err
	}
	if err := ValidateInterval(opts.Interval); err != nil {
		return nil, err
	}

	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.fetchOnce(ctx, ticker, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", ticker, attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, ticker string, opts FetchOptions) (io.ReadCloser, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("bad feed base url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", ticker)
	q.Set("period", opts.Period)
	q.Set("interval", opts.Interval)
	q.Set("format", "csv")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("provider returned %s for %s", resp.Status, ticker)
	}
	return resp.Body, nil
}
