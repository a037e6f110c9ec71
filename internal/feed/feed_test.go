package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleHistory = `Date,Open,High,Low,Close,Volume
2020-01-01,100.0,101.0,99.0,100.5,15000
2020-01-02,100.5,102.0,100.1,101.7,18200
`

func TestFetch_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "TATAMOTORS.NS" {
			t.Errorf("symbol query got %q", got)
		}
		if got := r.URL.Query().Get("period"); got != "3y" {
			t.Errorf("period query got %q", got)
		}
		io.WriteString(w, sampleHistory)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	body, err := c.Fetch(context.Background(), "TATAMOTORS.NS", FetchOptions{Period: "3y", Interval: "1d"})
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleHistory {
		t.Errorf("body mismatch: %q", data)
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, sampleHistory)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	body, err := c.Fetch(context.Background(), "AAPL", FetchOptions{
		Period:        "1y",
		Interval:      "1d",
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	body.Close()
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Fetch(context.Background(), "AAPL", FetchOptions{
		Period:        "1y",
		Interval:      "1d",
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetch_ValidatesOptions(t *testing.T) {
	c := NewClient("http://feed.invalid")
	if _, err := c.Fetch(context.Background(), "AAPL", FetchOptions{Period: "7y", Interval: "1d"}); err == nil {
		t.Error("expected period validation error")
	}
	if _, err := c.Fetch(context.Background(), "AAPL", FetchOptions{Period: "1y", Interval: "42s"}); err == nil {
		t.Error("expected interval validation error")
	}
}

func TestValidatePeriodAndInterval(t *testing.T) {
	for _, p := range ValidPeriods {
		if err := ValidatePeriod(p); err != nil {
			t.Errorf("ValidatePeriod(%q): %v", p, err)
		}
	}
	for _, iv := range ValidIntervals {
		if err := ValidateInterval(iv); err != nil {
			t.Errorf("ValidateInterval(%q): %v", iv, err)
		}
	}
	if err := ValidatePeriod("never"); err == nil {
		t.Error("expected error for bad period")
	}
	if err := ValidateInterval("never"); err == nil {
		t.Error("expected error for bad interval")
	}
}
