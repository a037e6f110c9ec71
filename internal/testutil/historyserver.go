package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewStubHistoryServer returns an httptest.Server that serves a fixed CSV
// history body for any ticker request.
func NewStubHistoryServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "" {
			t.Fatalf("history request missing symbol: %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(body))
	}))
}
