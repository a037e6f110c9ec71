package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPSinkPostsOnClose(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = b
		require.Equal(t, "abc123", r.Header.Get("X-Api-Key"))
		require.Equal(t, "AAPL/AAPL_20200102150405.csv", r.Header.Get("X-Source-Name"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(map[string]interface{}{
		"endpoint": srv.URL,
		"headers":  map[string]interface{}{"X-Api-Key": "abc123"},
	}, nil)
	require.NoError(t, err)

	w, err := sink.Open(context.Background(), "AAPL/AAPL_20200102150405.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("2020-01-01,100,101,99,100.5,15000\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, "2020-01-01,100,101,99,100.5,15000\n", string(body))

	// Writes after close are rejected.
	_, err = w.Write([]byte("more"))
	require.Error(t, err)
}

func TestHTTPSinkGzipCompression(t *testing.T) {
	var body []byte
	var encoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = b
		encoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(map[string]interface{}{
		"endpoint":    srv.URL,
		"compression": "gzip",
	}, nil)
	require.NoError(t, err)

	w, err := sink.Open(context.Background(), "MSFT/MSFT_20200102150405.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("2020-01-01,100,101,99,100.5,15000\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, "gzip", encoding)
	gr, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gr)
	require.NoError(t, err)
	require.Equal(t, "2020-01-01,100,101,99,100.5,15000\n", string(decoded))
}

func TestHTTPSinkRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(map[string]interface{}{"endpoint": srv.URL}, nil)
	require.NoError(t, err)

	w, err := sink.Open(context.Background(), "out")
	require.NoError(t, err)
	_, err = w.Write([]byte("row\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestHTTPSinkExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(map[string]interface{}{"endpoint": srv.URL, "max_retries": float64(2)}, nil)
	require.NoError(t, err)

	w, err := sink.Open(context.Background(), "out")
	require.NoError(t, err)
	require.Error(t, w.Close())
}

func TestHTTPSinkRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPSink(map[string]interface{}{}, nil)
	require.Error(t, err)
}
