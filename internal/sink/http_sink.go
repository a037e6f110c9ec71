package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stockslurp/stockslurp/internal/compression"
	"github.com/stockslurp/stockslurp/internal/secrets"
)

// HTTPSink POSTs each finished output object to an ingest endpoint, one
// request per object. The object name travels in the X-Source-Name header so
// the receiver (typically the loader's upload endpoint) can recover the
// ticker and timestamp from it. Bodies are buffered in memory, which is fine
// for per-ticker history files but makes this sink a poor fit for unchunked
// multi-gigabyte outputs.
type HTTPSink struct {
	endpoint    string
	compression string
	maxRetries  int
	headers     map[string]string
	client      *http.Client
}

func NewHTTPSink(opts map[string]interface{}, _ *secrets.Store) (Sink, error) {
	endpoint, ok := opts["endpoint"].(string)
	if !ok || endpoint == "" {
		return nil, errors.New("http sink requires 'endpoint' option")
	}
	compression, _ := opts["compression"].(string)
	if compression == "" {
		compression = "none"
	}
	maxRetries := 3
	if v, ok := opts["max_retries"].(float64); ok && v > 0 {
		maxRetries = int(v)
	}
	headers := map[string]string{}
	if m, ok := opts["headers"].(map[string]interface{}); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}
	return &HTTPSink{
		endpoint:    endpoint,
		compression: compression,
		maxRetries:  maxRetries,
		headers:     headers,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (s *HTTPSink) Open(ctx context.Context, name string) (SinkWriter, error) {
	buf := &bytes.Buffer{}
	cw, err := compression.NewWriter(buf, s.compression)
	if err != nil {
		return nil, err
	}
	return &httpSinkWriter{
		sink: s,
		ctx:  ctx,
		name: name,
		buf:  buf,
		cw:   cw,
	}, nil
}

type httpSinkWriter struct {
	sink   *HTTPSink
	ctx    context.Context
	name   string
	buf    *bytes.Buffer
	cw     io.WriteCloser
	closed bool
}

func (w *httpSinkWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("sinkwriter closed")
	}
	return w.cw.Write(p)
}

// Close finalizes compression and delivers the buffered object. Any 2xx
// counts as delivered; everything else is retried with a short linear
// backoff before giving up.
func (w *httpSinkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.cw.Close(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= w.sink.maxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * 200 * time.Millisecond)
		}
		lastErr = w.post()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("http sink: delivering %s: %w", w.name, lastErr)
}

func (w *httpSinkWriter) post() error {
	req, err := http.NewRequestWithContext(w.ctx, "POST", w.sink.endpoint, bytes.NewReader(w.buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("X-Source-Name", w.name)
	for k, v := range w.sink.headers {
		req.Header.Set(k, v)
	}
	switch w.sink.compression {
	case "gzip":
		req.Header.Set("Content-Encoding", "gzip")
	case "bzip2":
		req.Header.Set("Content-Encoding", "x-bzip2")
	case "zstd":
		req.Header.Set("Content-Encoding", "zstd")
	}
	resp, err := w.sink.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}

func init() {
	Register("http", NewHTTPSink)
}
