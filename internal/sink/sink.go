package sink

import (
	"context"
	"io"

	"github.com/stockslurp/stockslurp/internal/secrets"
)

// Sink is the interface for output destinations (disk, s3, etc). Open returns
// a writer for one named output object; sinks may be opened multiple times
// per job as the pipeline rotates chunks.
type Sink interface {
	Open(ctx context.Context, name string) (SinkWriter, error)
}

// SinkWriter receives one chunk's bytes and finalizes the object on Close.
type SinkWriter interface {
	io.Writer
	io.Closer
}

// Factory builds a sink from job options plus the cluster secrets store for
// credential lookup.
type Factory func(opts map[string]interface{}, secrets *secrets.Store) (Sink, error)

var registry = make(map[string]Factory)

func Register(name string, f Factory) {
	registry[name] = f
}

func ForName(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}
