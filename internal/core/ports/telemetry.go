package ports

import (
	"context"
	"io"
)

// Telemetry records the progress of sync runs.
type Telemetry interface {
	// Record starts a vertex with the given name.
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes the recording.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns a writer for progress output.
	Stdout() io.Writer
	// Complete marks the vertex as finished, successfully when err is nil.
	Complete(err error)
	// Cached marks the vertex as having nothing to do.
	Cached()
}
