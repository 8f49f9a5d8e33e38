package jobdata

import (
	"context"
	"net/http"
)

// Sink persists rows through a single shared store connection.
// Insert must be safe for concurrent use.
type Sink interface {
	InitSchema(ctx context.Context) error
	Insert(ctx context.Context, row Row) error
	Close() error
}

// ClientProvider hands each worker its own reusable HTTP client.
type ClientProvider interface {
	Get(workerID int) *http.Client
}

// Reporter receives one Outcome per attempted target. Implementations must be safe
// for concurrent use because every worker reports directly.
type Reporter interface {
	Report(ctx context.Context, outcome Outcome)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, outcome Outcome)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}
