package report

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// Summary is a point-in-time snapshot of a Tally.
type Summary struct {
	Attempted       int64
	Persisted       int64
	FetchFailures   int64
	PersistFailures int64
}

// Failed returns the number of targets that did not end up in the store.
func (s Summary) Failed() int64 {
	return s.FetchFailures + s.PersistFailures
}

// Tally counts outcomes. The pipeline itself never reads it; callers that want a
// failing exit status consult it after the run.
type Tally struct {
	attempted       atomic.Int64
	persisted       atomic.Int64
	fetchFailures   atomic.Int64
	persistFailures atomic.Int64
}

// NewTally returns a zeroed Tally.
func NewTally() *Tally {
	return &Tally{}
}

// Report counts the outcome.
func (t *Tally) Report(_ context.Context, o jobdata.Outcome) {
	t.attempted.Add(1)
	if o.Succeeded() {
		t.persisted.Add(1)
		return
	}
	var failure *jobdata.Failure
	if errors.As(o.Err, &failure) && failure.Kind == jobdata.FailurePersist {
		t.persistFailures.Add(1)
		return
	}
	t.fetchFailures.Add(1)
}

// Summary snapshots the counters.
func (t *Tally) Summary() Summary {
	return Summary{
		Attempted:       t.attempted.Load(),
		Persisted:       t.persisted.Load(),
		FetchFailures:   t.fetchFailures.Load(),
		PersistFailures: t.persistFailures.Load(),
	}
}
