// Package worker implements the per-target fetch, decode and persist loop.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

const defaultMaxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after JSON value")

// Config controls Worker behavior.
type Config struct {
	UserAgent string
	// MaxBodyBytes caps how much of a response body is decoded.
	MaxBodyBytes int64
}

// Observer receives low-level signals for metrics. It may be nil.
type Observer interface {
	ObserveResponse(code int)
	WorkerStarted()
	WorkerStopped()
}

// Worker drains targets sequentially using the HTTP client the pool assigns to its ID.
type Worker struct {
	id       int
	clients  jobdata.ClientProvider
	sink     jobdata.Sink
	reporter jobdata.Reporter
	observer Observer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New constructs a Worker.
func New(
	id int,
	clients jobdata.ClientProvider,
	sink jobdata.Sink,
	reporter jobdata.Reporter,
	observer Observer,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Worker{
		id:       id,
		clients:  clients,
		sink:     sink,
		reporter: reporter,
		observer: observer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes targets until the channel is closed. Each target is attempted once and
// its outcome reported; a failure never stops the loop.
func (w *Worker) Run(ctx context.Context, targets <-chan jobdata.Target) {
	if w.observer != nil {
		w.observer.WorkerStarted()
		defer w.observer.WorkerStopped()
	}
	processed := 0
	for t := range targets {
		outcome := w.Process(ctx, t)
		if w.reporter != nil {
			w.reporter.Report(ctx, outcome)
		}
		processed++
	}
	w.logger.Debug("worker drained", zap.Int("processed", processed))
}

// Process fetches one target and persists the decoded row.
func (w *Worker) Process(ctx context.Context, t jobdata.Target) jobdata.Outcome {
	start := w.now()
	outcome := jobdata.Outcome{WorkerID: w.id, Target: t}

	row, err := w.fetch(ctx, t)
	if err != nil {
		outcome.Err = jobdata.NewFailure(jobdata.FailureFetch, t, err)
		outcome.Duration = w.now().Sub(start)
		return outcome
	}
	if err := w.sink.Insert(ctx, row); err != nil {
		outcome.Err = jobdata.NewFailure(jobdata.FailurePersist, t, err)
		outcome.Duration = w.now().Sub(start)
		return outcome
	}
	outcome.Row = &row
	outcome.Duration = w.now().Sub(start)
	return outcome
}

func (w *Worker) fetch(ctx context.Context, t jobdata.Target) (jobdata.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return jobdata.Row{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.clients.Get(w.id).Do(req)
	if err != nil {
		return jobdata.Row{}, fmt.Errorf("get: %w", err)
	}
	defer func() {
		// Drain so the keep-alive connection goes back to this worker's transport.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, w.cfg.MaxBodyBytes))
		_ = resp.Body.Close()
	}()
	if w.observer != nil {
		w.observer.ObserveResponse(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return jobdata.Row{}, fmt.Errorf("%w %d", jobdata.ErrUnexpectedStatus, resp.StatusCode)
	}

	rec, err := decodeRecord(io.LimitReader(resp.Body, w.cfg.MaxBodyBytes))
	if err != nil {
		return jobdata.Row{}, fmt.Errorf("decode body: %w", err)
	}
	row, err := rec.ToRow()
	if err != nil {
		return jobdata.Row{}, fmt.Errorf("decode body: %w", err)
	}
	return row, nil
}

// decodeRecord reads exactly one JSON object from r. Anything but whitespace after it
// makes the body malformed.
func decodeRecord(r io.Reader) (jobdata.Record, error) {
	var rec jobdata.Record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rec); err != nil {
		return jobdata.Record{}, err
	}
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return rec, nil
	case err == nil:
		return jobdata.Record{}, errTrailingData
	default:
		return jobdata.Record{}, fmt.Errorf("%w: %w", errTrailingData, err)
	}
}
