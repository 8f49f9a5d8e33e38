// Package dispatcher fans request targets out over a fixed-size worker pool.
package dispatcher

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
	"github.com/JakeFAU/jobdata-fetcher/internal/worker"
)

// Dispatcher owns the shared collaborators handed to every worker it spawns.
type Dispatcher struct {
	clients  jobdata.ClientProvider
	sink     jobdata.Sink
	reporter jobdata.Reporter
	observer worker.Observer
	cfg      worker.Config
	logger   *zap.Logger
}

// New creates a Dispatcher. reporter and observer may be nil.
func New(
	clients jobdata.ClientProvider,
	sink jobdata.Sink,
	reporter jobdata.Reporter,
	observer worker.Observer,
	cfg worker.Config,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		clients:  clients,
		sink:     sink,
		reporter: reporter,
		observer: observer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run starts exactly workerCount workers, feeds them every target and blocks until all
// of them have drained. Per-target failures are only visible through the reporter.
//
// Cancelling ctx stops the feed; targets not yet handed to a worker are skipped and logged.
func (d *Dispatcher) Run(ctx context.Context, targets []jobdata.Target, workerCount int) {
	if workerCount <= 0 {
		d.logger.Warn("non-positive worker count, running with one worker", zap.Int("requested", workerCount))
		workerCount = 1
	}
	d.logger.Info("dispatch started", zap.Int("targets", len(targets)), zap.Int("workers", workerCount))

	feed := make(chan jobdata.Target)
	var group errgroup.Group
	for id := range workerCount {
		w := worker.New(
			id,
			d.clients,
			d.sink,
			d.reporter,
			d.observer,
			d.cfg,
			d.logger.Named("worker").With(zap.Int("worker", id)),
		)
		group.Go(func() error {
			w.Run(ctx, feed)
			return nil
		})
	}

	fed := d.feed(ctx, feed, targets)
	close(feed)
	_ = group.Wait()

	if skipped := len(targets) - fed; skipped > 0 {
		d.logger.Warn("dispatch interrupted", zap.Int("skipped", skipped), zap.Error(ctx.Err()))
	}
	d.logger.Info("dispatch finished", zap.Int("attempted", fed))
}

func (d *Dispatcher) feed(ctx context.Context, feed chan<- jobdata.Target, targets []jobdata.Target) int {
	for i, t := range targets {
		select {
		case <-ctx.Done():
			return i
		case feed <- t:
		}
	}
	return len(targets)
}
