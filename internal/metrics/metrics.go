// Package metrics exposes Prometheus collectors for the fetch pipeline.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// Result label values.
const (
	ResultPersisted = "persisted"
	ResultFetch     = string(jobdata.FailureFetch)
	ResultPersist   = string(jobdata.FailurePersist)
)

// Recorder owns the pipeline collectors and implements jobdata.Reporter.
type Recorder struct {
	targets       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	responses     *prometheus.CounterVec
	activeWorkers prometheus.Gauge
}

// NewRecorder registers the collectors against reg (the default registerer when nil).
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobdata_targets_total",
			Help: "Targets attempted, partitioned by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobdata_target_duration_seconds",
			Help:    "Wall time per target from request to persisted row.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"result"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobdata_http_responses_total",
			Help: "HTTP responses received from the endpoint, partitioned by status code.",
		}, []string{"code"}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobdata_active_workers",
			Help: "Number of workers currently draining targets.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		r.targets,
		r.fetchDuration,
		r.responses,
		r.activeWorkers,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register pipeline collector: %w", err)
		}
	}
	return r, nil
}

// Report records the outcome of one target.
func (r *Recorder) Report(_ context.Context, o jobdata.Outcome) {
	result := ResultPersisted
	if !o.Succeeded() {
		result = ResultFetch
		var failure *jobdata.Failure
		if errors.As(o.Err, &failure) {
			result = string(failure.Kind)
		}
	}
	r.targets.WithLabelValues(result).Inc()
	r.fetchDuration.WithLabelValues(result).Observe(o.Duration.Seconds())
}

// ObserveResponse counts a response status code.
func (r *Recorder) ObserveResponse(code int) {
	r.responses.WithLabelValues(strconv.Itoa(code)).Inc()
}

// WorkerStarted increments the active workers gauge.
func (r *Recorder) WorkerStarted() {
	r.activeWorkers.Inc()
}

// WorkerStopped decrements the active workers gauge.
func (r *Recorder) WorkerStopped() {
	r.activeWorkers.Dec()
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
