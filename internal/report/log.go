package report

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// LogReporter emits one structured log line per outcome.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter wires a zap logger to the Reporter interface.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Report logs successes at info and failures at error.
func (r *LogReporter) Report(_ context.Context, o jobdata.Outcome) {
	fields := []zap.Field{
		zap.Int("worker", o.WorkerID),
		zap.String("id", o.Target.ID),
		zap.String("url", o.Target.URL),
		zap.Duration("dur", o.Duration),
	}
	if o.Succeeded() {
		if o.Row != nil {
			fields = append(fields,
				zap.Int64("pk_id", o.Row.PKID),
				zap.String("job_id", o.Row.JobID),
				zap.String("app_name", o.Row.AppName),
				zap.String("state", o.Row.State),
				zap.String("date_created", o.Row.DateCreated),
			)
		}
		r.logger.Info("record persisted", fields...)
		return
	}

	var failure *jobdata.Failure
	if errors.As(o.Err, &failure) {
		fields = append(fields, zap.String("kind", string(failure.Kind)), zap.Error(failure.Err))
	} else {
		fields = append(fields, zap.Error(o.Err))
	}
	r.logger.Error("target failed", fields...)
}
