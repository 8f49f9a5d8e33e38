package report

import (
	"context"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// Multi forwards every outcome to each non-nil reporter in order.
type Multi []jobdata.Reporter

// Report implements jobdata.Reporter.
func (m Multi) Report(ctx context.Context, o jobdata.Outcome) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, o)
		}
	}
}
