// Package usecase provides application use cases.
//
// UseCases are reusable across HTTP, job workers, and CLI entry points. Each
// one takes store interfaces and a progress reporter, so workers run them
// against Postgres while tests run them against in-memory fakes.
package usecase

import (
	"context"
	"time"

	"vmshift.io/vmshift/internal/taskqueue"
)

// noopReporter satisfies taskqueue.ProgressReporter for callers that do not
// care about progress checkpoints.
type noopReporter struct{}

func (noopReporter) ReportProgress(context.Context, int64, int, int, string) {}

func orNoop(r taskqueue.ProgressReporter) taskqueue.ProgressReporter {
	if r == nil {
		return noopReporter{}
	}
	return r
}

// sleepUnits blocks for units multiples of the delay unit, returning early
// with the context error if the context is cancelled. A zero or negative unit
// makes it a no-op, which is what tests use.
func sleepUnits(ctx context.Context, unit time.Duration, units int) error {
	if unit <= 0 || units <= 0 {
		return nil
	}
	timer := time.NewTimer(unit * time.Duration(units))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
