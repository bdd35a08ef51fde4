// Package jobs defines River job types for the discovery and migration
// queues. Args types carry only record IDs; workers re-read authoritative
// state from the store on every attempt.
package jobs

import (
	"context"
)

// resultStore persists job results and errors for status polling. Satisfied
// by taskqueue.Queue; tests use a fake.
type resultStore interface {
	RecordResult(ctx context.Context, jobID int64, result any) error
	RecordError(ctx context.Context, jobID int64, message string)
}

// noopResults is used when a worker is constructed without a result store.
type noopResults struct{}

func (noopResults) RecordResult(context.Context, int64, any) error { return nil }
func (noopResults) RecordError(context.Context, int64, string)     {}

func orNoopResults(rs resultStore) resultStore {
	if rs == nil {
		return noopResults{}
	}
	return rs
}
