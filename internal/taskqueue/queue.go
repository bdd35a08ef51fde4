// Package taskqueue wraps the River job queue and its result store.
//
// River schedules and retries jobs but has no per-job progress channel, so
// the queue pairs every job with a row in job_progress: workers report
// progress and terminal results there, and status reads merge the River job
// row with the progress row. Persistence of domain state stays with the
// repositories; this package only tracks job-level state.
package taskqueue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"vmshift.io/vmshift/internal/pkg/worker"
)

// Queue names. Discovery-class and migration-class jobs ride separate queues
// so migration throughput is not starved by discovery load.
const (
	QueueDiscovery = "discovery"
	QueueMigration = "migration"
)

// Task states exposed to status consumers.
const (
	StatePending  = "PENDING"
	StateProgress = "PROGRESS"
	StateSuccess  = "SUCCESS"
	StateFailure  = "FAILURE"
	StateRevoked  = "REVOKED"
)

// riverClient is the subset of river.Client the queue consumes, narrowed so
// status projections can be exercised against a fake.
type riverClient interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
	JobGet(ctx context.Context, id int64) (*rivertype.JobRow, error)
	JobCancel(ctx context.Context, id int64) (*rivertype.JobRow, error)
	JobList(ctx context.Context, params *river.JobListParams) (*river.JobListResult, error)
	QueueList(ctx context.Context, params *river.QueueListParams) (*river.QueueListResult, error)
}

// Queue is the job queue abstraction consumed by triggers, workers, and the
// task status API.
type Queue struct {
	river riverClient
	pool  *pgxpool.Pool
	pools *worker.Pools
}

// New creates a Queue over an initialized River client and the shared pool.
// pools may be nil; progress reports then write synchronously.
func New(riverClient *river.Client[pgx.Tx], pool *pgxpool.Pool, pools *worker.Pools) *Queue {
	return &Queue{river: riverClient, pool: pool, pools: pools}
}

// AttachClient binds the River client after worker registration. Progress
// reporting and the result store only need the pool, so workers may hold the
// Queue before the client exists; enqueue and status calls require the
// client to be attached first.
func (q *Queue) AttachClient(riverClient *river.Client[pgx.Tx]) {
	q.river = riverClient
}

// Enqueue inserts a job and returns its handle ID. The args type determines
// kind, queue, and retry ceiling via its InsertOpts.
func (q *Queue) Enqueue(ctx context.Context, args river.JobArgs) (int64, error) {
	res, err := q.river.Insert(ctx, args, nil)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
	return res.Job.ID, nil
}

// Revoke cancels a job. Cancellation is cooperative: a running job finishes
// its current stage before the cancellation is observed. terminate currently
// carries no extra force; it is accepted for API compatibility.
func (q *Queue) Revoke(ctx context.Context, jobID int64, terminate bool) error {
	if _, err := q.river.JobCancel(ctx, jobID); err != nil {
		return fmt.Errorf("revoke job %d (terminate=%t): %w", jobID, terminate, err)
	}
	return nil
}

// Ping verifies both halves of the queue: the broker tables and the result
// store live in the same database, so one round trip covers both.
func (q *Queue) Ping(ctx context.Context) error {
	if q.pool == nil {
		return fmt.Errorf("queue database not configured")
	}
	if err := q.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue database: %w", err)
	}
	return nil
}
