package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/pkg/logger"
)

const (
	// DefaultResultRetention matches the hourly cleanup cadence: progress and
	// result rows are kept for one hour after their last write.
	DefaultResultRetention = time.Hour
)

// TaskCleanupArgs is a periodic maintenance job that removes stale progress
// and result rows left behind by finished jobs.
type TaskCleanupArgs struct{}

func (TaskCleanupArgs) Kind() string { return "task_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued per hour.
func (TaskCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// progressJanitor deletes progress rows older than a cutoff. Satisfied by
// taskqueue.Queue.
type progressJanitor interface {
	DeleteStaleProgress(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TaskCleanupWorker deletes progress rows older than the configured retention.
type TaskCleanupWorker struct {
	river.WorkerDefaults[TaskCleanupArgs]
	janitor   progressJanitor
	retention time.Duration
}

// NewTaskCleanupWorker creates a cleanup worker. Non-positive retention falls
// back to the one-hour default.
func NewTaskCleanupWorker(janitor progressJanitor, retention time.Duration) *TaskCleanupWorker {
	if retention <= 0 {
		retention = DefaultResultRetention
	}
	return &TaskCleanupWorker{janitor: janitor, retention: retention}
}

func (w *TaskCleanupWorker) Work(ctx context.Context, _ *river.Job[TaskCleanupArgs]) error {
	if w == nil || w.janitor == nil {
		return fmt.Errorf("task cleanup worker is not initialized")
	}

	deleted, err := w.janitor.DeleteStaleProgress(ctx, w.retention)
	if err != nil {
		return fmt.Errorf("delete stale progress rows: %w", err)
	}

	logger.Info("task result cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.Duration("retention", w.retention),
	)
	return nil
}
