package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/metrics"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/taskqueue"
	"vmshift.io/vmshift/internal/usecase"
)

// MigrationRunArgs identifies the migration workflow to execute.
type MigrationRunArgs struct {
	MigrationID int64 `json:"migration_id"`
}

func (MigrationRunArgs) Kind() string { return "migration_run" }

// Retry ceiling comes from the client-level default (queue.max_attempts).
func (MigrationRunArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: taskqueue.QueueMigration}
}

// MigrationRunWorker executes the four-stage migration workflow. The workflow
// driver persists all domain state itself; the worker only bridges the job
// lifecycle: result recording on success, error recording plus a returned
// error on failure so the job is retried and, after the final attempt,
// discarded.
type MigrationRunWorker struct {
	river.WorkerDefaults[MigrationRunArgs]
	runner  *usecase.RunMigrationUseCase
	results resultStore
	metrics *metrics.Metrics
}

func NewMigrationRunWorker(runner *usecase.RunMigrationUseCase, results resultStore) *MigrationRunWorker {
	return &MigrationRunWorker{runner: runner, results: orNoopResults(results)}
}

// WithMetrics attaches the metrics collectors (optional dependency).
func (w *MigrationRunWorker) WithMetrics(m *metrics.Metrics) *MigrationRunWorker {
	w.metrics = m
	return w
}

func (w *MigrationRunWorker) Work(ctx context.Context, job *river.Job[MigrationRunArgs]) error {
	logger.Info("processing migration job",
		zap.Int64("migration_id", job.Args.MigrationID),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)

	started := time.Now()
	out, err := w.runner.Execute(ctx, usecase.RunMigrationInput{
		MigrationID: job.Args.MigrationID,
		JobID:       job.ID,
	})
	if err != nil {
		w.metrics.MigrationFinished("failed", time.Since(started))
		w.results.RecordError(ctx, job.ID, err.Error())
		return fmt.Errorf("migration %d: %w", job.Args.MigrationID, err)
	}
	w.metrics.MigrationFinished(out.Status, time.Since(started))

	if err := w.results.RecordResult(ctx, job.ID, out); err != nil {
		logger.Warn("recording migration result failed",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
	}
	return nil
}
