package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/taskqueue"
	"vmshift.io/vmshift/internal/usecase"
)

// MigrationRollbackArgs identifies the migration to roll back.
type MigrationRollbackArgs struct {
	MigrationID int64 `json:"migration_id"`
}

func (MigrationRollbackArgs) Kind() string { return "migration_rollback" }

func (MigrationRollbackArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: taskqueue.QueueMigration}
}

// MigrationRollbackWorker marks a migration as rolled back.
type MigrationRollbackWorker struct {
	river.WorkerDefaults[MigrationRollbackArgs]
	rollback *usecase.RollbackMigrationUseCase
	results  resultStore
}

func NewMigrationRollbackWorker(rollback *usecase.RollbackMigrationUseCase, results resultStore) *MigrationRollbackWorker {
	return &MigrationRollbackWorker{rollback: rollback, results: orNoopResults(results)}
}

func (w *MigrationRollbackWorker) Work(ctx context.Context, job *river.Job[MigrationRollbackArgs]) error {
	logger.Info("processing rollback job",
		zap.Int64("migration_id", job.Args.MigrationID),
		zap.Int64("job_id", job.ID),
	)

	out, err := w.rollback.Execute(ctx, usecase.RollbackMigrationInput{
		MigrationID: job.Args.MigrationID,
		JobID:       job.ID,
	})
	if err != nil {
		w.results.RecordError(ctx, job.ID, err.Error())
		return fmt.Errorf("rollback migration %d: %w", job.Args.MigrationID, err)
	}

	if err := w.results.RecordResult(ctx, job.ID, out); err != nil {
		logger.Warn("recording rollback result failed",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
	}
	return nil
}
