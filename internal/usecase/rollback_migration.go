package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/taskqueue"
)

// RollbackMigrationInput identifies the migration to roll back.
type RollbackMigrationInput struct {
	MigrationID int64 `json:"migration_id"`
	JobID       int64 `json:"job_id"`
}

// RollbackMigrationOutput is the job result payload for a rollback.
type RollbackMigrationOutput struct {
	Status      string `json:"status"`
	MigrationID int64  `json:"migration_id"`
	Message     string `json:"message"`
}

// RollbackMigrationUseCase marks a failed or cancelled migration as rolled
// back. Status-only: it does not reverse artifact or image state.
type RollbackMigrationUseCase struct {
	migrations repository.MigrationStore
	reporter   taskqueue.ProgressReporter
	delayUnit  time.Duration
}

func NewRollbackMigrationUseCase(
	migrations repository.MigrationStore,
	reporter taskqueue.ProgressReporter,
	delayUnit time.Duration,
) *RollbackMigrationUseCase {
	return &RollbackMigrationUseCase{
		migrations: migrations,
		reporter:   orNoop(reporter),
		delayUnit:  delayUnit,
	}
}

func (uc *RollbackMigrationUseCase) Execute(ctx context.Context, input RollbackMigrationInput) (*RollbackMigrationOutput, error) {
	logger.Info("rolling back migration", zap.Int64("migration_id", input.MigrationID))

	migration, err := uc.migrations.Get(ctx, input.MigrationID)
	if err != nil {
		return nil, err
	}

	uc.reporter.ReportProgress(ctx, input.JobID, 50, 100, "Rolling back deployment...")
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}

	migration.Status = domain.MigrationStatusCancelled
	migration.StatusMessage = "Migration rolled back"
	if _, err := uc.migrations.Update(ctx, migration); err != nil {
		return nil, fmt.Errorf("persist rollback: %w", err)
	}

	return &RollbackMigrationOutput{
		Status:      "success",
		MigrationID: input.MigrationID,
		Message:     "Migration rolled back successfully",
	}, nil
}
