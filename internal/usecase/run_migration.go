package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/service"
	"vmshift.io/vmshift/internal/taskqueue"
)

// RunMigrationInput identifies the migration to execute and the queue job
// driving it.
type RunMigrationInput struct {
	MigrationID int64 `json:"migration_id"`
	JobID       int64 `json:"job_id"`
}

// RunMigrationOutput is the job result payload for a successful run.
type RunMigrationOutput struct {
	Status         string `json:"status"`
	MigrationID    int64  `json:"migration_id"`
	TargetPlatform string `json:"target_platform"`
	Message        string `json:"message"`
}

// ArtifactGenerator renders container artifacts for one migration. Satisfied
// by service.ArtifactGenerator.
type ArtifactGenerator interface {
	Generate(m *domain.Migration, vm *domain.VirtualMachine) (*service.Artifacts, error)
}

// RunMigrationUseCase drives the four-stage migration workflow:
// generate artifacts, build image, push image, deploy. Build, push, and
// deploy are simulated; the sequencing, persisted state transitions, and
// failure handling are the contract.
type RunMigrationUseCase struct {
	migrations repository.MigrationStore
	vms        repository.VMStore
	artifacts  ArtifactGenerator
	reporter   taskqueue.ProgressReporter
	delayUnit  time.Duration
}

func NewRunMigrationUseCase(
	migrations repository.MigrationStore,
	vms repository.VMStore,
	artifacts ArtifactGenerator,
	reporter taskqueue.ProgressReporter,
	delayUnit time.Duration,
) *RunMigrationUseCase {
	return &RunMigrationUseCase{
		migrations: migrations,
		vms:        vms,
		artifacts:  artifacts,
		reporter:   orNoop(reporter),
		delayUnit:  delayUnit,
	}
}

// Execute runs the migration workflow to a terminal state.
//
// NotFound for the migration or its VM surfaces before any state mutation.
// Any stage failure persists status failed with the captured message, then
// propagates so the job itself is marked failed as well. A cancellation flag
// set on the record while a stage is running takes effect at the next stage
// boundary.
func (uc *RunMigrationUseCase) Execute(ctx context.Context, input RunMigrationInput) (*RunMigrationOutput, error) {
	logger.Info("starting migration workflow",
		zap.Int64("migration_id", input.MigrationID),
		zap.Int64("job_id", input.JobID),
	)

	migration, err := uc.migrations.Get(ctx, input.MigrationID)
	if err != nil {
		return nil, err
	}
	// A cancel may land between enqueue and pickup; honor it instead of
	// resurrecting a terminal record.
	if migration.Status == domain.MigrationStatusCancelled {
		return uc.cancelledOrError(nil, nil)
	}
	vm, err := uc.vms.Get(ctx, migration.VMID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.VMNotFoundf(migration.VMID)
		}
		return nil, err
	}

	// A retried job finds the record already failed from the prior attempt.
	// Re-arm it so observers see an active workflow again.
	if migration.Status == domain.MigrationStatusFailed {
		migration.Status = domain.MigrationStatusInProgress
		migration.ProgressPercent = 0
		migration.ErrorMessage = ""
		migration.StatusMessage = "Migration restarted"
		if migration, err = uc.migrations.Update(ctx, migration); err != nil {
			return nil, fmt.Errorf("re-arm migration %d: %w", migration.ID, err)
		}
	}

	out, err := uc.run(ctx, migration, vm, input.JobID)
	if err != nil {
		uc.markFailed(ctx, input.MigrationID, err)
		return nil, err
	}
	return out, nil
}

func (uc *RunMigrationUseCase) run(ctx context.Context, migration *domain.Migration, vm *domain.VirtualMachine, jobID int64) (*RunMigrationOutput, error) {
	// Stage 1: generate artifacts (5 -> 25)
	uc.reporter.ReportProgress(ctx, jobID, 5, 100, "Generating container artifacts...")
	migration.Status = domain.MigrationStatusGeneratingArtifacts
	migration.ProgressPercent = 5
	migration.StatusMessage = "Generating Dockerfile and manifests"
	migration, err := uc.migrations.Update(ctx, migration)
	if err != nil {
		return nil, fmt.Errorf("persist stage state: %w", err)
	}

	// Returned bare: markFailed persists exactly the raised message.
	artifacts, err := uc.artifacts.Generate(migration, vm)
	if err != nil {
		return nil, err
	}
	migration.DockerfileContent = artifacts.Dockerfile
	migration.KubernetesManifest = artifacts.KubernetesManifest
	migration.DockerCompose = artifacts.DockerCompose
	migration.ProgressPercent = 25
	if migration, err = uc.migrations.Update(ctx, migration); err != nil {
		return nil, fmt.Errorf("persist artifacts: %w", err)
	}
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}

	// Stage 2: build image (30 -> 50)
	if migration, err = uc.enterStage(ctx, migration, jobID, stageEntry{
		report:   "Building container image...",
		status:   domain.MigrationStatusBuildingImage,
		progress: 30,
		message:  "Building Docker image",
	}); err != nil || migration == nil {
		return uc.cancelledOrError(migration, err)
	}
	if err := sleepUnits(ctx, uc.delayUnit, 3); err != nil {
		return nil, err
	}
	migration.ProgressPercent = 50
	if migration, err = uc.migrations.Update(ctx, migration); err != nil {
		return nil, fmt.Errorf("persist stage state: %w", err)
	}

	// Stage 3: push image (55 -> 75)
	if migration, err = uc.enterStage(ctx, migration, jobID, stageEntry{
		report:   "Pushing image to registry...",
		status:   domain.MigrationStatusPushingImage,
		progress: 55,
		message:  "Pushing to container registry",
	}); err != nil || migration == nil {
		return uc.cancelledOrError(migration, err)
	}
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}
	migration.ProgressPercent = 75
	if migration, err = uc.migrations.Update(ctx, migration); err != nil {
		return nil, fmt.Errorf("persist stage state: %w", err)
	}

	// Stage 4: deploy (80 -> 100)
	if migration, err = uc.enterStage(ctx, migration, jobID, stageEntry{
		report:   "Deploying to cluster...",
		status:   domain.MigrationStatusDeploying,
		progress: 80,
		message:  fmt.Sprintf("Deploying to %s", migration.TargetPlatform),
	}); err != nil || migration == nil {
		return uc.cancelledOrError(migration, err)
	}
	if err := sleepUnits(ctx, uc.delayUnit, 3); err != nil {
		return nil, err
	}

	// Terminal write: migration completed plus VM cascade, one transaction.
	now := time.Now().UTC()
	migration.Status = domain.MigrationStatusCompleted
	migration.ProgressPercent = 100
	migration.StatusMessage = "Migration completed successfully"
	migration.CompletedAt = &now
	vm.Status = domain.VMStatusCompleted
	if err := uc.migrations.CompleteWithVM(ctx, migration, vm); err != nil {
		return nil, fmt.Errorf("persist completion: %w", err)
	}

	logger.Info("migration workflow completed", zap.Int64("migration_id", migration.ID))
	return &RunMigrationOutput{
		Status:         "success",
		MigrationID:    migration.ID,
		TargetPlatform: string(migration.TargetPlatform),
		Message:        "Migration completed successfully",
	}, nil
}

type stageEntry struct {
	report   string
	status   domain.MigrationStatus
	progress int
	message  string
}

// enterStage re-reads the record at the stage boundary so a cancellation flag
// set by the API takes effect before the next stage starts. It returns
// (nil, nil) when the workflow was cancelled.
func (uc *RunMigrationUseCase) enterStage(ctx context.Context, migration *domain.Migration, jobID int64, entry stageEntry) (*domain.Migration, error) {
	current, err := uc.migrations.Get(ctx, migration.ID)
	if err != nil {
		return nil, fmt.Errorf("reload migration %d: %w", migration.ID, err)
	}
	if current.Status == domain.MigrationStatusCancelled {
		logger.Info("migration cancelled at stage boundary",
			zap.Int64("migration_id", migration.ID),
			zap.String("next_stage", string(entry.status)),
		)
		return nil, nil
	}

	uc.reporter.ReportProgress(ctx, jobID, entry.progress, 100, entry.report)
	migration.Status = entry.status
	migration.ProgressPercent = entry.progress
	migration.StatusMessage = entry.message
	migration, err = uc.migrations.Update(ctx, migration)
	if err != nil {
		return nil, fmt.Errorf("persist stage state: %w", err)
	}
	return migration, nil
}

// cancelledOrError translates enterStage's (nil, nil) cancellation signal
// into a non-error result so the job is not retried.
func (uc *RunMigrationUseCase) cancelledOrError(migration *domain.Migration, err error) (*RunMigrationOutput, error) {
	if err != nil {
		return nil, err
	}
	return &RunMigrationOutput{
		Status:  "cancelled",
		Message: "Migration cancelled before completion",
	}, nil
}

// markFailed persists the failure into the record so the authoritative state
// is queryable even if the job-queue result is lost. Best effort: the write
// itself may be what failed.
func (uc *RunMigrationUseCase) markFailed(ctx context.Context, migrationID int64, cause error) {
	logger.Error("migration workflow failed",
		zap.Int64("migration_id", migrationID),
		zap.Error(cause),
	)
	migration, err := uc.migrations.Get(ctx, migrationID)
	if err != nil {
		return
	}
	migration.Status = domain.MigrationStatusFailed
	migration.ErrorMessage = cause.Error()
	migration.StatusMessage = "Migration failed"
	if _, err := uc.migrations.Update(ctx, migration); err != nil {
		logger.Error("persisting failure state failed",
			zap.Int64("migration_id", migrationID),
			zap.Error(err),
		)
	}
}
