package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/jobs"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// Default base images picked when the request leaves base_image empty.
const (
	defaultWindowsBaseImage = "mcr.microsoft.com/windows/servercore:ltsc2022"
	defaultLinuxBaseImage   = "ubuntu:22.04"
)

// ListMigrations handles GET /api/v1/migrations.
func (s *Server) ListMigrations(c *gin.Context) {
	migrations, err := s.migrations.List(c.Request.Context(), migrationFilter(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if migrations == nil {
		migrations = []*domain.Migration{}
	}
	c.JSON(http.StatusOK, migrations)
}

// GetMigration handles GET /api/v1/migrations/:id.
func (s *Server) GetMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, migration)
}

// CreateMigration handles POST /api/v1/migrations.
func (s *Server) CreateMigration(c *gin.Context) {
	var req MigrationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}
	migration, err := req.toDomain()
	if err != nil {
		_ = c.Error(err)
		return
	}

	vm, err := s.vms.Get(c.Request.Context(), migration.VMID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(migration.VMID))
			return
		}
		_ = c.Error(err)
		return
	}
	if migration.BaseImage == "" {
		migration.BaseImage = defaultBaseImage(vm)
	}

	created, err := s.migrations.Create(c.Request.Context(), migration)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateMigration handles PUT /api/v1/migrations/:id.
func (s *Server) UpdateMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MigrationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, err.Error()))
		return
	}

	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := req.apply(migration); err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := s.migrations.Update(c.Request.Context(), migration)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMigration handles DELETE /api/v1/migrations/:id. Deleting a migration
// with an active workflow is refused.
func (s *Server) DeleteMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if migration.Status == domain.MigrationStatusInProgress {
		_ = c.Error(apperrors.MigrationConflictf("Cannot delete a migration that is in progress"))
		return
	}
	if err := s.migrations.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartMigration handles POST /api/v1/migrations/:id/start — flips the record
// to in_progress and enqueues the workflow job.
func (s *Server) StartMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !migration.Startable() {
		_ = c.Error(apperrors.MigrationConflictf("Migration is already %s", migration.Status))
		return
	}

	now := time.Now().UTC()
	migration.Status = domain.MigrationStatusInProgress
	migration.StartedAt = &now
	migration.ProgressPercent = 0
	migration.StatusMessage = "Migration started"
	migration.ErrorMessage = ""

	jobID, err := s.queue.Enqueue(c.Request.Context(), jobs.MigrationRunArgs{MigrationID: id})
	if err != nil {
		_ = c.Error(err)
		return
	}
	migration.JobID = &jobID

	if _, err := s.migrations.Update(c.Request.Context(), migration); err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.MigrationStarted()
	s.metrics.JobEnqueued(jobs.MigrationRunArgs{}.Kind())

	c.JSON(http.StatusOK, MigrationStartResponse{
		MigrationID: id,
		TaskID:      jobID,
		Status:      "started",
		Message:     "Migration task has been queued",
	})
}

// CancelMigration handles POST /api/v1/migrations/:id/cancel. The running job
// observes the cancelled status at its next stage boundary.
func (s *Server) CancelMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if migration.Status != domain.MigrationStatusInProgress {
		_ = c.Error(apperrors.MigrationConflictf("Cannot cancel a migration that is %s", migration.Status))
		return
	}

	migration.Status = domain.MigrationStatusCancelled
	migration.StatusMessage = "Migration cancelled by user"
	if _, err := s.migrations.Update(c.Request.Context(), migration); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Migration cancelled",
		"migration_id": id,
	})
}

// RollbackMigration handles POST /api/v1/migrations/:id/rollback — enqueues
// the rollback job, which reverts the record to cancelled.
func (s *Server) RollbackMigration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if migration.Status == domain.MigrationStatusPending {
		_ = c.Error(apperrors.MigrationConflictf("Migration has not started, nothing to roll back"))
		return
	}

	jobID, err := s.queue.Enqueue(c.Request.Context(), jobs.MigrationRollbackArgs{MigrationID: id})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.JobEnqueued(jobs.MigrationRollbackArgs{}.Kind())

	c.JSON(http.StatusOK, TaskQueuedResponse{
		TaskID:  jobID,
		Status:  "queued",
		Message: "Rollback task has been queued",
	})
}

// GetMigrationArtifacts handles GET /api/v1/migrations/:id/artifacts.
func (s *Server) GetMigrationArtifacts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, MigrationArtifactsResponse{
		MigrationID:        migration.ID,
		Dockerfile:         migration.DockerfileContent,
		KubernetesManifest: migration.KubernetesManifest,
		DockerCompose:      migration.DockerCompose,
	})
}

// GenerateMigrationArtifacts handles POST /api/v1/migrations/:id/generate-artifacts —
// renders the artifacts synchronously and persists them on the record.
func (s *Server) GenerateMigrationArtifacts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	migration, err := s.getMigration(c, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	vm, err := s.vms.Get(c.Request.Context(), migration.VMID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.VMNotFoundf(migration.VMID))
			return
		}
		_ = c.Error(err)
		return
	}

	artifacts, err := s.artifacts.Generate(migration, vm)
	if err != nil {
		_ = c.Error(fmt.Errorf("generate artifacts for migration %d: %w", id, err))
		return
	}
	migration.DockerfileContent = artifacts.Dockerfile
	migration.KubernetesManifest = artifacts.KubernetesManifest
	migration.DockerCompose = artifacts.DockerCompose

	if _, err := s.migrations.Update(c.Request.Context(), migration); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, MigrationArtifactsResponse{
		MigrationID:        migration.ID,
		Dockerfile:         artifacts.Dockerfile,
		KubernetesManifest: artifacts.KubernetesManifest,
		DockerCompose:      artifacts.DockerCompose,
	})
}

func (s *Server) getMigration(c *gin.Context, id int64) (*domain.Migration, error) {
	migration, err := s.migrations.Get(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.MigrationNotFoundf(id)
		}
		return nil, err
	}
	return migration, nil
}

func defaultBaseImage(vm *domain.VirtualMachine) string {
	if strings.EqualFold(vm.OSFamily, "windows") {
		return defaultWindowsBaseImage
	}
	return defaultLinuxBaseImage
}
