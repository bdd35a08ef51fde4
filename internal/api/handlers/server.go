// Package handlers implements the HTTP API for VMShift.
//
// Handlers validate and convert at the boundary, delegate to stores and the
// job queue, and push errors through the ErrorHandler middleware via
// c.Error().
package handlers

import (
	"context"

	"github.com/riverqueue/river"

	"vmshift.io/vmshift/internal/metrics"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/service"
	"vmshift.io/vmshift/internal/taskqueue"
)

// TaskQueue is the job-queue surface the API consumes. Satisfied by
// taskqueue.Queue.
type TaskQueue interface {
	Enqueue(ctx context.Context, args river.JobArgs) (int64, error)
	GetStatus(ctx context.Context, jobID int64) (*taskqueue.TaskStatus, error)
	Revoke(ctx context.Context, jobID int64, terminate bool) error
	ListActive(ctx context.Context) (*taskqueue.ActiveJobs, error)
	WorkerStatus(ctx context.Context) (*taskqueue.WorkerReport, error)
	Ping(ctx context.Context) error
}

// DBPinger reports database reachability for health probes. Satisfied by
// pgxpool.Pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Server implements all API handlers.
type Server struct {
	vms        repository.VMStore
	migrations repository.MigrationStore
	queue      TaskQueue
	db         DBPinger
	artifacts  *service.ArtifactGenerator
	metrics    *metrics.Metrics
}

// ServerDeps holds all dependencies for creating a Server. Manual DI.
type ServerDeps struct {
	VMs        repository.VMStore
	Migrations repository.MigrationStore
	Queue      TaskQueue
	DB         DBPinger
	Artifacts  *service.ArtifactGenerator
	Metrics    *metrics.Metrics
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		vms:        deps.VMs,
		migrations: deps.Migrations,
		queue:      deps.Queue,
		db:         deps.DB,
		artifacts:  deps.Artifacts,
		metrics:    deps.Metrics,
	}
}
