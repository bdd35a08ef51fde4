// Package app is the composition root: bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"vmshift.io/vmshift/internal/api/handlers"
	"vmshift.io/vmshift/internal/config"
	"vmshift.io/vmshift/internal/infrastructure"
	"vmshift.io/vmshift/internal/jobs"
	"vmshift.io/vmshift/internal/metrics"
	"vmshift.io/vmshift/internal/pkg/worker"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/service"
	"vmshift.io/vmshift/internal/taskqueue"
	"vmshift.io/vmshift/internal/usecase"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Queue   *taskqueue.Queue
	Metrics *metrics.Metrics
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		ReportPoolSize:  cfg.Worker.ReportPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	vms := repository.NewPostgresVMStore(db.Pool)
	migrations := repository.NewPostgresMigrationStore(db.Pool)

	artifacts, err := service.NewArtifactGenerator()
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init artifact generator: %w", err)
	}

	collectors := metrics.New()

	// The queue is both the enqueue/status surface and the progress reporter
	// the workers write through; the River client is attached once workers
	// are registered.
	queue := taskqueue.New(nil, db.Pool, pools)

	runMigration := usecase.NewRunMigrationUseCase(migrations, vms, artifacts, queue, cfg.Workflow.DelayUnit)
	rollback := usecase.NewRollbackMigrationUseCase(migrations, queue, cfg.Workflow.DelayUnit)
	discover := usecase.NewDiscoverVMsUseCase(vms, queue, cfg.Workflow.DelayUnit)
	analyze := usecase.NewAnalyzeVMUseCase(vms, queue, cfg.Workflow.DelayUnit)

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewMigrationRunWorker(runMigration, queue).WithMetrics(collectors))
	river.AddWorker(workers, jobs.NewMigrationRollbackWorker(rollback, queue))
	river.AddWorker(workers, jobs.NewVMDiscoverWorker(discover, queue).WithMetrics(collectors))
	river.AddWorker(workers, jobs.NewVMAnalyzeWorker(analyze, queue).WithMetrics(collectors))
	river.AddWorker(workers, jobs.NewTaskCleanupWorker(queue, resultRetention(cfg)))

	if err := db.InitRiverClient(workers, cfg.Queue); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river client: %w", err)
	}
	queue.AttachClient(db.RiverClient)

	// Hourly sweep of stale progress rows; run once on startup so restarts
	// do not accumulate backlog.
	db.RiverClient.PeriodicJobs().Add(
		river.NewPeriodicJob(
			river.PeriodicInterval(time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.TaskCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	)

	server := handlers.NewServer(handlers.ServerDeps{
		VMs:        vms,
		Migrations: migrations,
		Queue:      queue,
		DB:         db.Pool,
		Artifacts:  artifacts,
		Metrics:    collectors,
	})

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, collectors),
		DB:      db,
		Pools:   pools,
		Queue:   queue,
		Metrics: collectors,
	}, nil
}

func resultRetention(cfg *config.Config) time.Duration {
	if cfg.Queue.ResultRetention > 0 {
		return cfg.Queue.ResultRetention
	}
	return jobs.DefaultResultRetention
}
