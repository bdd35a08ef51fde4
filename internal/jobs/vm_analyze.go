package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"vmshift.io/vmshift/internal/metrics"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/taskqueue"
	"vmshift.io/vmshift/internal/usecase"
)

// VMAnalyzeArgs identifies the VM to analyze.
type VMAnalyzeArgs struct {
	VMID int64 `json:"vm_id"`
}

func (VMAnalyzeArgs) Kind() string { return "vm_analyze" }

func (VMAnalyzeArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: taskqueue.QueueDiscovery}
}

// VMAnalyzeWorker inspects a VM and marks it ready for migration.
type VMAnalyzeWorker struct {
	river.WorkerDefaults[VMAnalyzeArgs]
	analyze *usecase.AnalyzeVMUseCase
	results resultStore
	metrics *metrics.Metrics
}

func NewVMAnalyzeWorker(analyze *usecase.AnalyzeVMUseCase, results resultStore) *VMAnalyzeWorker {
	return &VMAnalyzeWorker{analyze: analyze, results: orNoopResults(results)}
}

// WithMetrics attaches the metrics collectors (optional dependency).
func (w *VMAnalyzeWorker) WithMetrics(m *metrics.Metrics) *VMAnalyzeWorker {
	w.metrics = m
	return w
}

func (w *VMAnalyzeWorker) Work(ctx context.Context, job *river.Job[VMAnalyzeArgs]) error {
	logger.Info("processing analysis job",
		zap.Int64("vm_id", job.Args.VMID),
		zap.Int64("job_id", job.ID),
	)

	out, err := w.analyze.Execute(ctx, usecase.AnalyzeVMInput{
		VMID:  job.Args.VMID,
		JobID: job.ID,
	})
	if err != nil {
		w.metrics.VMAnalyzed("failed")
		w.results.RecordError(ctx, job.ID, err.Error())
		return fmt.Errorf("analyze vm %d: %w", job.Args.VMID, err)
	}
	w.metrics.VMAnalyzed("success")

	if err := w.results.RecordResult(ctx, job.ID, out); err != nil {
		logger.Warn("recording analysis result failed",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
	}
	return nil
}
