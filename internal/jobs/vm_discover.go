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

// VMDiscoverArgs carries hypervisor connection parameters for a discovery
// scan. The password travels through the job row; a real integration would
// use a credential reference instead.
type VMDiscoverArgs struct {
	HypervisorType string `json:"hypervisor_type"`
	Host           string `json:"host"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Datacenter     string `json:"datacenter,omitempty"`
}

func (VMDiscoverArgs) Kind() string { return "vm_discover" }

func (VMDiscoverArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: taskqueue.QueueDiscovery}
}

// VMDiscoverWorker scans a hypervisor host and catalogs newly found VMs.
type VMDiscoverWorker struct {
	river.WorkerDefaults[VMDiscoverArgs]
	discover *usecase.DiscoverVMsUseCase
	results  resultStore
	metrics  *metrics.Metrics
}

func NewVMDiscoverWorker(discover *usecase.DiscoverVMsUseCase, results resultStore) *VMDiscoverWorker {
	return &VMDiscoverWorker{discover: discover, results: orNoopResults(results)}
}

// WithMetrics attaches the metrics collectors (optional dependency).
func (w *VMDiscoverWorker) WithMetrics(m *metrics.Metrics) *VMDiscoverWorker {
	w.metrics = m
	return w
}

func (w *VMDiscoverWorker) Work(ctx context.Context, job *river.Job[VMDiscoverArgs]) error {
	logger.Info("processing discovery job",
		zap.String("hypervisor", job.Args.HypervisorType),
		zap.String("host", job.Args.Host),
		zap.Int64("job_id", job.ID),
	)

	out, err := w.discover.Execute(ctx, usecase.DiscoverVMsInput{
		HypervisorType: job.Args.HypervisorType,
		Host:           job.Args.Host,
		Username:       job.Args.Username,
		Password:       job.Args.Password,
		Datacenter:     job.Args.Datacenter,
		JobID:          job.ID,
	})
	if err != nil {
		w.results.RecordError(ctx, job.ID, err.Error())
		return fmt.Errorf("discover vms on %s: %w", job.Args.Host, err)
	}
	w.metrics.VMsDiscovered(out.VMsDiscovered)

	if err := w.results.RecordResult(ctx, job.ID, out); err != nil {
		logger.Warn("recording discovery result failed",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
	}
	return nil
}
