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

// AnalyzeVMInput identifies the VM to analyze.
type AnalyzeVMInput struct {
	VMID  int64 `json:"vm_id"`
	JobID int64 `json:"job_id"`
}

// AnalyzeVMOutput is the job result payload for an analysis run.
type AnalyzeVMOutput struct {
	Status  string `json:"status"`
	VMID    int64  `json:"vm_id"`
	Message string `json:"message"`
}

// AnalyzeVMUseCase inspects a VM for installed software and marks it ready
// for migration. The inspection is simulated; a real integration would use
// WMI or SSH.
type AnalyzeVMUseCase struct {
	vms       repository.VMStore
	reporter  taskqueue.ProgressReporter
	delayUnit time.Duration
}

func NewAnalyzeVMUseCase(vms repository.VMStore, reporter taskqueue.ProgressReporter, delayUnit time.Duration) *AnalyzeVMUseCase {
	return &AnalyzeVMUseCase{
		vms:       vms,
		reporter:  orNoop(reporter),
		delayUnit: delayUnit,
	}
}

func (uc *AnalyzeVMUseCase) Execute(ctx context.Context, input AnalyzeVMInput) (*AnalyzeVMOutput, error) {
	logger.Info("starting VM analysis", zap.Int64("vm_id", input.VMID))

	vm, err := uc.vms.Get(ctx, input.VMID)
	if err != nil {
		return nil, err
	}

	vm.Status = domain.VMStatusAnalyzing
	if vm, err = uc.vms.Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("persist analyzing state: %w", err)
	}

	out, err := uc.analyze(ctx, vm, input.JobID)
	if err != nil {
		uc.markFailed(ctx, input.VMID, err)
		return nil, err
	}
	return out, nil
}

func (uc *AnalyzeVMUseCase) analyze(ctx context.Context, vm *domain.VirtualMachine, jobID int64) (*AnalyzeVMOutput, error) {
	uc.reporter.ReportProgress(ctx, jobID, 25, 100, "Scanning installed software...")
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}

	uc.reporter.ReportProgress(ctx, jobID, 50, 100, "Analyzing services...")
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}

	uc.reporter.ReportProgress(ctx, jobID, 75, 100, "Generating report...")

	vm.InstalledSoftware = []string{"Microsoft .NET Framework 4.8", "Visual C++ Runtime"}
	vm.Status = domain.VMStatusReady
	if _, err := uc.vms.Update(ctx, vm); err != nil {
		return nil, fmt.Errorf("persist analysis results: %w", err)
	}

	return &AnalyzeVMOutput{
		Status:  "success",
		VMID:    vm.ID,
		Message: "VM analysis complete",
	}, nil
}

// markFailed re-reads the record so partial analysis results from this
// attempt are discarded, then persists only the failed status.
func (uc *AnalyzeVMUseCase) markFailed(ctx context.Context, vmID int64, cause error) {
	logger.Error("VM analysis failed", zap.Int64("vm_id", vmID), zap.Error(cause))
	vm, err := uc.vms.Get(ctx, vmID)
	if err != nil {
		return
	}
	vm.Status = domain.VMStatusFailed
	if _, err := uc.vms.Update(ctx, vm); err != nil {
		logger.Error("persisting failure state failed", zap.Int64("vm_id", vmID), zap.Error(err))
	}
}
