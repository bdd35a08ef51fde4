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
	"vmshift.io/vmshift/internal/taskqueue"
)

// DiscoverVMsInput carries hypervisor connection parameters. Credentials are
// accepted for API parity with a real vSphere integration but the simulated
// scanner never uses them.
type DiscoverVMsInput struct {
	HypervisorType string `json:"hypervisor_type"`
	Host           string `json:"host"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Datacenter     string `json:"datacenter"`
	JobID          int64  `json:"job_id"`
}

// DiscoverVMsOutput is the job result payload for a discovery run.
type DiscoverVMsOutput struct {
	Status        string `json:"status"`
	Hypervisor    string `json:"hypervisor"`
	VMsDiscovered int    `json:"vms_discovered"`
	Message       string `json:"message"`
}

// DiscoverVMsUseCase catalogs VMs found on a hypervisor host. Discovery is
// idempotent by uuid: a candidate whose uuid already exists in the inventory
// is skipped, never updated.
type DiscoverVMsUseCase struct {
	vms       repository.VMStore
	reporter  taskqueue.ProgressReporter
	delayUnit time.Duration
}

func NewDiscoverVMsUseCase(vms repository.VMStore, reporter taskqueue.ProgressReporter, delayUnit time.Duration) *DiscoverVMsUseCase {
	return &DiscoverVMsUseCase{
		vms:       vms,
		reporter:  orNoop(reporter),
		delayUnit: delayUnit,
	}
}

func (uc *DiscoverVMsUseCase) Execute(ctx context.Context, input DiscoverVMsInput) (*DiscoverVMsOutput, error) {
	logger.Info("starting VM discovery",
		zap.String("hypervisor", input.HypervisorType),
		zap.String("host", input.Host),
	)

	uc.reporter.ReportProgress(ctx, input.JobID, 0, 100, "Connecting to hypervisor...")
	if err := sleepUnits(ctx, uc.delayUnit, 2); err != nil {
		return nil, err
	}

	uc.reporter.ReportProgress(ctx, input.JobID, 25, 100, "Scanning datacenter...")
	candidates := sampleInventory(input)

	uc.reporter.ReportProgress(ctx, input.JobID, 50, 100, "Processing discovered VMs...")
	discovered := 0
	for _, candidate := range candidates {
		_, err := uc.vms.FindByUUID(ctx, candidate.UUID)
		if err == nil {
			continue // already cataloged
		}
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("look up vm %s: %w", candidate.UUID, err)
		}
		if _, err := uc.vms.Create(ctx, candidate); err != nil {
			return nil, fmt.Errorf("catalog vm %s: %w", candidate.UUID, err)
		}
		discovered++
	}

	uc.reporter.ReportProgress(ctx, input.JobID, 100, 100, "Discovery complete")
	logger.Info("VM discovery complete", zap.Int("new_vms", discovered))

	return &DiscoverVMsOutput{
		Status:        "success",
		Hypervisor:    input.Host,
		VMsDiscovered: discovered,
		Message:       fmt.Sprintf("Successfully discovered %d new virtual machines", discovered),
	}, nil
}

// sampleInventory simulates a hypervisor scan. A real integration would query
// the vSphere API here; the candidate set is keyed by host so repeated scans
// of the same host produce the same uuids.
func sampleInventory(input DiscoverVMsInput) []*domain.VirtualMachine {
	datacenter := input.Datacenter
	if datacenter == "" {
		datacenter = "DC-1"
	}
	return []*domain.VirtualMachine{
		{
			Name:               "web-server-01",
			UUID:               fmt.Sprintf("vm-%s-001", input.Host),
			OSType:             "Windows Server 2019",
			OSFamily:           "windows",
			CPUCount:           4,
			MemoryMB:           8192,
			DiskGB:             100,
			IPAddress:          "192.168.1.10",
			Hypervisor:         input.HypervisorType,
			Datacenter:         datacenter,
			Host:               input.Host,
			DiscoveredServices: []string{"IIS", "ASP.NET"},
			Status:             domain.VMStatusDiscovered,
		},
		{
			Name:               "app-server-01",
			UUID:               fmt.Sprintf("vm-%s-002", input.Host),
			OSType:             "Windows Server 2022",
			OSFamily:           "windows",
			CPUCount:           8,
			MemoryMB:           16384,
			DiskGB:             200,
			IPAddress:          "192.168.1.11",
			Hypervisor:         input.HypervisorType,
			Datacenter:         datacenter,
			Host:               input.Host,
			DiscoveredServices: []string{".NET Core", "Windows Service"},
			Status:             domain.VMStatusDiscovered,
		},
		{
			Name:               "linux-app-01",
			UUID:               fmt.Sprintf("vm-%s-003", input.Host),
			OSType:             "Ubuntu 22.04 LTS",
			OSFamily:           "linux",
			CPUCount:           2,
			MemoryMB:           4096,
			DiskGB:             50,
			IPAddress:          "192.168.1.12",
			Hypervisor:         input.HypervisorType,
			Datacenter:         datacenter,
			Host:               input.Host,
			DiscoveredServices: []string{"nginx", "Python Flask"},
			Status:             domain.VMStatusDiscovered,
		},
	}
}
