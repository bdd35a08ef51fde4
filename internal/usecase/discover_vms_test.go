package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/taskqueue"
)

func TestDiscoverVMs(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	rec := taskqueue.NewRecorder()
	uc := NewDiscoverVMsUseCase(vms, rec, 0)

	out, err := uc.Execute(context.Background(), DiscoverVMsInput{
		HypervisorType: "vsphere",
		Host:           "esxi-01",
		Datacenter:     "DC-West",
		JobID:          3,
	})
	require.NoError(t, err)

	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "esxi-01", out.Hypervisor)
	assert.Equal(t, 3, out.VMsDiscovered)
	assert.Equal(t, "Successfully discovered 3 new virtual machines", out.Message)

	cataloged, err := vms.List(context.Background(), repository.VMFilter{})
	require.NoError(t, err)
	require.Len(t, cataloged, 3)

	byUUID := map[string]*domain.VirtualMachine{}
	for _, vm := range cataloged {
		byUUID[vm.UUID] = vm
		assert.Equal(t, domain.VMStatusDiscovered, vm.Status)
		assert.Equal(t, "vsphere", vm.Hypervisor)
		assert.Equal(t, "DC-West", vm.Datacenter)
	}
	require.Contains(t, byUUID, "vm-esxi-01-001")
	require.Contains(t, byUUID, "vm-esxi-01-002")
	require.Contains(t, byUUID, "vm-esxi-01-003")
	assert.Equal(t, "web-server-01", byUUID["vm-esxi-01-001"].Name)
	assert.Equal(t, []string{"IIS", "ASP.NET"}, byUUID["vm-esxi-01-001"].DiscoveredServices)
	assert.Equal(t, "linux", byUUID["vm-esxi-01-003"].OSFamily)

	assert.Equal(t, []string{
		"Connecting to hypervisor...",
		"Scanning datacenter...",
		"Processing discovered VMs...",
		"Discovery complete",
	}, rec.Statuses())
}

func TestDiscoverVMsIdempotentByUUID(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	uc := NewDiscoverVMsUseCase(vms, nil, 0)
	input := DiscoverVMsInput{HypervisorType: "vsphere", Host: "esxi-01"}

	first, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 3, first.VMsDiscovered)

	second, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, second.VMsDiscovered)

	cataloged, err := vms.List(context.Background(), repository.VMFilter{})
	require.NoError(t, err)
	assert.Len(t, cataloged, 3)
}

func TestDiscoverVMsDifferentHostsGetDistinctUUIDs(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	uc := NewDiscoverVMsUseCase(vms, nil, 0)

	_, err := uc.Execute(context.Background(), DiscoverVMsInput{HypervisorType: "vsphere", Host: "esxi-01"})
	require.NoError(t, err)
	out, err := uc.Execute(context.Background(), DiscoverVMsInput{HypervisorType: "vsphere", Host: "esxi-02"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.VMsDiscovered)

	cataloged, err := vms.List(context.Background(), repository.VMFilter{})
	require.NoError(t, err)
	assert.Len(t, cataloged, 6)
}

func TestDiscoverVMsDefaultDatacenter(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	uc := NewDiscoverVMsUseCase(vms, nil, 0)

	_, err := uc.Execute(context.Background(), DiscoverVMsInput{HypervisorType: "vsphere", Host: "esxi-01"})
	require.NoError(t, err)

	cataloged, err := vms.List(context.Background(), repository.VMFilter{})
	require.NoError(t, err)
	for _, vm := range cataloged {
		assert.Equal(t, "DC-1", vm.Datacenter)
	}
}
