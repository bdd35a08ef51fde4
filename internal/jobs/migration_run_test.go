package jobs

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmshift.io/vmshift/internal/domain"
	"vmshift.io/vmshift/internal/pkg/logger"
	"vmshift.io/vmshift/internal/repository"
	"vmshift.io/vmshift/internal/service"
	"vmshift.io/vmshift/internal/taskqueue"
	"vmshift.io/vmshift/internal/usecase"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "json")
	os.Exit(m.Run())
}

// fakeResults captures recorded results and errors in memory.
type fakeResults struct {
	mu      sync.Mutex
	results map[int64]any
	errors  map[int64]string
}

func newFakeResults() *fakeResults {
	return &fakeResults{results: map[int64]any{}, errors: map[int64]string{}}
}

func (f *fakeResults) RecordResult(_ context.Context, jobID int64, result any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[jobID] = result
	return nil
}

func (f *fakeResults) RecordError(_ context.Context, jobID int64, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[jobID] = message
}

func TestMigrationRunWorker(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	migrations := repository.NewMemoryMigrationStore(vms)

	ctx := context.Background()
	vm, err := vms.Create(ctx, &domain.VirtualMachine{
		Name: "web-server-01", UUID: "vm-host-001", OSFamily: "linux", Status: domain.VMStatusReady,
	})
	require.NoError(t, err)
	m, err := migrations.Create(ctx, &domain.Migration{
		VMID:           vm.ID,
		Name:           "web migration",
		TargetPlatform: domain.PlatformKubernetes,
		BaseImage:      "ubuntu:22.04",
		ContainerPort:  8080,
		Status:         domain.MigrationStatusInProgress,
	})
	require.NoError(t, err)

	gen, err := service.NewArtifactGenerator()
	require.NoError(t, err)
	runner := usecase.NewRunMigrationUseCase(migrations, vms, gen, taskqueue.NewRecorder(), 0)
	results := newFakeResults()
	worker := NewMigrationRunWorker(runner, results)

	job := &river.Job[MigrationRunArgs]{
		JobRow: &rivertype.JobRow{ID: 11, Attempt: 1},
		Args:   MigrationRunArgs{MigrationID: m.ID},
	}
	require.NoError(t, worker.Work(ctx, job))

	out, ok := results.results[11].(*usecase.RunMigrationOutput)
	require.True(t, ok)
	assert.Equal(t, "success", out.Status)

	final, err := migrations.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MigrationStatusCompleted, final.Status)
}

func TestMigrationRunWorkerRecordsError(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	migrations := repository.NewMemoryMigrationStore(vms)

	gen, err := service.NewArtifactGenerator()
	require.NoError(t, err)
	runner := usecase.NewRunMigrationUseCase(migrations, vms, gen, nil, 0)
	results := newFakeResults()
	worker := NewMigrationRunWorker(runner, results)

	job := &river.Job[MigrationRunArgs]{
		JobRow: &rivertype.JobRow{ID: 12, Attempt: 1},
		Args:   MigrationRunArgs{MigrationID: 999},
	}
	err = worker.Work(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, results.errors[12], "not found")
}

func TestVMDiscoverWorker(t *testing.T) {
	vms := repository.NewMemoryVMStore()
	discover := usecase.NewDiscoverVMsUseCase(vms, nil, 0)
	results := newFakeResults()
	worker := NewVMDiscoverWorker(discover, results)

	job := &river.Job[VMDiscoverArgs]{
		JobRow: &rivertype.JobRow{ID: 21, Attempt: 1},
		Args:   VMDiscoverArgs{HypervisorType: "vsphere", Host: "esxi-01"},
	}
	require.NoError(t, worker.Work(context.Background(), job))

	out, ok := results.results[21].(*usecase.DiscoverVMsOutput)
	require.True(t, ok)
	assert.Equal(t, 3, out.VMsDiscovered)
}

func TestArgsKindsAndQueues(t *testing.T) {
	assert.Equal(t, "migration_run", MigrationRunArgs{}.Kind())
	assert.Equal(t, taskqueue.QueueMigration, MigrationRunArgs{}.InsertOpts().Queue)
	assert.Equal(t, "migration_rollback", MigrationRollbackArgs{}.Kind())
	assert.Equal(t, taskqueue.QueueMigration, MigrationRollbackArgs{}.InsertOpts().Queue)
	assert.Equal(t, "vm_discover", VMDiscoverArgs{}.Kind())
	assert.Equal(t, taskqueue.QueueDiscovery, VMDiscoverArgs{}.InsertOpts().Queue)
	assert.Equal(t, "vm_analyze", VMAnalyzeArgs{}.Kind())
	assert.Equal(t, taskqueue.QueueDiscovery, VMAnalyzeArgs{}.InsertOpts().Queue)
	assert.Equal(t, "task_cleanup", TaskCleanupArgs{}.Kind())

	// Work jobs leave MaxAttempts unset so the client-level queue.max_attempts
	// default applies; cleanup is a single-shot override.
	assert.Zero(t, MigrationRunArgs{}.InsertOpts().MaxAttempts)
	assert.Zero(t, MigrationRollbackArgs{}.InsertOpts().MaxAttempts)
	assert.Zero(t, VMDiscoverArgs{}.InsertOpts().MaxAttempts)
	assert.Zero(t, VMAnalyzeArgs{}.InsertOpts().MaxAttempts)
	assert.Equal(t, 1, TaskCleanupArgs{}.InsertOpts().MaxAttempts)

	// Args round-trip cleanly through the job row payload.
	raw, err := json.Marshal(VMDiscoverArgs{HypervisorType: "vsphere", Host: "esxi-01"})
	require.NoError(t, err)
	var decoded VMDiscoverArgs
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "esxi-01", decoded.Host)
}
