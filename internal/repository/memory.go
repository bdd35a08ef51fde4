package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// MemoryVMStore is an in-memory VMStore for tests and local development.
type MemoryVMStore struct {
	mu     sync.Mutex
	nextID int64
	vms    map[int64]*domain.VirtualMachine

	// FailUpdates forces Update calls to error, for failure-path tests.
	FailUpdates bool
}

// NewMemoryVMStore creates an empty in-memory VM store.
func NewMemoryVMStore() *MemoryVMStore {
	return &MemoryVMStore{nextID: 1, vms: make(map[int64]*domain.VirtualMachine)}
}

var _ VMStore = (*MemoryVMStore)(nil)

func (s *MemoryVMStore) Get(_ context.Context, id int64) (*domain.VirtualMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vm, ok := s.vms[id]
	if !ok {
		return nil, fmt.Errorf("vm %d: %w", id, apperrors.ErrNotFound)
	}
	return copyVM(vm), nil
}

func (s *MemoryVMStore) FindByUUID(_ context.Context, uuid string) (*domain.VirtualMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, vm := range s.vms {
		if vm.UUID == uuid {
			return copyVM(vm), nil
		}
	}
	return nil, fmt.Errorf("vm uuid %s: %w", uuid, apperrors.ErrNotFound)
}

func (s *MemoryVMStore) List(_ context.Context, filter VMFilter) ([]*domain.VirtualMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var vms []*domain.VirtualMachine
	for _, vm := range s.vms {
		if filter.Status != "" && vm.Status != filter.Status {
			continue
		}
		vms = append(vms, copyVM(vm))
	}
	sort.Slice(vms, func(i, j int) bool { return vms[i].ID < vms[j].ID })
	return applyWindow(vms, filter.Skip, filter.Limit), nil
}

func (s *MemoryVMStore) Create(_ context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vms {
		if existing.UUID == vm.UUID {
			return nil, fmt.Errorf("vm uuid %s: %w", vm.UUID, apperrors.ErrAlreadyExists)
		}
	}
	created := copyVM(vm)
	created.ID = s.nextID
	s.nextID++
	if created.Hypervisor == "" {
		created.Hypervisor = "vsphere"
	}
	if created.Status == "" {
		created.Status = domain.VMStatusDiscovered
	}
	created.CreatedAt = time.Now().UTC()
	s.vms[created.ID] = created
	return copyVM(created), nil
}

func (s *MemoryVMStore) Update(_ context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdates {
		return nil, fmt.Errorf("vm %d: %w", vm.ID, apperrors.ErrInternal)
	}
	existing, ok := s.vms[vm.ID]
	if !ok {
		return nil, fmt.Errorf("vm %d: %w", vm.ID, apperrors.ErrNotFound)
	}
	updated := copyVM(vm)
	updated.CreatedAt = existing.CreatedAt
	now := time.Now().UTC()
	updated.UpdatedAt = &now
	s.vms[vm.ID] = updated
	return copyVM(updated), nil
}

func (s *MemoryVMStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vms[id]; !ok {
		return fmt.Errorf("vm %d: %w", id, apperrors.ErrNotFound)
	}
	delete(s.vms, id)
	return nil
}

// MemoryMigrationStore is an in-memory MigrationStore for tests and local
// development. It records every persisted snapshot so tests can assert on
// observed state sequences.
type MemoryMigrationStore struct {
	mu         sync.Mutex
	nextID     int64
	migrations map[int64]*domain.Migration
	vmStore    *MemoryVMStore

	// History holds each persisted snapshot in write order.
	History []domain.Migration

	// FailUpdates forces Update calls to error, for failure-path tests.
	FailUpdates bool
}

// NewMemoryMigrationStore creates an empty in-memory migration store. The VM
// store is used by CompleteWithVM for the status cascade.
func NewMemoryMigrationStore(vmStore *MemoryVMStore) *MemoryMigrationStore {
	return &MemoryMigrationStore{
		nextID:     1,
		migrations: make(map[int64]*domain.Migration),
		vmStore:    vmStore,
	}
}

var _ MigrationStore = (*MemoryMigrationStore)(nil)

func (s *MemoryMigrationStore) Get(_ context.Context, id int64) (*domain.Migration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.migrations[id]
	if !ok {
		return nil, fmt.Errorf("migration %d: %w", id, apperrors.ErrNotFound)
	}
	return copyMigration(m), nil
}

func (s *MemoryMigrationStore) List(_ context.Context, filter MigrationFilter) ([]*domain.Migration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var migrations []*domain.Migration
	for _, m := range s.migrations {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		migrations = append(migrations, copyMigration(m))
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return applyWindow(migrations, filter.Skip, filter.Limit), nil
}

func (s *MemoryMigrationStore) Create(_ context.Context, m *domain.Migration) (*domain.Migration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := copyMigration(m)
	created.ID = s.nextID
	s.nextID++
	if created.TargetPlatform == "" {
		created.TargetPlatform = domain.PlatformKubernetes
	}
	if created.TargetNamespace == "" {
		created.TargetNamespace = "default"
	}
	if created.Replicas == 0 {
		created.Replicas = 1
	}
	if created.ImageTag == "" {
		created.ImageTag = "latest"
	}
	if created.Status == "" {
		created.Status = domain.MigrationStatusPending
	}
	created.CreatedAt = time.Now().UTC()
	s.migrations[created.ID] = created
	return copyMigration(created), nil
}

func (s *MemoryMigrationStore) Update(_ context.Context, m *domain.Migration) (*domain.Migration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(m)
}

func (s *MemoryMigrationStore) updateLocked(m *domain.Migration) (*domain.Migration, error) {
	if s.FailUpdates {
		return nil, fmt.Errorf("migration %d: %w", m.ID, apperrors.ErrInternal)
	}
	existing, ok := s.migrations[m.ID]
	if !ok {
		return nil, fmt.Errorf("migration %d: %w", m.ID, apperrors.ErrNotFound)
	}
	updated := copyMigration(m)
	updated.CreatedAt = existing.CreatedAt
	now := time.Now().UTC()
	updated.UpdatedAt = &now
	s.migrations[m.ID] = updated
	s.History = append(s.History, *copyMigration(updated))
	return copyMigration(updated), nil
}

func (s *MemoryMigrationStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.migrations[id]; !ok {
		return fmt.Errorf("migration %d: %w", id, apperrors.ErrNotFound)
	}
	delete(s.migrations, id)
	return nil
}

func (s *MemoryMigrationStore) CompleteWithVM(ctx context.Context, m *domain.Migration, vm *domain.VirtualMachine) error {
	s.mu.Lock()
	if _, err := s.updateLocked(m); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if s.vmStore == nil {
		return nil
	}
	current, err := s.vmStore.Get(ctx, vm.ID)
	if err != nil {
		return err
	}
	current.Status = vm.Status
	_, err = s.vmStore.Update(ctx, current)
	return err
}

func applyWindow[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return nil
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyVM(vm *domain.VirtualMachine) *domain.VirtualMachine {
	dup := *vm
	dup.DiscoveredServices = append([]string(nil), vm.DiscoveredServices...)
	dup.InstalledSoftware = append([]string(nil), vm.InstalledSoftware...)
	if vm.NetworkConfig != nil {
		dup.NetworkConfig = make(map[string]any, len(vm.NetworkConfig))
		for k, v := range vm.NetworkConfig {
			dup.NetworkConfig[k] = v
		}
	}
	return &dup
}

func copyMigration(m *domain.Migration) *domain.Migration {
	dup := *m
	if m.JobID != nil {
		id := *m.JobID
		dup.JobID = &id
	}
	dup.UpdatedAt = copyTime(m.UpdatedAt)
	dup.StartedAt = copyTime(m.StartedAt)
	dup.CompletedAt = copyTime(m.CompletedAt)
	return &dup
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	dup := *t
	return &dup
}
