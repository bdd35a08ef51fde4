// Package repository provides pgx-backed persistence gateways for VMShift.
//
// Stores speak domain types and hide SQL row shapes. All implementations
// share a single pgxpool with River, so queue inserts and record writes can
// participate in one transaction when needed.
package repository

import (
	"context"

	"vmshift.io/vmshift/internal/domain"
)

// VMFilter narrows VM list queries.
type VMFilter struct {
	Status domain.VMStatus // empty matches all
	Skip   int
	Limit  int
}

// MigrationFilter narrows migration list queries.
type MigrationFilter struct {
	Status domain.MigrationStatus // empty matches all
	Skip   int
	Limit  int
}

// VMStore is the persistence gateway for virtual machine records.
type VMStore interface {
	// Get returns the VM or an error wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.VirtualMachine, error)

	// FindByUUID returns the VM with the given uuid, or an error wrapping
	// apperrors.ErrNotFound when no record shares it.
	FindByUUID(ctx context.Context, uuid string) (*domain.VirtualMachine, error)

	List(ctx context.Context, filter VMFilter) ([]*domain.VirtualMachine, error)

	// Create inserts a new record. A duplicate uuid yields an error wrapping
	// apperrors.ErrAlreadyExists; the existing record is never updated.
	Create(ctx context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error)

	// Update persists the full record as one atomic write.
	Update(ctx context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error)

	Delete(ctx context.Context, id int64) error
}

// MigrationStore is the persistence gateway for migration records.
type MigrationStore interface {
	// Get returns the migration or an error wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Migration, error)

	List(ctx context.Context, filter MigrationFilter) ([]*domain.Migration, error)

	Create(ctx context.Context, m *domain.Migration) (*domain.Migration, error)

	// Update persists the full record as one atomic write.
	Update(ctx context.Context, m *domain.Migration) (*domain.Migration, error)

	Delete(ctx context.Context, id int64) error

	// CompleteWithVM persists the terminal migration state and the VM status
	// cascade in a single transaction.
	CompleteWithVM(ctx context.Context, m *domain.Migration, vm *domain.VirtualMachine) error
}
