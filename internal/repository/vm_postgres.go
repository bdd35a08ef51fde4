package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// pgUniqueViolation is the Postgres error code for unique constraint breaches.
const pgUniqueViolation = "23505"

const vmColumns = `id, name, uuid, os_type, os_family, cpu_count, memory_mb, disk_gb,
	ip_address, network_config, hypervisor, datacenter, cluster, host,
	discovered_services, installed_software, status, created_at, updated_at`

// PostgresVMStore implements VMStore over pgx.
type PostgresVMStore struct {
	pool *pgxpool.Pool
}

// NewPostgresVMStore creates a VM store backed by the shared pool.
func NewPostgresVMStore(pool *pgxpool.Pool) *PostgresVMStore {
	return &PostgresVMStore{pool: pool}
}

var _ VMStore = (*PostgresVMStore)(nil)

// Get returns the VM by record ID.
func (s *PostgresVMStore) Get(ctx context.Context, id int64) (*domain.VirtualMachine, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+vmColumns+` FROM virtual_machines WHERE id = $1`, id)
	vm, err := scanVM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vm %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get vm %d: %w", id, err)
	}
	return vm, nil
}

// FindByUUID returns the VM sharing the given uuid, if any.
func (s *PostgresVMStore) FindByUUID(ctx context.Context, uuid string) (*domain.VirtualMachine, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+vmColumns+` FROM virtual_machines WHERE uuid = $1`, uuid)
	vm, err := scanVM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vm uuid %s: %w", uuid, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("find vm by uuid %s: %w", uuid, err)
	}
	return vm, nil
}

// List returns VMs matching the filter, newest first.
func (s *PostgresVMStore) List(ctx context.Context, filter VMFilter) ([]*domain.VirtualMachine, error) {
	query := `SELECT ` + vmColumns + ` FROM virtual_machines`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	defer rows.Close()

	var vms []*domain.VirtualMachine
	for rows.Next() {
		vm, err := scanVM(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vm row: %w", err)
		}
		vms = append(vms, vm)
	}
	return vms, rows.Err()
}

// Create inserts a new VM record. Duplicate uuid yields ErrAlreadyExists.
func (s *PostgresVMStore) Create(ctx context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error) {
	hypervisor := vm.Hypervisor
	if hypervisor == "" {
		hypervisor = "vsphere"
	}
	status := vm.Status
	if status == "" {
		status = domain.VMStatusDiscovered
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO virtual_machines (
			name, uuid, os_type, os_family, cpu_count, memory_mb, disk_gb,
			ip_address, network_config, hypervisor, datacenter, cluster, host,
			discovered_services, installed_software, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+vmColumns,
		vm.Name, vm.UUID, vm.OSType, vm.OSFamily, vm.CPUCount, vm.MemoryMB, vm.DiskGB,
		vm.IPAddress, jsonOrNil(vm.NetworkConfig), hypervisor, vm.Datacenter, vm.Cluster, vm.Host,
		jsonOrNil(vm.DiscoveredServices), jsonOrNil(vm.InstalledSoftware), string(status),
	)
	created, err := scanVM(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("vm uuid %s: %w", vm.UUID, apperrors.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert vm: %w", err)
	}
	return created, nil
}

// Update persists the full record and bumps updated_at.
func (s *PostgresVMStore) Update(ctx context.Context, vm *domain.VirtualMachine) (*domain.VirtualMachine, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE virtual_machines SET
			name = $2, os_type = $3, os_family = $4, cpu_count = $5, memory_mb = $6,
			disk_gb = $7, ip_address = $8, network_config = $9, hypervisor = $10,
			datacenter = $11, cluster = $12, host = $13,
			discovered_services = $14, installed_software = $15, status = $16,
			updated_at = now()
		WHERE id = $1
		RETURNING `+vmColumns,
		vm.ID, vm.Name, vm.OSType, vm.OSFamily, vm.CPUCount, vm.MemoryMB,
		vm.DiskGB, vm.IPAddress, jsonOrNil(vm.NetworkConfig), vm.Hypervisor,
		vm.Datacenter, vm.Cluster, vm.Host,
		jsonOrNil(vm.DiscoveredServices), jsonOrNil(vm.InstalledSoftware), string(vm.Status),
	)
	updated, err := scanVM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vm %d: %w", vm.ID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("update vm %d: %w", vm.ID, err)
	}
	return updated, nil
}

// Delete removes the VM record.
func (s *PostgresVMStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM virtual_machines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vm %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vm %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// scanVM maps one row onto a domain VM.
func scanVM(row pgx.Row) (*domain.VirtualMachine, error) {
	var (
		vm          domain.VirtualMachine
		netConfig   []byte
		services    []byte
		software    []byte
		statusValue string
	)
	if err := row.Scan(
		&vm.ID, &vm.Name, &vm.UUID, &vm.OSType, &vm.OSFamily,
		&vm.CPUCount, &vm.MemoryMB, &vm.DiskGB,
		&vm.IPAddress, &netConfig, &vm.Hypervisor, &vm.Datacenter, &vm.Cluster, &vm.Host,
		&services, &software, &statusValue, &vm.CreatedAt, &vm.UpdatedAt,
	); err != nil {
		return nil, err
	}
	vm.Status = domain.VMStatus(statusValue)
	if err := jsonInto(netConfig, &vm.NetworkConfig); err != nil {
		return nil, err
	}
	if err := jsonInto(services, &vm.DiscoveredServices); err != nil {
		return nil, err
	}
	if err := jsonInto(software, &vm.InstalledSoftware); err != nil {
		return nil, err
	}
	return &vm, nil
}

// jsonOrNil marshals v for a jsonb column, mapping empty values to SQL NULL.
func jsonOrNil(v any) any {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return nil
		}
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// jsonInto unmarshals a nullable jsonb column into dst.
func jsonInto(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
