package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

const migrationColumns = `id, vm_id, name, target_platform, target_namespace,
	base_image, container_port, replicas,
	dockerfile_content, kubernetes_manifest, docker_compose,
	registry_url, image_name, image_tag,
	status, progress_percent, status_message, error_message, job_id,
	created_at, updated_at, started_at, completed_at`

// PostgresMigrationStore implements MigrationStore over pgx.
type PostgresMigrationStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMigrationStore creates a migration store backed by the shared pool.
func NewPostgresMigrationStore(pool *pgxpool.Pool) *PostgresMigrationStore {
	return &PostgresMigrationStore{pool: pool}
}

var _ MigrationStore = (*PostgresMigrationStore)(nil)

// Get returns the migration by record ID.
func (s *PostgresMigrationStore) Get(ctx context.Context, id int64) (*domain.Migration, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+migrationColumns+` FROM migrations WHERE id = $1`, id)
	m, err := scanMigration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("migration %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get migration %d: %w", id, err)
	}
	return m, nil
}

// List returns migrations matching the filter in insertion order.
func (s *PostgresMigrationStore) List(ctx context.Context, filter MigrationFilter) ([]*domain.Migration, error) {
	query := `SELECT ` + migrationColumns + ` FROM migrations`
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
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var migrations []*domain.Migration
	for rows.Next() {
		m, err := scanMigration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		migrations = append(migrations, m)
	}
	return migrations, rows.Err()
}

// Create inserts a new migration record in pending state.
func (s *PostgresMigrationStore) Create(ctx context.Context, m *domain.Migration) (*domain.Migration, error) {
	platform := m.TargetPlatform
	if platform == "" {
		platform = domain.PlatformKubernetes
	}
	namespace := m.TargetNamespace
	if namespace == "" {
		namespace = "default"
	}
	replicas := m.Replicas
	if replicas == 0 {
		replicas = 1
	}
	imageTag := m.ImageTag
	if imageTag == "" {
		imageTag = "latest"
	}
	status := m.Status
	if status == "" {
		status = domain.MigrationStatusPending
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO migrations (
			vm_id, name, target_platform, target_namespace,
			base_image, container_port, replicas,
			registry_url, image_name, image_tag, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+migrationColumns,
		m.VMID, m.Name, string(platform), namespace,
		m.BaseImage, m.ContainerPort, replicas,
		m.RegistryURL, m.ImageName, imageTag, string(status),
	)
	created, err := scanMigration(row)
	if err != nil {
		return nil, fmt.Errorf("insert migration: %w", err)
	}
	return created, nil
}

// Update persists the full record and bumps updated_at.
func (s *PostgresMigrationStore) Update(ctx context.Context, m *domain.Migration) (*domain.Migration, error) {
	row := s.pool.QueryRow(ctx, migrationUpdateSQL, migrationUpdateArgs(m)...)
	updated, err := scanMigration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("migration %d: %w", m.ID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("update migration %d: %w", m.ID, err)
	}
	return updated, nil
}

// Delete removes the migration record.
func (s *PostgresMigrationStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM migrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete migration %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// CompleteWithVM persists the terminal migration state and the VM status
// cascade in one transaction. Either both rows change or neither does.
func (s *PostgresMigrationStore) CompleteWithVM(ctx context.Context, m *domain.Migration, vm *domain.VirtualMachine) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx, migrationUpdateSQL, migrationUpdateArgs(m)...)
	if _, err := scanMigration(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("migration %d: %w", m.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("persist terminal migration %d: %w", m.ID, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE virtual_machines SET status = $2, updated_at = now() WHERE id = $1`,
		vm.ID, string(vm.Status),
	)
	if err != nil {
		return fmt.Errorf("cascade vm %d status: %w", vm.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vm %d: %w", vm.ID, apperrors.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit completion tx: %w", err)
	}
	return nil
}

const migrationUpdateSQL = `
	UPDATE migrations SET
		vm_id = $2, name = $3, target_platform = $4, target_namespace = $5,
		base_image = $6, container_port = $7, replicas = $8,
		dockerfile_content = $9, kubernetes_manifest = $10, docker_compose = $11,
		registry_url = $12, image_name = $13, image_tag = $14,
		status = $15, progress_percent = $16, status_message = $17, error_message = $18,
		job_id = $19, started_at = $20, completed_at = $21,
		updated_at = now()
	WHERE id = $1
	RETURNING ` + migrationColumns

func migrationUpdateArgs(m *domain.Migration) []any {
	return []any{
		m.ID, m.VMID, m.Name, string(m.TargetPlatform), m.TargetNamespace,
		m.BaseImage, m.ContainerPort, m.Replicas,
		m.DockerfileContent, m.KubernetesManifest, m.DockerCompose,
		m.RegistryURL, m.ImageName, m.ImageTag,
		string(m.Status), m.ProgressPercent, m.StatusMessage, m.ErrorMessage,
		m.JobID, m.StartedAt, m.CompletedAt,
	}
}

// scanMigration maps one row onto a domain migration.
func scanMigration(row pgx.Row) (*domain.Migration, error) {
	var (
		m        domain.Migration
		platform string
		status   string
	)
	if err := row.Scan(
		&m.ID, &m.VMID, &m.Name, &platform, &m.TargetNamespace,
		&m.BaseImage, &m.ContainerPort, &m.Replicas,
		&m.DockerfileContent, &m.KubernetesManifest, &m.DockerCompose,
		&m.RegistryURL, &m.ImageName, &m.ImageTag,
		&status, &m.ProgressPercent, &m.StatusMessage, &m.ErrorMessage, &m.JobID,
		&m.CreatedAt, &m.UpdatedAt, &m.StartedAt, &m.CompletedAt,
	); err != nil {
		return nil, err
	}
	m.TargetPlatform = domain.TargetPlatform(platform)
	m.Status = domain.MigrationStatus(status)
	return &m, nil
}
