package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements creates the application tables. River's own tables are
// migrated separately via rivermigrate (see infrastructure.AutoMigrate).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS virtual_machines (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		uuid                TEXT NOT NULL UNIQUE,
		os_type             TEXT NOT NULL DEFAULT '',
		os_family           TEXT NOT NULL DEFAULT '',
		cpu_count           INTEGER NOT NULL DEFAULT 0,
		memory_mb           INTEGER NOT NULL DEFAULT 0,
		disk_gb             DOUBLE PRECISION NOT NULL DEFAULT 0,
		ip_address          TEXT NOT NULL DEFAULT '',
		network_config      JSONB,
		hypervisor          TEXT NOT NULL DEFAULT 'vsphere',
		datacenter          TEXT NOT NULL DEFAULT '',
		cluster             TEXT NOT NULL DEFAULT '',
		host                TEXT NOT NULL DEFAULT '',
		discovered_services JSONB,
		installed_software  JSONB,
		status              TEXT NOT NULL DEFAULT 'discovered',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_virtual_machines_name ON virtual_machines (name)`,
	`CREATE INDEX IF NOT EXISTS idx_virtual_machines_status ON virtual_machines (status)`,

	`CREATE TABLE IF NOT EXISTS migrations (
		id                  BIGSERIAL PRIMARY KEY,
		vm_id               BIGINT NOT NULL REFERENCES virtual_machines (id),
		name                TEXT NOT NULL,
		target_platform     TEXT NOT NULL DEFAULT 'kubernetes',
		target_namespace    TEXT NOT NULL DEFAULT 'default',
		base_image          TEXT NOT NULL DEFAULT '',
		container_port      INTEGER NOT NULL DEFAULT 0,
		replicas            INTEGER NOT NULL DEFAULT 1,
		dockerfile_content  TEXT NOT NULL DEFAULT '',
		kubernetes_manifest TEXT NOT NULL DEFAULT '',
		docker_compose      TEXT NOT NULL DEFAULT '',
		registry_url        TEXT NOT NULL DEFAULT '',
		image_name          TEXT NOT NULL DEFAULT '',
		image_tag           TEXT NOT NULL DEFAULT 'latest',
		status              TEXT NOT NULL DEFAULT 'pending',
		progress_percent    INTEGER NOT NULL DEFAULT 0,
		status_message      TEXT NOT NULL DEFAULT '',
		error_message       TEXT NOT NULL DEFAULT '',
		job_id              BIGINT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ,
		started_at          TIMESTAMPTZ,
		completed_at        TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_migrations_vm_id ON migrations (vm_id)`,
	`CREATE INDEX IF NOT EXISTS idx_migrations_status ON migrations (status)`,

	`CREATE TABLE IF NOT EXISTS job_progress (
		job_id     BIGINT PRIMARY KEY,
		current    INTEGER NOT NULL DEFAULT 0,
		total      INTEGER NOT NULL DEFAULT 100,
		status     TEXT NOT NULL DEFAULT '',
		result     JSONB,
		error      TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the application tables if they do not exist.
// Only use in development; production schemas are managed externally.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
