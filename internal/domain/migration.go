package domain

import "time"

// MigrationStatus represents the workflow state of a migration record.
type MigrationStatus string

const (
	MigrationStatusPending             MigrationStatus = "pending"
	MigrationStatusInProgress          MigrationStatus = "in_progress"
	MigrationStatusGeneratingArtifacts MigrationStatus = "generating_artifacts"
	MigrationStatusBuildingImage       MigrationStatus = "building_image"
	MigrationStatusPushingImage        MigrationStatus = "pushing_image"
	MigrationStatusDeploying           MigrationStatus = "deploying"
	MigrationStatusCompleted           MigrationStatus = "completed"
	MigrationStatusFailed              MigrationStatus = "failed"
	MigrationStatusCancelled           MigrationStatus = "cancelled"
)

// Terminal reports whether the status is one of the three terminal states.
func (s MigrationStatus) Terminal() bool {
	switch s {
	case MigrationStatusCompleted, MigrationStatusFailed, MigrationStatusCancelled:
		return true
	}
	return false
}

// TargetPlatform enumerates supported container deployment targets.
type TargetPlatform string

const (
	PlatformDocker     TargetPlatform = "docker"
	PlatformKubernetes TargetPlatform = "kubernetes"
	PlatformOpenShift  TargetPlatform = "openshift"
	PlatformEKS        TargetPlatform = "eks"
	PlatformAKS        TargetPlatform = "aks"
)

// ValidTargetPlatform reports whether p is a known platform value.
func ValidTargetPlatform(p TargetPlatform) bool {
	switch p {
	case PlatformDocker, PlatformKubernetes, PlatformOpenShift, PlatformEKS, PlatformAKS:
		return true
	}
	return false
}

// Migration tracks one VM-to-container migration workflow.
//
// Lifecycle: created pending by user action; started only from pending or
// failed; progresses through the fixed stage sequence; terminates in exactly
// one of completed, failed, or cancelled. A migration holds at most one active
// job handle at a time, and ProgressPercent never decreases while the status
// is non-terminal.
type Migration struct {
	ID   int64  `json:"id"`
	VMID int64  `json:"vm_id"`
	Name string `json:"name"`

	TargetPlatform  TargetPlatform `json:"target_platform"`
	TargetNamespace string         `json:"target_namespace"`

	BaseImage     string `json:"base_image"`
	ContainerPort int    `json:"container_port"`
	Replicas      int    `json:"replicas"`

	// Generated artifacts, empty until stage one has run.
	DockerfileContent  string `json:"dockerfile_content,omitempty"`
	KubernetesManifest string `json:"kubernetes_manifest,omitempty"`
	DockerCompose      string `json:"docker_compose,omitempty"`

	RegistryURL string `json:"registry_url"`
	ImageName   string `json:"image_name"`
	ImageTag    string `json:"image_tag"`

	Status          MigrationStatus `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	StatusMessage   string          `json:"status_message"`
	ErrorMessage    string          `json:"error_message"`

	// JobID correlates the record with its queue job handle.
	JobID *int64 `json:"job_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Startable reports whether a start request is allowed for the current status.
func (m *Migration) Startable() bool {
	return m.Status == MigrationStatusPending || m.Status == MigrationStatusFailed
}
