package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"vmshift.io/vmshift/internal/domain"
	apperrors "vmshift.io/vmshift/internal/pkg/errors"
	"vmshift.io/vmshift/internal/repository"
)

// pathID parses the named int64 path parameter, pushing a BadRequest through
// the error middleware on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed,
			name+" must be an integer"))
		return 0, false
	}
	return id, true
}

// listWindow parses skip/limit query parameters with the 0/100 defaults.
func listWindow(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return skip, limit
}

// VMCreateRequest registers a VM directly, bypassing discovery.
type VMCreateRequest struct {
	Name               string         `json:"name" binding:"required"`
	UUID               string         `json:"uuid" binding:"required"`
	OSType             string         `json:"os_type"`
	OSFamily           string         `json:"os_family"`
	CPUCount           int            `json:"cpu_count"`
	MemoryMB           int            `json:"memory_mb"`
	DiskGB             float64        `json:"disk_gb"`
	IPAddress          string         `json:"ip_address"`
	NetworkConfig      map[string]any `json:"network_config"`
	Hypervisor         string         `json:"hypervisor"`
	Datacenter         string         `json:"datacenter"`
	Cluster            string         `json:"cluster"`
	Host               string         `json:"host"`
	DiscoveredServices []string       `json:"discovered_services"`
	InstalledSoftware  []string       `json:"installed_software"`
}

func (r VMCreateRequest) toDomain() *domain.VirtualMachine {
	return &domain.VirtualMachine{
		Name:               r.Name,
		UUID:               r.UUID,
		OSType:             r.OSType,
		OSFamily:           r.OSFamily,
		CPUCount:           r.CPUCount,
		MemoryMB:           r.MemoryMB,
		DiskGB:             r.DiskGB,
		IPAddress:          r.IPAddress,
		NetworkConfig:      r.NetworkConfig,
		Hypervisor:         r.Hypervisor,
		Datacenter:         r.Datacenter,
		Cluster:            r.Cluster,
		Host:               r.Host,
		DiscoveredServices: r.DiscoveredServices,
		InstalledSoftware:  r.InstalledSoftware,
		Status:             domain.VMStatusDiscovered,
	}
}

// VMUpdateRequest carries the mutable VM fields; nil means leave unchanged.
type VMUpdateRequest struct {
	Name               *string  `json:"name"`
	Status             *string  `json:"status"`
	DiscoveredServices []string `json:"discovered_services"`
	InstalledSoftware  []string `json:"installed_software"`
}

func (r VMUpdateRequest) apply(vm *domain.VirtualMachine) error {
	if r.Name != nil {
		vm.Name = *r.Name
	}
	if r.Status != nil {
		status := domain.VMStatus(*r.Status)
		if !domain.ValidVMStatus(status) {
			return apperrors.BadRequest(apperrors.CodeValidationFailed,
				"unknown vm status: "+*r.Status)
		}
		vm.Status = status
	}
	if r.DiscoveredServices != nil {
		vm.DiscoveredServices = r.DiscoveredServices
	}
	if r.InstalledSoftware != nil {
		vm.InstalledSoftware = r.InstalledSoftware
	}
	return nil
}

// DiscoveryRequest starts a hypervisor scan.
type DiscoveryRequest struct {
	HypervisorType string `json:"hypervisor_type"`
	Host           string `json:"host" binding:"required"`
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password" binding:"required"`
	Datacenter     string `json:"datacenter"`
}

// TaskQueuedResponse acknowledges an enqueued background task.
type TaskQueuedResponse struct {
	TaskID  int64  `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MigrationCreateRequest configures a new migration.
type MigrationCreateRequest struct {
	VMID            int64  `json:"vm_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	TargetPlatform  string `json:"target_platform"`
	TargetNamespace string `json:"target_namespace"`
	BaseImage       string `json:"base_image"`
	ContainerPort   int    `json:"container_port"`
	Replicas        int    `json:"replicas"`
	RegistryURL     string `json:"registry_url"`
	ImageName       string `json:"image_name"`
	ImageTag        string `json:"image_tag"`
}

func (r MigrationCreateRequest) toDomain() (*domain.Migration, error) {
	platform := domain.TargetPlatform(r.TargetPlatform)
	if r.TargetPlatform == "" {
		platform = domain.PlatformKubernetes
	} else if !domain.ValidTargetPlatform(platform) {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed,
			"unknown target platform: "+r.TargetPlatform)
	}
	// Zero means unset; the store defaults it to 1.
	if r.Replicas != 0 && (r.Replicas < 1 || r.Replicas > 10) {
		return nil, apperrors.BadRequest(apperrors.CodeValidationFailed,
			"replicas must be between 1 and 10")
	}
	return &domain.Migration{
		VMID:            r.VMID,
		Name:            r.Name,
		TargetPlatform:  platform,
		TargetNamespace: r.TargetNamespace,
		BaseImage:       r.BaseImage,
		ContainerPort:   r.ContainerPort,
		Replicas:        r.Replicas,
		RegistryURL:     r.RegistryURL,
		ImageName:       r.ImageName,
		ImageTag:        r.ImageTag,
		Status:          domain.MigrationStatusPending,
	}, nil
}

// MigrationUpdateRequest carries the mutable migration fields; nil means
// leave unchanged.
type MigrationUpdateRequest struct {
	Status          *string `json:"status"`
	ProgressPercent *int    `json:"progress_percent"`
	StatusMessage   *string `json:"status_message"`
	ErrorMessage    *string `json:"error_message"`
}

func (r MigrationUpdateRequest) apply(m *domain.Migration) error {
	if r.Status != nil {
		status := domain.MigrationStatus(*r.Status)
		switch status {
		case domain.MigrationStatusPending, domain.MigrationStatusInProgress,
			domain.MigrationStatusGeneratingArtifacts, domain.MigrationStatusBuildingImage,
			domain.MigrationStatusPushingImage, domain.MigrationStatusDeploying,
			domain.MigrationStatusCompleted, domain.MigrationStatusFailed,
			domain.MigrationStatusCancelled:
			m.Status = status
		default:
			return apperrors.BadRequest(apperrors.CodeValidationFailed,
				"unknown migration status: "+*r.Status)
		}
	}
	if r.ProgressPercent != nil {
		if *r.ProgressPercent < 0 || *r.ProgressPercent > 100 {
			return apperrors.BadRequest(apperrors.CodeValidationFailed,
				"progress_percent must be between 0 and 100")
		}
		m.ProgressPercent = *r.ProgressPercent
	}
	if r.StatusMessage != nil {
		m.StatusMessage = *r.StatusMessage
	}
	if r.ErrorMessage != nil {
		m.ErrorMessage = *r.ErrorMessage
	}
	return nil
}

// MigrationArtifactsResponse returns the generated artifact texts.
type MigrationArtifactsResponse struct {
	MigrationID        int64  `json:"migration_id"`
	Dockerfile         string `json:"dockerfile,omitempty"`
	KubernetesManifest string `json:"kubernetes_manifest,omitempty"`
	DockerCompose      string `json:"docker_compose,omitempty"`
}

// MigrationStartResponse acknowledges a started migration.
type MigrationStartResponse struct {
	MigrationID int64  `json:"migration_id"`
	TaskID      int64  `json:"task_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

func vmFilter(c *gin.Context) repository.VMFilter {
	skip, limit := listWindow(c)
	return repository.VMFilter{
		Status: domain.VMStatus(c.Query("status_filter")),
		Skip:   skip,
		Limit:  limit,
	}
}

func migrationFilter(c *gin.Context) repository.MigrationFilter {
	skip, limit := listWindow(c)
	return repository.MigrationFilter{
		Status: domain.MigrationStatus(c.Query("status_filter")),
		Skip:   skip,
		Limit:  limit,
	}
}
