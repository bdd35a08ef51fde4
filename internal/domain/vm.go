// Package domain provides domain models for VMShift.
//
// Stores and job workers exchange these types only; SQL row shapes and API
// response shapes are mapped at the repository/handler boundaries.
package domain

import "time"

// VMStatus represents the lifecycle state of a discovered virtual machine.
type VMStatus string

const (
	VMStatusDiscovered VMStatus = "discovered" // cataloged by discovery, not yet analyzed
	VMStatusAnalyzing  VMStatus = "analyzing"  // analysis job in flight
	VMStatusReady      VMStatus = "ready"      // analyzed, eligible for migration
	VMStatusMigrating  VMStatus = "migrating"  // referenced by an active migration
	VMStatusCompleted  VMStatus = "completed"  // migration finished successfully
	VMStatusFailed     VMStatus = "failed"     // analysis or migration failed
)

// ValidVMStatus reports whether s is a known VM status value.
func ValidVMStatus(s VMStatus) bool {
	switch s {
	case VMStatusDiscovered, VMStatusAnalyzing, VMStatusReady,
		VMStatusMigrating, VMStatusCompleted, VMStatusFailed:
		return true
	}
	return false
}

// VirtualMachine is an inventory record for a VM discovered on (or registered
// against) a hypervisor. UUID is unique across all records; discovery inserts
// only when no record shares the UUID.
type VirtualMachine struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	UUID string `json:"uuid"`

	OSType   string  `json:"os_type"`
	OSFamily string  `json:"os_family"` // "windows" or "linux"
	CPUCount int     `json:"cpu_count"`
	MemoryMB int     `json:"memory_mb"`
	DiskGB   float64 `json:"disk_gb"`

	IPAddress     string         `json:"ip_address"`
	NetworkConfig map[string]any `json:"network_config,omitempty"`

	Hypervisor string `json:"hypervisor"`
	Datacenter string `json:"datacenter"`
	Cluster    string `json:"cluster"`
	Host       string `json:"host"`

	DiscoveredServices []string `json:"discovered_services,omitempty"`
	InstalledSoftware  []string `json:"installed_software,omitempty"`

	Status VMStatus `json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
