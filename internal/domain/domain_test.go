package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationStatusTerminal(t *testing.T) {
	terminal := []MigrationStatus{
		MigrationStatusCompleted,
		MigrationStatusFailed,
		MigrationStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []MigrationStatus{
		MigrationStatusPending,
		MigrationStatusInProgress,
		MigrationStatusGeneratingArtifacts,
		MigrationStatusBuildingImage,
		MigrationStatusPushingImage,
		MigrationStatusDeploying,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestMigrationStartable(t *testing.T) {
	assert.True(t, (&Migration{Status: MigrationStatusPending}).Startable())
	assert.True(t, (&Migration{Status: MigrationStatusFailed}).Startable())
	assert.False(t, (&Migration{Status: MigrationStatusInProgress}).Startable())
	assert.False(t, (&Migration{Status: MigrationStatusCompleted}).Startable())
	assert.False(t, (&Migration{Status: MigrationStatusCancelled}).Startable())
}

func TestValidVMStatus(t *testing.T) {
	for _, s := range []VMStatus{
		VMStatusDiscovered, VMStatusAnalyzing, VMStatusReady,
		VMStatusMigrating, VMStatusCompleted, VMStatusFailed,
	} {
		assert.True(t, ValidVMStatus(s), "%s should be valid", s)
	}
	assert.False(t, ValidVMStatus("powered_off"))
	assert.False(t, ValidVMStatus(""))
}

func TestValidTargetPlatform(t *testing.T) {
	for _, p := range []TargetPlatform{
		PlatformDocker, PlatformKubernetes, PlatformOpenShift, PlatformEKS, PlatformAKS,
	} {
		assert.True(t, ValidTargetPlatform(p), "%s should be valid", p)
	}
	assert.False(t, ValidTargetPlatform("mainframe"))
	assert.False(t, ValidTargetPlatform(""))
}
