package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vmshift.io/vmshift/internal/domain"
)

func testVM() *domain.VirtualMachine {
	return &domain.VirtualMachine{
		ID:       1,
		Name:     "web-server-01",
		UUID:     "vm-esxi-01-001",
		OSType:   "Windows Server 2019",
		OSFamily: "windows",
	}
}

func testMigration() *domain.Migration {
	return &domain.Migration{
		ID:             1,
		VMID:           1,
		Name:           "Web Server Migration",
		TargetPlatform: domain.PlatformKubernetes,
		TargetNamespace: "default",
		BaseImage:      "mcr.microsoft.com/windows/servercore:ltsc2022",
		ContainerPort:  8080,
		Replicas:       2,
		ImageName:      "web-server-01",
		ImageTag:       "v1",
		RegistryURL:    "registry.internal:5000",
	}
}

func TestGenerateDockerfile(t *testing.T) {
	gen, err := NewArtifactGenerator()
	require.NoError(t, err)

	dockerfile, err := gen.GenerateDockerfile(testMigration(), testVM())
	require.NoError(t, err)

	assert.Contains(t, dockerfile, "FROM mcr.microsoft.com/windows/servercore:ltsc2022")
	assert.Contains(t, dockerfile, "EXPOSE 8080")
	assert.Contains(t, dockerfile, "powershell")
	assert.Contains(t, dockerfile, `vmshift.io/source-vm="vm-esxi-01-001"`)
	assert.NotContains(t, dockerfile, "apt-get")
}

func TestGenerateDockerfileLinux(t *testing.T) {
	gen, err := NewArtifactGenerator()
	require.NoError(t, err)

	vm := testVM()
	vm.OSFamily = "linux"
	vm.OSType = "Ubuntu 22.04"
	m := testMigration()
	m.BaseImage = "ubuntu:22.04"

	dockerfile, err := gen.GenerateDockerfile(m, vm)
	require.NoError(t, err)

	assert.Contains(t, dockerfile, "FROM ubuntu:22.04")
	assert.Contains(t, dockerfile, "apt-get")
	assert.NotContains(t, dockerfile, "powershell")
}

func TestGenerateKubernetesManifest(t *testing.T) {
	gen, err := NewArtifactGenerator()
	require.NoError(t, err)

	manifest, err := gen.GenerateKubernetesManifest(testMigration(), testVM())
	require.NoError(t, err)

	docs := strings.Split(manifest, "---\n")
	require.Len(t, docs, 2)

	var deployment map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(docs[0]), &deployment))
	assert.Equal(t, "Deployment", deployment["kind"])
	spec := deployment["spec"].(map[string]any)
	assert.Equal(t, 2, spec["replicas"])

	var svc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(docs[1]), &svc))
	assert.Equal(t, "Service", svc["kind"])

	assert.Contains(t, manifest, "registry.internal:5000/web-server-01:v1")
	assert.Contains(t, manifest, "namespace: default")
}

func TestGenerateDockerCompose(t *testing.T) {
	gen, err := NewArtifactGenerator()
	require.NoError(t, err)

	compose, err := gen.GenerateDockerCompose(testMigration(), testVM())
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(compose), &parsed))
	services := parsed["services"].(map[string]any)
	require.Contains(t, services, "web-server-migration")

	assert.Contains(t, compose, "8080:8080")
	assert.Contains(t, compose, "unless-stopped")
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen, err := NewArtifactGenerator()
	require.NoError(t, err)

	first, err := gen.Generate(testMigration(), testVM())
	require.NoError(t, err)
	second, err := gen.Generate(testMigration(), testVM())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Dockerfile)
	assert.NotEmpty(t, first.KubernetesManifest)
	assert.NotEmpty(t, first.DockerCompose)
}

func TestResourceNameSanitizes(t *testing.T) {
	m := &domain.Migration{ID: 9, Name: "My App_v2.1 (prod)"}
	assert.Equal(t, "my-app-v2-1-prod", resourceName(m))

	m = &domain.Migration{ID: 9, Name: "!!!"}
	assert.Equal(t, "migration-9", resourceName(m))
}
