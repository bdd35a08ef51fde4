package service

import (
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"vmshift.io/vmshift/internal/domain"
)

// Artifacts holds the rendered container artifacts for one migration.
type Artifacts struct {
	Dockerfile         string
	KubernetesManifest string
	DockerCompose      string
}

// ArtifactGenerator renders Dockerfiles, Kubernetes manifests, and Compose
// files from a migration configuration and the profile of the VM it targets.
// Generation is deterministic and has no side effects.
type ArtifactGenerator struct {
	dockerfile *template.Template
}

const dockerfileTemplate = `# Generated for VM: {{ .VMName }} ({{ .OSType }})
FROM {{ .BaseImage }}

LABEL vmshift.io/source-vm="{{ .VMUUID }}"
LABEL vmshift.io/migration="{{ .MigrationName }}"
{{ if .IsWindows }}
SHELL ["powershell", "-Command"]

COPY app/ C:/app/
WORKDIR C:/app
{{ else }}
RUN apt-get update && apt-get install -y --no-install-recommends \
    ca-certificates \
    && rm -rf /var/lib/apt/lists/*

COPY app/ /app/
WORKDIR /app
{{ end }}
EXPOSE {{ .ContainerPort }}

CMD {{ .Command }}
`

func NewArtifactGenerator() (*ArtifactGenerator, error) {
	tmpl, err := template.New("dockerfile").Parse(dockerfileTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse dockerfile template: %w", err)
	}
	return &ArtifactGenerator{dockerfile: tmpl}, nil
}

// Generate renders all three artifacts.
func (g *ArtifactGenerator) Generate(m *domain.Migration, vm *domain.VirtualMachine) (*Artifacts, error) {
	dockerfile, err := g.GenerateDockerfile(m, vm)
	if err != nil {
		return nil, err
	}
	manifest, err := g.GenerateKubernetesManifest(m, vm)
	if err != nil {
		return nil, err
	}
	compose, err := g.GenerateDockerCompose(m, vm)
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		Dockerfile:         dockerfile,
		KubernetesManifest: manifest,
		DockerCompose:      compose,
	}, nil
}

func (g *ArtifactGenerator) GenerateDockerfile(m *domain.Migration, vm *domain.VirtualMachine) (string, error) {
	isWindows := strings.EqualFold(vm.OSFamily, "windows")
	command := `["/bin/sh", "-c", "/app/start.sh"]`
	if isWindows {
		command = `["powershell", "-File", "C:/app/start.ps1"]`
	}

	var buf strings.Builder
	err := g.dockerfile.Execute(&buf, map[string]any{
		"VMName":        vm.Name,
		"VMUUID":        vm.UUID,
		"OSType":        vm.OSType,
		"MigrationName": m.Name,
		"BaseImage":     m.BaseImage,
		"IsWindows":     isWindows,
		"ContainerPort": m.ContainerPort,
		"Command":       command,
	})
	if err != nil {
		return "", fmt.Errorf("render dockerfile: %w", err)
	}
	return buf.String(), nil
}

// kubernetes manifest object shapes, kept minimal and ordered for stable output

type k8sMetadata struct {
	Name      string            `yaml:"name"`
	Namespace string            `yaml:"namespace,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

type k8sDeployment struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   k8sMetadata `yaml:"metadata"`
	Spec       struct {
		Replicas int `yaml:"replicas"`
		Selector struct {
			MatchLabels map[string]string `yaml:"matchLabels"`
		} `yaml:"selector"`
		Template struct {
			Metadata struct {
				Labels map[string]string `yaml:"labels"`
			} `yaml:"metadata"`
			Spec struct {
				Containers []k8sContainer `yaml:"containers"`
			} `yaml:"spec"`
		} `yaml:"template"`
	} `yaml:"spec"`
}

type k8sContainer struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
	Ports []struct {
		ContainerPort int `yaml:"containerPort"`
	} `yaml:"ports"`
}

type k8sService struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   k8sMetadata `yaml:"metadata"`
	Spec       struct {
		Selector map[string]string `yaml:"selector"`
		Ports    []struct {
			Port       int `yaml:"port"`
			TargetPort int `yaml:"targetPort"`
		} `yaml:"ports"`
		Type string `yaml:"type"`
	} `yaml:"spec"`
}

func (g *ArtifactGenerator) GenerateKubernetesManifest(m *domain.Migration, vm *domain.VirtualMachine) (string, error) {
	appName := resourceName(m)
	labels := map[string]string{
		"app":                    appName,
		"vmshift.io/source-vm":   vm.UUID,
		"vmshift.io/migrated-by": "vmshift",
	}

	deployment := k8sDeployment{
		APIVersion: "apps/v1",
		Kind:       "Deployment",
		Metadata: k8sMetadata{
			Name:      appName,
			Namespace: m.TargetNamespace,
			Labels:    labels,
		},
	}
	deployment.Spec.Replicas = m.Replicas
	deployment.Spec.Selector.MatchLabels = map[string]string{"app": appName}
	deployment.Spec.Template.Metadata.Labels = map[string]string{"app": appName}
	container := k8sContainer{
		Name:  appName,
		Image: imageRef(m),
	}
	container.Ports = append(container.Ports, struct {
		ContainerPort int `yaml:"containerPort"`
	}{ContainerPort: m.ContainerPort})
	deployment.Spec.Template.Spec.Containers = []k8sContainer{container}

	service := k8sService{
		APIVersion: "v1",
		Kind:       "Service",
		Metadata: k8sMetadata{
			Name:      appName,
			Namespace: m.TargetNamespace,
			Labels:    labels,
		},
	}
	service.Spec.Selector = map[string]string{"app": appName}
	service.Spec.Ports = append(service.Spec.Ports, struct {
		Port       int `yaml:"port"`
		TargetPort int `yaml:"targetPort"`
	}{Port: m.ContainerPort, TargetPort: m.ContainerPort})
	service.Spec.Type = "ClusterIP"

	deploymentYAML, err := yaml.Marshal(deployment)
	if err != nil {
		return "", fmt.Errorf("marshal deployment: %w", err)
	}
	serviceYAML, err := yaml.Marshal(service)
	if err != nil {
		return "", fmt.Errorf("marshal service: %w", err)
	}
	return string(deploymentYAML) + "---\n" + string(serviceYAML), nil
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image    string   `yaml:"image"`
	Ports    []string `yaml:"ports"`
	Restart  string   `yaml:"restart"`
	Labels   []string `yaml:"labels"`
	Hostname string   `yaml:"hostname,omitempty"`
}

func (g *ArtifactGenerator) GenerateDockerCompose(m *domain.Migration, vm *domain.VirtualMachine) (string, error) {
	name := resourceName(m)
	compose := composeFile{
		Services: map[string]composeService{
			name: {
				Image:    imageRef(m),
				Ports:    []string{fmt.Sprintf("%d:%d", m.ContainerPort, m.ContainerPort)},
				Restart:  "unless-stopped",
				Labels:   []string{"vmshift.io/source-vm=" + vm.UUID},
				Hostname: vm.Name,
			},
		},
	}
	out, err := yaml.Marshal(compose)
	if err != nil {
		return "", fmt.Errorf("marshal compose: %w", err)
	}
	return string(out), nil
}

// resourceName derives a DNS-safe name from the migration name.
func resourceName(m *domain.Migration) string {
	name := strings.ToLower(m.Name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_', r == '.':
			return '-'
		default:
			return -1
		}
	}, name)
	name = strings.Trim(name, "-")
	if name == "" {
		name = fmt.Sprintf("migration-%d", m.ID)
	}
	return name
}

// imageRef assembles the fully-qualified image reference.
func imageRef(m *domain.Migration) string {
	image := m.ImageName
	if image == "" {
		image = resourceName(m)
	}
	tag := m.ImageTag
	if tag == "" {
		tag = "latest"
	}
	if m.RegistryURL != "" {
		return fmt.Sprintf("%s/%s:%s", strings.TrimSuffix(m.RegistryURL, "/"), image, tag)
	}
	return fmt.Sprintf("%s:%s", image, tag)
}
