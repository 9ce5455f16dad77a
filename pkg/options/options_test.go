package options

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	opts := ChartOptions{
		Name:    "demo",
		Version: "0.1.0",
		Dependencies: map[string]DependencyOptions{
			"postgresql": {
				Version:        "12.1.2",
				Repository:     "https://charts.bitnami.com/bitnami",
				WaitForService: "demo-db:5432",
			},
			"named": {
				Name:                "custom-name",
				Version:             "1.0.0",
				Repository:          "https://charts.example.com",
				WaitForServiceImage: "busybox:1.36.0",
			},
		},
	}
	opts.ApplyDefaults()

	assert.Equal(t, DefaultAPIVersion, opts.APIVersion)
	assert.Equal(t, DefaultValuesRootAlias, opts.ValuesRootAlias)

	postgresql := opts.Dependencies["postgresql"]
	assert.Equal(t, "postgresql", postgresql.Name, "name should default to the map key")
	assert.Equal(t, "busybox:1.34.1", postgresql.WaitForServiceImage)
	assert.Equal(t, DefaultWaitForServicePortCommandTemplate, postgresql.WaitForServicePortCommandTemplate)
	assert.Equal(t, DefaultWaitForServiceOnlyCommandTemplate, postgresql.WaitForServiceOnlyCommandTemplate)

	named := opts.Dependencies["named"]
	assert.Equal(t, "custom-name", named.Name, "explicit name should be kept")
	assert.Equal(t, "busybox:1.36.0", named.WaitForServiceImage, "explicit image should be kept")
}

func TestIsEnabled(t *testing.T) {
	enabled := true
	disabled := false
	assert.True(t, DependencyOptions{}.IsEnabled(), "absence implies enabled")
	assert.True(t, DependencyOptions{Enabled: &enabled}.IsEnabled())
	assert.False(t, DependencyOptions{Enabled: &disabled}.IsEnabled())
}

func TestLoadChartOptionsFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := `name: demo
version: 0.1.0
dependencies:
  postgresql:
    version: 12.1.2
    repository: https://charts.bitnami.com/bitnami
    waitForService: demo-db:5432
  redis:
    version: 17.x
    repository: https://charts.bitnami.com/bitnami
    condition: "@.redis.enabled"
    enabled: false
overrides:
  app.replicas: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helm.yaml"), []byte(contents), 0o644))

	fs := filesystem.GetFilesystem(dir)
	opts, err := LoadChartOptionsFromFile(context.Background(), fs, "helm.yaml")
	require.NoError(t, err)
	require.NoError(t, opts.Validate())

	assert.Equal(t, "demo", opts.Name)
	assert.Len(t, opts.Dependencies, 2)
	assert.Equal(t, "demo-db:5432", opts.Dependencies["postgresql"].WaitForService)
	assert.Equal(t, "busybox:1.34.1", opts.Dependencies["postgresql"].WaitForServiceImage)
	assert.False(t, opts.Dependencies["redis"].IsEnabled())
	assert.Equal(t, 3, opts.Overrides["app.replicas"])
}

func TestWriteToFileRoundTrip(t *testing.T) {
	fs := filesystem.GetFilesystem(t.TempDir())
	opts := ChartOptions{
		Name:    "demo",
		Version: "0.1.0",
		Dependencies: map[string]DependencyOptions{
			"postgresql": {
				Version:        "12.1.2",
				Repository:     "https://charts.bitnami.com/bitnami",
				WaitForService: "demo-db:5432",
			},
		},
	}
	opts.ApplyDefaults()
	require.NoError(t, opts.WriteToFile(fs, "generated/helm.yaml"))

	reloaded, err := LoadChartOptionsFromFile(context.Background(), fs, "generated/helm.yaml")
	require.NoError(t, err)
	assert.Equal(t, opts, reloaded)
}

func TestLoadChartOptionsFromMissingFile(t *testing.T) {
	fs := filesystem.GetFilesystem(t.TempDir())
	_, err := LoadChartOptionsFromFile(context.Background(), fs, "helm.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := ChartOptions{Name: "demo", Version: "0.1.0"}

	tests := []struct {
		name        string
		mutate      func(*ChartOptions)
		expectedErr string
	}{
		{
			name:   "#1 - valid minimal options",
			mutate: func(*ChartOptions) {},
		},
		{
			name:        "#2 - missing name",
			mutate:      func(c *ChartOptions) { c.Name = "" },
			expectedErr: "chart name is required",
		},
		{
			name:        "#3 - missing version",
			mutate:      func(c *ChartOptions) { c.Version = "" },
			expectedErr: "chart version is required",
		},
		{
			name:        "#4 - bad version",
			mutate:      func(c *ChartOptions) { c.Version = "not-semver" },
			expectedErr: "not valid semver",
		},
		{
			name: "#5 - dependency without repository",
			mutate: func(c *ChartOptions) {
				c.Dependencies = map[string]DependencyOptions{"db": {Version: "1.0.0"}}
			},
			expectedErr: "repository is required",
		},
		{
			name: "#6 - dependency version range is allowed",
			mutate: func(c *ChartOptions) {
				c.Dependencies = map[string]DependencyOptions{"db": {Version: "1.x", Repository: "https://charts.example.com"}}
			},
		},
		{
			name: "#7 - unknown repository type",
			mutate: func(c *ChartOptions) {
				c.Repository = &RepositoryOptions{Type: "ftp", URL: "https://charts.example.com"}
			},
			expectedErr: "unknown repository type",
		},
		{
			name: "#8 - github repository requires owner and repo",
			mutate: func(c *ChartOptions) {
				c.Repository = &RepositoryOptions{Type: RepositoryTypeGithub}
			},
			expectedErr: "owner and repo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestRepositoryCredentialsFromEnv(t *testing.T) {
	t.Setenv("TEST_HELM_REPO_USERNAME", "admin")
	t.Setenv("TEST_HELM_REPO_PASSWORD", "hunter2")
	repo := RepositoryOptions{
		Type:        RepositoryTypeChartmuseum,
		URL:         "https://charts.example.com",
		UsernameEnv: "TEST_HELM_REPO_USERNAME",
		PasswordEnv: "TEST_HELM_REPO_PASSWORD",
	}
	assert.Equal(t, "admin", repo.Username())
	assert.Equal(t, "hunter2", repo.Password())
	assert.Empty(t, RepositoryOptions{}.Username())
}
