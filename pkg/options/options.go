package options

import (
	"context"
	"fmt"
	"os"

	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultWaitForServiceImage is the image used for readiness-wait init containers
	// when the configuration does not override it
	DefaultWaitForServiceImage = "busybox:1.34.1"
	// DefaultWaitForServicePortCommandTemplate is the command run when both a service
	// name and a port were configured
	DefaultWaitForServicePortCommandTemplate = "for i in $(seq 1 200); do nc -z -w3 ::service-name ::service-port && exit 0; done; exit 1"
	// DefaultWaitForServiceOnlyCommandTemplate is the command run when only a service
	// name was configured
	DefaultWaitForServiceOnlyCommandTemplate = "until nslookup ::service-name; do echo waiting for service; sleep 2; done"

	// DefaultAPIVersion is the Chart.yaml apiVersion written for generated charts
	DefaultAPIVersion = "v2"
	// DefaultValuesRootAlias is the root key under which generated values are nested
	DefaultValuesRootAlias = "app"
)

// ChartOptions represent the options presented to users to configure the Helm chart
// generated from the host build's Kubernetes or OpenShift manifests
type ChartOptions struct {
	// Name is the name of the generated chart
	Name string `yaml:"name"`
	// Version is the semantic version of the generated chart
	Version string `yaml:"version"`
	// Description is a one-sentence description of the chart
	Description string `yaml:"description,omitempty"`
	// Icon is a URL to an icon file
	Icon string `yaml:"icon,omitempty"`
	// Home is the URL of the project page
	Home string `yaml:"home,omitempty"`
	// Sources are URLs to the source code of this chart
	Sources []string `yaml:"sources,omitempty"`
	// Keywords is a list of string keywords
	Keywords []string `yaml:"keywords,omitempty"`
	// Maintainers is a list of name/email/url combinations for the chart maintainers
	Maintainers []Maintainer `yaml:"maintainers,omitempty"`
	// APIVersion is the Chart.yaml apiVersion; defaults to v2
	APIVersion string `yaml:"apiVersion,omitempty"`
	// AppVersion is the version of the application enclosed in the chart
	AppVersion string `yaml:"appVersion,omitempty"`
	// Deprecated marks the generated chart as deprecated
	Deprecated bool `yaml:"deprecated,omitempty"`
	// Annotations are additional mappings carried into Chart.yaml verbatim
	Annotations map[string]string `yaml:"annotations,omitempty"`
	// KubeVersion is a SemVer constraint on the Kubernetes version required
	KubeVersion string `yaml:"kubeVersion,omitempty"`
	// ValuesRootAlias is the root key under which generated values are nested; defaults to app
	ValuesRootAlias string `yaml:"valuesRootAlias,omitempty"`
	// Dependencies maps a dependency key to the options describing that chart dependency
	Dependencies map[string]DependencyOptions `yaml:"dependencies,omitempty"`
	// Overrides maps dotted value paths to values merged into the generated values.yaml
	Overrides map[string]interface{} `yaml:"overrides,omitempty"`
	// Repository describes where packaged charts are published
	Repository *RepositoryOptions `yaml:"repository,omitempty"`
}

// Maintainer describes a chart maintainer entry in Chart.yaml
type Maintainer struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email,omitempty"`
	URL   string `yaml:"url,omitempty"`
}

// DependencyOptions represent the options presented to users to declare a single Helm
// chart dependency of the generated chart
type DependencyOptions struct {
	// Name is the name of the dependency; defaults to the key it is declared under
	Name string `yaml:"name,omitempty"`
	// Version is the semantic version of the dependency
	Version string `yaml:"version"`
	// Repository is the URL of the chart repository hosting the dependency
	Repository string `yaml:"repository"`
	// Condition is a dotted path enabling the dependency. If it starts with `@.`, the
	// path is not nested under the chart's root values key in the generated values.yaml
	Condition string `yaml:"condition,omitempty"`
	// Tags are used for conditional inclusion of the dependency
	Tags []string `yaml:"tags,omitempty"`
	// Enabled controls whether this dependency should be loaded; absence implies enabled
	Enabled *bool `yaml:"enabled,omitempty"`
	// Alias overrides the dependency's in-chart reference name
	Alias string `yaml:"alias,omitempty"`
	// WaitForService instructs the generated workloads to wait for the service installed
	// by this dependency. Accepts a service name or a service name plus port (service:port)
	WaitForService string `yaml:"waitForService,omitempty"`
	// WaitForServiceImage is the image used for the readiness-wait init container
	WaitForServiceImage string `yaml:"waitForServiceImage,omitempty"`
	// WaitForServicePortCommandTemplate is the command used when a port was configured
	WaitForServicePortCommandTemplate string `yaml:"waitForServicePortCommandTemplate,omitempty"`
	// WaitForServiceOnlyCommandTemplate is the command used when only a service name was configured
	WaitForServiceOnlyCommandTemplate string `yaml:"waitForServiceOnlyCommandTemplate,omitempty"`
}

// IsEnabled returns whether the dependency should be loaded; absence implies enabled
func (d DependencyOptions) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// RepositoryOptions represent the options presented to users to describe the repository
// that packaged charts are pushed to
type RepositoryOptions struct {
	// Type is one of chartmuseum, nexus, artifactory or github
	Type string `yaml:"type"`
	// URL is the base URL of the chart repository
	URL string `yaml:"url,omitempty"`
	// UsernameEnv names the environment variable holding the repository username
	UsernameEnv string `yaml:"usernameEnv,omitempty"`
	// PasswordEnv names the environment variable holding the repository password or token
	PasswordEnv string `yaml:"passwordEnv,omitempty"`
	// Owner is the GitHub account owning the target repository; github type only
	Owner string `yaml:"owner,omitempty"`
	// Repo is the GitHub repository charts are released to; github type only
	Repo string `yaml:"repo,omitempty"`
}

// Username resolves the repository username from the configured environment variable
func (r RepositoryOptions) Username() string {
	if r.UsernameEnv == "" {
		return ""
	}
	return os.Getenv(r.UsernameEnv)
}

// Password resolves the repository password from the configured environment variable
func (r RepositoryOptions) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// ApplyDefaults fills in every defaulted field that the configuration left unset
func (c *ChartOptions) ApplyDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.ValuesRootAlias == "" {
		c.ValuesRootAlias = DefaultValuesRootAlias
	}
	for key, dep := range c.Dependencies {
		if dep.Name == "" {
			dep.Name = key
		}
		if dep.WaitForServiceImage == "" {
			dep.WaitForServiceImage = DefaultWaitForServiceImage
		}
		if dep.WaitForServicePortCommandTemplate == "" {
			dep.WaitForServicePortCommandTemplate = DefaultWaitForServicePortCommandTemplate
		}
		if dep.WaitForServiceOnlyCommandTemplate == "" {
			dep.WaitForServiceOnlyCommandTemplate = DefaultWaitForServiceOnlyCommandTemplate
		}
		c.Dependencies[key] = dep
	}
}

// LoadChartOptionsFromFile unmarshalls the struct found at the file to YAML and reads it into memory
func LoadChartOptionsFromFile(ctx context.Context, fs billy.Filesystem, path string) (ChartOptions, error) {
	var chartOptions ChartOptions
	exists, err := filesystem.PathExists(fs, path)
	if err != nil {
		return chartOptions, err
	}
	if !exists {
		return chartOptions, fmt.Errorf("unable to load chart options from file %s since it does not exist", filesystem.GetAbsPath(fs, path))
	}
	if err := filesystem.LoadYamlFile(ctx, fs, path, &chartOptions, true); err != nil {
		return chartOptions, err
	}
	chartOptions.ApplyDefaults()
	return chartOptions, nil
}

// WriteToFile marshals the struct to yaml and writes it into the path specified
func (c ChartOptions) WriteToFile(fs billy.Filesystem, path string) error {
	chartOptionsBytes, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	exists, err := filesystem.PathExists(fs, path)
	if err != nil {
		return err
	}
	var file billy.File
	if !exists {
		file, err = filesystem.CreateFileAndDirs(fs, path)
	} else {
		file, err = fs.OpenFile(path, os.O_RDWR|os.O_TRUNC, os.ModePerm)
	}
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(chartOptionsBytes)
	return err
}
