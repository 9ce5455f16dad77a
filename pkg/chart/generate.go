// Package chart renders the generated Helm chart (Chart.yaml, values.yaml and
// templates) from the host build's manifests and the declarative configuration.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/chartgen/chart-gen-scripts/pkg/config"
	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/chartgen/chart-gen-scripts/pkg/manifest"
	"github.com/chartgen/chart-gen-scripts/pkg/options"
	"github.com/chartgen/chart-gen-scripts/pkg/wait"
	"gopkg.in/yaml.v2"
	helmChart "helm.sh/helm/v3/pkg/chart"
	helmChartutil "helm.sh/helm/v3/pkg/chartutil"
)

// Generate renders charts/<name>/ from the manifests directory and the loaded
// configuration. The chart directory is rebuilt from scratch on every run.
func Generate(ctx context.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	opts := cfg.ChartOptions

	objects, err := manifest.LoadDir(ctx, cfg.RootFS, cfg.ManifestsDir)
	if err != nil {
		return fmt.Errorf("encountered error while loading manifests from %s: %s", cfg.ManifestsDir, err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("no manifests found in %s", cfg.ManifestsDir)
	}

	initContainers, err := ResolveInitContainers(ctx, opts)
	if err != nil {
		return err
	}
	if err := manifest.InjectInitContainers(ctx, objects, initContainers); err != nil {
		return err
	}

	chartDir := filepath.Join(config.PathChartsDir, opts.Name)
	if err := filesystem.RemoveAll(cfg.RootFS, chartDir); err != nil {
		return fmt.Errorf("unable to clean chart directory %s: %s", chartDir, err)
	}

	for _, obj := range objects {
		templatePath := filepath.Join(chartDir, "templates", manifest.TemplateFilename(obj))
		contents, err := manifest.Marshal(obj)
		if err != nil {
			return fmt.Errorf("encountered error while rendering template for %s %s: %s", obj.GetKind(), obj.GetName(), err)
		}
		if err := filesystem.WriteFile(cfg.RootFS, templatePath, contents); err != nil {
			return err
		}
	}

	metadata := Metadata(opts)
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("generated chart metadata is invalid: %s", err)
	}
	chartfilePath := filesystem.GetAbsPath(cfg.RootFS, filepath.Join(chartDir, "Chart.yaml"))
	if err := helmChartutil.SaveChartfile(chartfilePath, metadata); err != nil {
		return fmt.Errorf("encountered error while writing Chart.yaml: %s", err)
	}

	values, err := BuildValues(opts)
	if err != nil {
		return err
	}
	valuesBytes, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	if err := filesystem.WriteFile(cfg.RootFS, filepath.Join(chartDir, "values.yaml"), valuesBytes); err != nil {
		return err
	}

	logger.Log(ctx, slog.LevelInfo, "generated chart",
		slog.String("chartDir", chartDir), slog.Int("templates", len(objects)), slog.Int("initContainers", len(initContainers)))
	return nil
}

// ResolveInitContainers resolves every dependency's waitForService declaration in
// key-sorted order so injection is deterministic
func ResolveInitContainers(ctx context.Context, opts options.ChartOptions) ([]wait.InitContainer, error) {
	var initContainers []wait.InitContainer
	for _, key := range sortedKeys(opts.Dependencies) {
		dep := opts.Dependencies[key]
		initContainer, err := wait.Resolve(dep)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %s", key, err)
		}
		if initContainer == nil {
			if dep.WaitForService != "" {
				logger.Log(ctx, slog.LevelWarn, "waitForService declares no service name, skipping",
					slog.String("dependency", key), slog.String("waitForService", dep.WaitForService))
			}
			continue
		}
		initContainers = append(initContainers, *initContainer)
	}
	return initContainers, nil
}

// Metadata maps the chart options onto Helm chart metadata, including one dependency
// entry per declared dependency
func Metadata(opts options.ChartOptions) *helmChart.Metadata {
	metadata := &helmChart.Metadata{
		Name:        opts.Name,
		Version:     opts.Version,
		Description: opts.Description,
		Icon:        opts.Icon,
		Home:        opts.Home,
		Sources:     opts.Sources,
		Keywords:    opts.Keywords,
		APIVersion:  opts.APIVersion,
		AppVersion:  opts.AppVersion,
		Deprecated:  opts.Deprecated,
		Annotations: opts.Annotations,
		KubeVersion: opts.KubeVersion,
	}
	for _, maintainer := range opts.Maintainers {
		metadata.Maintainers = append(metadata.Maintainers, &helmChart.Maintainer{
			Name:  maintainer.Name,
			Email: maintainer.Email,
			URL:   maintainer.URL,
		})
	}
	for _, key := range sortedKeys(opts.Dependencies) {
		dep := opts.Dependencies[key]
		metadata.Dependencies = append(metadata.Dependencies, &helmChart.Dependency{
			Name:       dep.Name,
			Version:    dep.Version,
			Repository: dep.Repository,
			Condition:  DependencyCondition(opts.ValuesRootAlias, dep),
			Tags:       dep.Tags,
			Alias:      dep.Alias,
		})
	}
	return metadata
}
