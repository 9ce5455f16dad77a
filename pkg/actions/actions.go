// Package actions bridges the CLI commands to the packages doing the actual work.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chartgen/chart-gen-scripts/pkg/chart"
	"github.com/chartgen/chart-gen-scripts/pkg/config"
	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/helm"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/chartgen/chart-gen-scripts/pkg/manifest"
	"github.com/chartgen/chart-gen-scripts/pkg/options"
	"github.com/chartgen/chart-gen-scripts/pkg/registry"
	"github.com/chartgen/chart-gen-scripts/pkg/repository"
	"github.com/chartgen/chart-gen-scripts/pkg/rest"
	"golang.org/x/exp/slices"
)

// Setup loads the configuration and attaches it to the context for every command
func Setup(ctx context.Context, optionsFile, manifestsDir string, force bool) (context.Context, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return ctx, fmt.Errorf("unable to get current working directory: %s", err)
	}
	cfg, err := config.Init(ctx, repoRoot, optionsFile, manifestsDir, force)
	if err != nil {
		return ctx, err
	}
	return config.WithConfig(ctx, cfg), nil
}

// List prints the dependencies tracked in the configuration
func List(ctx context.Context, porcelainMode bool) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	var names []string
	for _, dep := range cfg.ChartOptions.Dependencies {
		names = append(names, fmt.Sprintf("%s@%s", dep.Name, dep.Version))
	}
	slices.Sort(names)
	if porcelainMode {
		fmt.Println(strings.Join(names, " "))
		return nil
	}
	logger.Log(ctx, slog.LevelInfo, "tracked dependencies",
		slog.String("chart", cfg.ChartOptions.Name), slog.Any("dependencies", names))
	return nil
}

// Generate renders the chart from the host build's manifests
func Generate(ctx context.Context) error {
	return chart.Generate(ctx)
}

// Package archives the generated chart into assets/
func Package(ctx context.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	_, err = helm.ExportChart(ctx, cfg.ChartOptions.Name)
	return err
}

// Index creates or updates index.yaml from the contents of assets/
func Index(ctx context.Context) error {
	return helm.CreateOrUpdateIndex(ctx)
}

// Push uploads the packaged chart to the configured repository target
func Push(ctx context.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	opts := cfg.ChartOptions
	if opts.Repository == nil {
		return errors.New("no repository target configured, nothing to push to")
	}

	tgzPath := filepath.Join(config.PathAssetsDir, opts.Name, fmt.Sprintf("%s-%s.tgz", opts.Name, opts.Version))
	exists, err := filesystem.PathExists(cfg.RootFS, tgzPath)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("chart archive %s does not exist, run package first", tgzPath)
	}
	absTgzPath := filesystem.GetAbsPath(cfg.RootFS, tgzPath)

	repo := *opts.Repository
	creds := rest.Credentials{Username: repo.Username(), Password: repo.Password()}

	switch repo.Type {
	case options.RepositoryTypeChartmuseum:
		if err := rest.Head(ctx, repo.URL, ""); err != nil {
			return fmt.Errorf("chart repository %s is not reachable: %s", repo.URL, err)
		}
		pushURL := strings.TrimSuffix(repo.URL, "/") + "/api/charts"
		return rest.PushMultipart(ctx, pushURL, absTgzPath, creds)
	case options.RepositoryTypeNexus, options.RepositoryTypeArtifactory:
		pushURL := strings.TrimSuffix(repo.URL, "/") + "/" + filepath.Base(tgzPath)
		return rest.PushRaw(ctx, pushURL, absTgzPath, creds)
	case options.RepositoryTypeGithub:
		return pushGithubRelease(ctx, repo, absTgzPath, opts.Version)
	default:
		return fmt.Errorf("unknown repository type %s", repo.Type)
	}
}

func pushGithubRelease(ctx context.Context, repo options.RepositoryOptions, absTgzPath, version string) error {
	token := repo.Password()
	if token == "" {
		return errors.New("github pushes require a token provided through passwordEnv")
	}
	client := repository.NewClient(ctx, token)
	target := repository.GithubConfiguration{Owner: repo.Owner, Name: repo.Repo}
	release, err := target.EnsureRelease(ctx, client, "v"+version)
	if err != nil {
		return err
	}
	return target.UploadAsset(ctx, client, release, absTgzPath)
}

// CheckImages verifies that every image referenced by the generated templates and
// every wait-for-service image resolves in its remote registry
func CheckImages(ctx context.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	opts := cfg.ChartOptions

	templatesDir := filepath.Join(config.PathChartsDir, opts.Name, "templates")
	exists, err := filesystem.PathExists(cfg.RootFS, templatesDir)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("chart templates at %s do not exist, run generate first", templatesDir)
	}

	objects, err := manifest.LoadDir(ctx, cfg.RootFS, templatesDir)
	if err != nil {
		return err
	}
	images := manifest.Images(objects)

	// Wait-for-service images belong in the check even when no manifest references
	// them yet, e.g. when all workloads were filtered out upstream
	seen := map[string]bool{}
	for _, image := range images {
		seen[image] = true
	}
	for _, dep := range opts.Dependencies {
		if dep.WaitForService == "" || seen[dep.WaitForServiceImage] {
			continue
		}
		images = append(images, dep.WaitForServiceImage)
		seen[dep.WaitForServiceImage] = true
	}

	return registry.CheckImages(ctx, images)
}

// Clean removes the generated chart and its packaged archives
func Clean(ctx context.Context) error {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	chartName := cfg.ChartOptions.Name
	for _, dir := range []string{
		filepath.Join(config.PathChartsDir, chartName),
		filepath.Join(config.PathAssetsDir, chartName),
	} {
		if err := filesystem.RemoveAll(cfg.RootFS, dir); err != nil {
			return fmt.Errorf("unable to remove %s: %s", dir, err)
		}
		logger.Log(ctx, slog.LevelInfo, "removed", slog.String("dir", dir))
	}
	return nil
}
