// Package config provides centralized configuration loading for the
// chart-gen-scripts tooling.
//
// The Config struct is initialized once at the start of any command and carried in
// the context, so every command works from the same loaded view of the repository.
package config

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/chartgen/chart-gen-scripts/pkg/options"
	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
)

// Paths of generated artifacts within the repository root
const (
	// PathChartsDir holds the unarchived generated charts
	PathChartsDir = "charts"
	// PathAssetsDir holds the packaged chart archives
	PathAssetsDir = "assets"
	// PathIndexYaml is the Helm repository index
	PathIndexYaml = "index.yaml"
	// DefaultOptionsFile is the declarative configuration read from the repository root
	DefaultOptionsFile = "helm.yaml"
	// DefaultManifestsDir is where the host build leaves its generated manifests
	DefaultManifestsDir = "manifests"
)

var errGitNotClean = errors.New("local git repository should be clean")

// Config is the central configuration struct holding all data needed to execute
// chart generation operations
type Config struct {
	Root         string               // Absolute path to the repository root
	RootFS       billy.Filesystem     // Filesystem abstraction for the repository
	ManifestsDir string               // Directory containing the host build's manifests
	ChartOptions options.ChartOptions // Declarative configuration loaded from helm.yaml
}

// Init initializes and returns a fully-loaded Config struct rooted at root.
//
// Validation performed:
//   - helm.yaml must load and pass validation
//   - the git worktree must be clean unless force is set (generation mutates the tree)
func Init(ctx context.Context, root, optionsFile, manifestsDir string, force bool) (*Config, error) {
	rootFS := filesystem.GetFilesystem(root)

	if optionsFile == "" {
		optionsFile = DefaultOptionsFile
	}
	if manifestsDir == "" {
		manifestsDir = DefaultManifestsDir
	}

	chartOptions, err := options.LoadChartOptionsFromFile(ctx, rootFS, optionsFile)
	if err != nil {
		return nil, err
	}
	if err := chartOptions.Validate(); err != nil {
		return nil, err
	}

	if err := checkWorktreeClean(ctx, root, force); err != nil {
		return nil, err
	}

	logger.Log(ctx, slog.LevelDebug, "configuration loaded",
		slog.String("root", root), slog.String("optionsFile", optionsFile), slog.String("chart", chartOptions.Name))

	return &Config{
		Root:         root,
		RootFS:       rootFS,
		ManifestsDir: manifestsDir,
		ChartOptions: chartOptions,
	}, nil
}

// checkWorktreeClean refuses to run against a dirty git worktree so generated
// artifacts never mix with uncommitted edits. Roots outside a git repository pass.
func checkWorktreeClean(ctx context.Context, root string, force bool) error {
	repo, err := gogit.PlainOpen(root)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			logger.Log(ctx, slog.LevelDebug, "root is not a git repository, skipping clean check")
			return nil
		}
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	status, err := worktree.Status()
	if err != nil {
		return err
	}
	if status.IsClean() {
		return nil
	}
	if force {
		logger.Log(ctx, slog.LevelWarn, "git repository is not clean, continuing because force was set")
		return nil
	}
	return errGitNotClean
}
