package helm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/chartgen/chart-gen-scripts/pkg/config"
	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	helmRepo "helm.sh/helm/v3/pkg/repo"
)

// indexMutex protects concurrent access to index.yaml file operations
var indexMutex sync.Mutex

// CreateOrUpdateIndex either creates or updates the index.yaml for the repository of
// generated charts, preserving created timestamps of unchanged archives
func CreateOrUpdateIndex(ctx context.Context) error {
	indexMutex.Lock()
	defer indexMutex.Unlock()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	absAssetsDir := filesystem.GetAbsPath(cfg.RootFS, config.PathAssetsDir)
	absIndexFile := filesystem.GetAbsPath(cfg.RootFS, config.PathIndexYaml)

	var indexFile *helmRepo.IndexFile

	exists, err := filesystem.PathExists(cfg.RootFS, config.PathIndexYaml)
	if err != nil {
		return errors.New("encountered error while checking if Helm index file already exists in repository: " + err.Error())
	}

	if exists {
		indexFile, err = helmRepo.LoadIndexFile(absIndexFile)
		if err != nil {
			return errors.New("encountered error while trying to load existing index file: " + err.Error())
		}
	} else {
		indexFile = helmRepo.NewIndexFile()
	}

	// Generate the current index file from the assets/ directory
	newIndexFile, err := helmRepo.IndexDirectory(absAssetsDir, config.PathAssetsDir)
	if err != nil {
		return errors.New("encountered error while trying to generate new Helm index: " + err.Error())
	}

	indexFile.SortEntries()
	newIndexFile.SortEntries()

	indexFile, upToDate := UpdateIndex(ctx, indexFile, newIndexFile)

	if upToDate {
		logger.Log(ctx, slog.LevelInfo, "index.yaml is up-to-date")
		return nil
	}

	if err := indexFile.WriteFile(absIndexFile, os.ModePerm); err != nil {
		return errors.New("encountered error while trying to write updated Helm index into index.yaml: " + err.Error())
	}

	logger.Log(ctx, slog.LevelInfo, "generated index.yaml")
	return nil
}

// UpdateIndex updates the original index with the new contents
func UpdateIndex(ctx context.Context, original, new *helmRepo.IndexFile) (*helmRepo.IndexFile, bool) {
	upToDate := true
	// Preserve generated timestamp
	new.Generated = original.Generated

	for chartName, chartVersions := range new.Entries {
		for i, chartVersion := range chartVersions {
			version := chartVersion.Version
			if !original.Has(chartName, version) {
				upToDate = false
				logger.Log(ctx, slog.LevelDebug, "chart has introduced a new version", slog.String("chartName", chartName), slog.String("version", version))
				continue
			}
			// Get original chart version
			var originalChartVersion *helmRepo.ChartVersion
			for _, originalChartVersion = range original.Entries[chartName] {
				if originalChartVersion.Version == chartVersion.Version {
					break
				}
			}
			// Try to preserve it only if nothing has changed.
			if originalChartVersion.Digest == chartVersion.Digest {
				// Don't modify created timestamp
				new.Entries[chartName][i].Created = originalChartVersion.Created
			} else {
				upToDate = false
				logger.Log(ctx, slog.LevelDebug, "chart has been modified", slog.String("chartName", chartName), slog.String("version", version))
			}
		}
	}

	for chartName, chartVersions := range original.Entries {
		for _, chartVersion := range chartVersions {
			if !new.Has(chartName, chartVersion.Version) {
				upToDate = false
				logger.Log(ctx, slog.LevelDebug, "chart has been removed", slog.String("chartName", chartName), slog.String("version", chartVersion.Version))
			}
		}
	}

	new.SortEntries()
	return new, upToDate
}
