// Package helm packages generated charts into assets and maintains the repository index.
package helm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blang/semver"
	"github.com/chartgen/chart-gen-scripts/pkg/config"
	"github.com/chartgen/chart-gen-scripts/pkg/filesystem"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	helmLoader "helm.sh/helm/v3/pkg/chart/loader"
	helmChartutil "helm.sh/helm/v3/pkg/chartutil"
)

// ExportChart packages the chart found at charts/<chartName> into assets/<chartName>/
// and returns the path of the generated archive relative to the repository root
func ExportChart(ctx context.Context, chartName string) (string, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return "", err
	}
	rootFS := cfg.RootFS

	chartDir := filepath.Join(config.PathChartsDir, chartName)
	absChartDir := filesystem.GetAbsPath(rootFS, chartDir)

	// Try to load the chart to see if it can be exported
	chart, err := helmLoader.Load(absChartDir)
	if err != nil {
		return "", fmt.Errorf("could not load Helm chart: %s", err)
	}
	if err := chart.Validate(); err != nil {
		return "", fmt.Errorf("failed while trying to validate Helm chart: %s", err)
	}
	if _, err := semver.Make(chart.Metadata.Version); err != nil {
		return "", fmt.Errorf("cannot parse chart version %s as valid semver", chart.Metadata.Version)
	}

	// Assets are indexed by chart name
	chartAssetsDirpath := filepath.Join(config.PathAssetsDir, chart.Metadata.Name)
	if err := rootFS.MkdirAll(chartAssetsDirpath, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory for assets at %s: %s", chartAssetsDirpath, err)
	}
	defer filesystem.PruneEmptyDirsInPath(rootFS, chartAssetsDirpath)

	// Archive the chart. Declared dependencies are resolved at install time from their
	// repositories, so packaging must not require them to be vendored under charts/
	absTgzPath, err := helmChartutil.Save(chart, filesystem.GetAbsPath(rootFS, chartAssetsDirpath))
	if err != nil {
		return "", err
	}
	tgzPath, err := filesystem.GetRelativePath(rootFS, absTgzPath)
	if err != nil {
		return "", err
	}
	logger.Log(ctx, slog.LevelInfo, "generated archive", slog.String("tgzPath", tgzPath))
	return tgzPath, nil
}
