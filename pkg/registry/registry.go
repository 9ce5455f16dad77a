// Package registry verifies that container images referenced by the generated chart
// resolve in their remote registries before the chart ships.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// checkRemoteImage resolves an image reference in its remote registry.
// this function is mockable for unit-testing.
var checkRemoteImage = func(ctx context.Context, image string) error {
	ref, err := name.ParseReference(image)
	if err != nil {
		return fmt.Errorf("image %s is not a valid reference: %v", image, err)
	}
	if _, err := remote.Head(ref, remote.WithContext(ctx)); err != nil {
		return fmt.Errorf("image %s could not be resolved: %v", image, err)
	}
	return nil
}

// CheckImages verifies every provided image resolves remotely and reports the full
// list of unresolvable images instead of stopping at the first
func CheckImages(ctx context.Context, images []string) error {
	var missing []string
	for _, image := range images {
		logger.Log(ctx, slog.LevelDebug, "checking image", slog.String("image", image))
		if err := checkRemoteImage(ctx, image); err != nil {
			logger.Log(ctx, slog.LevelWarn, "image check failed", slog.String("image", image), logger.Err(err))
			missing = append(missing, image)
			continue
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("found images that could not be resolved remotely: %v", missing)
	}
	logger.Log(ctx, slog.LevelInfo, "all images resolved", slog.Int("count", len(images)))
	return nil
}
