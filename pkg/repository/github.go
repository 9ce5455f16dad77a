// Package repository publishes packaged charts to a GitHub release, the hosting model
// used by GitHub-pages-backed Helm repositories.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

// GithubConfiguration represents the repository charts are released to
type GithubConfiguration struct {
	// Owner represents the account that owns the repo, e.g. chartgen
	Owner string `yaml:"owner"`
	// Name represents the name of the repo, e.g. charts
	Name string `yaml:"name"`
}

// NewClient creates a client that can make requests to the GitHub API
func NewClient(ctx context.Context, githubToken string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: githubToken,
	})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// EnsureRelease returns the release tagged with the given tag, creating it if it does
// not exist yet
func (r GithubConfiguration) EnsureRelease(ctx context.Context, client *github.Client, tag string) (*github.RepositoryRelease, error) {
	release, resp, err := client.Repositories.GetReleaseByTag(ctx, r.Owner, r.Name, tag)
	if err == nil {
		return release, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("encountered error while looking up release %s: %v", tag, err)
	}

	logger.Log(ctx, slog.LevelInfo, "creating release", slog.String("owner", r.Owner), slog.String("repo", r.Name), slog.String("tag", tag))
	release, _, err = client.Repositories.CreateRelease(ctx, r.Owner, r.Name, &github.RepositoryRelease{
		TagName: github.String(tag),
		Name:    github.String(tag),
	})
	if err != nil {
		return nil, fmt.Errorf("encountered error while creating release %s: %v", tag, err)
	}
	return release, nil
}

// UploadAsset attaches a chart archive to the release. An asset with the same name is
// replaced so republishing a regenerated chart is idempotent.
func (r GithubConfiguration) UploadAsset(ctx context.Context, client *github.Client, release *github.RepositoryRelease, tgzPath string) error {
	assetName := filepath.Base(tgzPath)

	assets, _, err := client.Repositories.ListReleaseAssets(ctx, r.Owner, r.Name, release.GetID(), &github.ListOptions{PerPage: 100})
	if err != nil {
		return fmt.Errorf("encountered error while listing release assets: %v", err)
	}
	for _, asset := range assets {
		if asset.GetName() != assetName {
			continue
		}
		logger.Log(ctx, slog.LevelWarn, "replacing existing release asset", slog.String("asset", assetName))
		if _, err := client.Repositories.DeleteReleaseAsset(ctx, r.Owner, r.Name, asset.GetID()); err != nil {
			return fmt.Errorf("encountered error while deleting release asset %s: %v", assetName, err)
		}
	}

	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("error opening chart archive %s: %v", tgzPath, err)
	}
	defer file.Close()

	_, _, err = client.Repositories.UploadReleaseAsset(ctx, r.Owner, r.Name, release.GetID(), &github.UploadOptions{
		Name: assetName,
	}, file)
	if err != nil {
		return fmt.Errorf("encountered error while uploading release asset %s: %v", assetName, err)
	}
	logger.Log(ctx, slog.LevelInfo, "uploaded release asset", slog.String("asset", assetName), slog.String("tag", release.GetTagName()))
	return nil
}
