package options

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/Masterminds/semver"
	"golang.org/x/exp/slices"
)

// Repository types that the push command knows how to talk to
const (
	RepositoryTypeChartmuseum = "chartmuseum"
	RepositoryTypeNexus       = "nexus"
	RepositoryTypeArtifactory = "artifactory"
	RepositoryTypeGithub      = "github"
)

var knownRepositoryTypes = []string{
	RepositoryTypeChartmuseum,
	RepositoryTypeNexus,
	RepositoryTypeArtifactory,
	RepositoryTypeGithub,
}

var (
	errChartNameRequired    = errors.New("chart name is required")
	errChartVersionRequired = errors.New("chart version is required")
)

// Validate checks the chart options for configuration errors that must be surfaced
// before any artifact is generated
func (c ChartOptions) Validate() error {
	if c.Name == "" {
		return errChartNameRequired
	}
	if c.Version == "" {
		return errChartVersionRequired
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return fmt.Errorf("chart version %s is not valid semver: %s", c.Version, err)
	}
	for key, dep := range c.Dependencies {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("dependency %s: %s", key, err)
		}
	}
	if c.Repository != nil {
		if err := c.Repository.Validate(); err != nil {
			return fmt.Errorf("repository: %s", err)
		}
	}
	return nil
}

// Validate checks a single dependency declaration
func (d DependencyOptions) Validate() error {
	if d.Version == "" {
		return errors.New("version is required")
	}
	// Ranges like 1.x or ~1.2 are valid dependency versions in Chart.yaml
	if _, err := semver.NewConstraint(d.Version); err != nil {
		return fmt.Errorf("version %s is not a valid semver constraint: %s", d.Version, err)
	}
	if d.Repository == "" {
		return errors.New("repository is required")
	}
	if _, err := url.Parse(d.Repository); err != nil {
		return fmt.Errorf("repository %s is not a valid URL: %s", d.Repository, err)
	}
	// Malformed waitForService values are recoverable and handled at resolution time
	return nil
}

// Validate checks the publish target declaration
func (r RepositoryOptions) Validate() error {
	if !slices.Contains(knownRepositoryTypes, r.Type) {
		return fmt.Errorf("unknown repository type %s, must be one of %v", r.Type, knownRepositoryTypes)
	}
	if r.Type == RepositoryTypeGithub {
		if r.Owner == "" || r.Repo == "" {
			return errors.New("github repositories require owner and repo")
		}
		return nil
	}
	if r.URL == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(r.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("url %s is not a valid absolute URL", r.URL)
	}
	return nil
}
