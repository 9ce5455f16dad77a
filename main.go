package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chartgen/chart-gen-scripts/pkg/actions"
	"github.com/chartgen/chart-gen-scripts/pkg/logger"
	"github.com/urfave/cli"
	"sigs.k8s.io/release-utils/version"
)

const (
	// DefaultOptionsEnvironmentVariable is the default environment variable for pointing to the configuration file
	DefaultOptionsEnvironmentVariable = "HELM_CONFIG"
	// DefaultManifestsEnvironmentVariable is the default environment variable for the manifests directory
	DefaultManifestsEnvironmentVariable = "MANIFESTS_DIR"
	// DefaultPorcelainEnvironmentVariable is the default environment variable that indicates whether we should run on porcelain mode
	DefaultPorcelainEnvironmentVariable = "PORCELAIN"
	// DefaultForceEnvironmentVariable is the default environment variable that allows running against a dirty git worktree
	DefaultForceEnvironmentVariable = "FORCE"
	// DefaultDebugEnvironmentVariable is the default environment variable that lowers the log level to debug
	DefaultDebugEnvironmentVariable = "DEBUG"
)

var (
	// OptionsFile represents the path of the declarative configuration file
	OptionsFile string
	// ManifestsDir represents the directory the host build left its manifests in
	ManifestsDir string
	// PorcelainMode indicates that the output of the commands should be in an easy-to-parse format for scripts
	PorcelainMode bool
	// ForceMode allows mutating commands to run against a dirty git worktree
	ForceMode bool
	// DebugMode lowers the log level to debug
	DebugMode bool
)

func main() {
	logger.Setup(false)

	app := cli.NewApp()
	app.Name = "chart-gen-scripts"
	app.Version = version.GetVersionInfo().GitVersion
	app.Usage = "Build scripts used to generate Helm charts from the Kubernetes or OpenShift manifests produced by a host build"
	configFlag := cli.StringFlag{
		Name:        "config,f",
		Usage:       "The declarative configuration file describing the chart, its dependencies and publish targets",
		TakesFile:   true,
		Destination: &OptionsFile,
		EnvVar:      DefaultOptionsEnvironmentVariable,
	}
	manifestsFlag := cli.StringFlag{
		Name:        "manifests,m",
		Usage:       "The directory containing the manifests produced by the host build",
		Destination: &ManifestsDir,
		EnvVar:      DefaultManifestsEnvironmentVariable,
	}
	porcelainFlag := cli.BoolFlag{
		Name:        "porcelain",
		Usage:       "Print the output of the command in a easy-to-parse format for scripts",
		Required:    false,
		Destination: &PorcelainMode,
		EnvVar:      DefaultPorcelainEnvironmentVariable,
	}
	forceFlag := cli.BoolFlag{
		Name:        "force",
		Usage:       "Run even if the local git repository is not clean",
		Required:    false,
		Destination: &ForceMode,
		EnvVar:      DefaultForceEnvironmentVariable,
	}
	debugFlag := cli.BoolFlag{
		Name:        "debug",
		Usage:       "Print debug logs while running the command",
		Required:    false,
		Destination: &DebugMode,
		EnvVar:      DefaultDebugEnvironmentVariable,
	}
	app.Commands = []cli.Command{
		{
			Name:   "list",
			Usage:  "Print the chart dependencies tracked in the configuration",
			Action: listDependencies,
			Flags:  []cli.Flag{configFlag, porcelainFlag, forceFlag, debugFlag},
		},
		{
			Name:   "generate",
			Usage:  "Generate the Helm chart from the host build's manifests",
			Action: generateChart,
			Flags:  []cli.Flag{configFlag, manifestsFlag, forceFlag, debugFlag},
		},
		{
			Name:   "package",
			Usage:  "Package the generated chart into an archive under assets",
			Action: packageChart,
			Flags:  []cli.Flag{configFlag, forceFlag, debugFlag},
		},
		{
			Name:   "index",
			Usage:  "Create or update the Helm repository index.yaml based on the contents of assets",
			Action: createOrUpdateIndex,
			Flags:  []cli.Flag{configFlag, forceFlag, debugFlag},
		},
		{
			Name:   "push",
			Usage:  "Upload the packaged chart to the configured repository",
			Action: pushChart,
			Flags:  []cli.Flag{configFlag, forceFlag, debugFlag},
		},
		{
			Name:   "check-images",
			Usage:  "Verify that every image referenced by the generated chart resolves in its remote registry",
			Action: checkImages,
			Flags:  []cli.Flag{configFlag, forceFlag, debugFlag},
		},
		{
			Name:   "clean",
			Usage:  "Remove the generated chart and its packaged archives",
			Action: cleanRepo,
			Flags:  []cli.Flag{configFlag, forceFlag, debugFlag},
		},
		{
			Name:   "version",
			Usage:  "Print the version of chart-gen-scripts",
			Action: printVersion,
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(context.Background(), err.Error())
	}
}

func setup(c *cli.Context) (context.Context, error) {
	logger.Setup(DebugMode)
	return actions.Setup(context.Background(), OptionsFile, ManifestsDir, ForceMode)
}

func listDependencies(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.List(ctx, PorcelainMode)
}

func generateChart(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.Generate(ctx)
}

func packageChart(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.Package(ctx)
}

func createOrUpdateIndex(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.Index(ctx)
}

func pushChart(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.Push(ctx)
}

func checkImages(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.CheckImages(ctx)
}

func cleanRepo(c *cli.Context) error {
	ctx, err := setup(c)
	if err != nil {
		return err
	}
	return actions.Clean(ctx)
}

func printVersion(c *cli.Context) error {
	info := version.GetVersionInfo()
	fmt.Println(info.String())
	return nil
}
