/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cowdogmoo/wheelwright/builder"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/cowdogmoo/wheelwright/logging"
	"github.com/cowdogmoo/wheelwright/manifest"
	"github.com/spf13/cobra"
)

// Build command options
type buildOptions struct {
	manifestFile   string
	ref            string
	outputDir      string
	pythonVersion  string
	isolationMode  string
	platform       string
	architecture   string
	image          string
	sdist          bool
	noWheel        bool
	noDeps         bool
	clean          bool
	writeLog       bool
	repair         bool
	noNetwork      bool
	memoryLimit    string
	cpuLimit       float64
	configSettings []string
	requirements   []string
	vars           []string
	concurrency    int
}

var buildOpts = &buildOptions{}

var buildCmd = &cobra.Command{
	Use:   "build [source]",
	Short: "Build wheels from a source project or manifest",
	Long: `Build Python wheels and source distributions.

The source is a local project directory or a git URL. With --manifest, a
YAML manifest drives multiple project builds in parallel.

Examples:
  # Build the current directory with auto isolation
  wheelwright build .

  # Build a git repository at a tag
  wheelwright build https://github.com/psf/requests.git --ref v2.32.0

  # Portable manylinux wheel for aarch64
  wheelwright build . --isolation container --arch aarch64 --repair

  # Alpine-compatible wheel
  wheelwright build . --platform musllinux

  # Multi-project build from a manifest
  wheelwright build --manifest wheelwright.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	flags := buildCmd.Flags()
	flags.StringVarP(&buildOpts.manifestFile, "manifest", "m", "", "Build every project in a YAML manifest")
	flags.StringVar(&buildOpts.ref, "ref", "", "Git branch, tag, or commit for git sources")
	flags.StringVarP(&buildOpts.outputDir, "output-dir", "o", "", "Directory for built artifacts")
	flags.StringVarP(&buildOpts.pythonVersion, "python", "p", "", "Python version to build for (e.g. 3.12)")
	flags.StringVar(&buildOpts.isolationMode, "isolation", "", "Isolation backend (local, container, auto)")
	flags.StringVar(&buildOpts.platform, "platform", "", "Container platform family (manylinux, musllinux)")
	flags.StringVar(&buildOpts.architecture, "arch", "", "Target architecture (x86_64, aarch64, i686)")
	flags.StringVar(&buildOpts.image, "image", "", "Explicit build image (key or full reference)")
	flags.BoolVar(&buildOpts.sdist, "sdist", false, "Also build a source distribution")
	flags.BoolVar(&buildOpts.noWheel, "no-wheel", false, "Skip the wheel (requires --sdist)")
	flags.BoolVar(&buildOpts.noDeps, "no-deps", false, "Skip build-backend dependency isolation")
	flags.BoolVar(&buildOpts.clean, "clean", false, "Remove stale artifacts from the output directory first")
	flags.BoolVar(&buildOpts.writeLog, "write-log", false, "Write the build log next to the artifacts")
	flags.BoolVar(&buildOpts.repair, "repair", false, "Repair wheels with auditwheel (container isolation)")
	flags.BoolVar(&buildOpts.noNetwork, "no-network", false, "Disable networking inside the build container")
	flags.StringVar(&buildOpts.memoryLimit, "memory", "", "Container memory limit (e.g. 4g)")
	flags.Float64Var(&buildOpts.cpuLimit, "cpus", 0, "Container CPU limit (e.g. 2.0)")
	flags.StringSliceVar(&buildOpts.configSettings, "config-setting", nil, "KEY=VALUE setting for the build backend (repeatable)")
	flags.StringSliceVar(&buildOpts.requirements, "build-requirement", nil, "Extra build-time requirement (repeatable)")
	flags.StringSliceVar(&buildOpts.vars, "var", nil, "KEY=VALUE variable for manifest expansion (repeatable)")
	flags.IntVar(&buildOpts.concurrency, "concurrency", 0, "Parallel project builds for manifest mode")

	buildCmd.MarkFlagsMutuallyExclusive("image", "platform")
	buildCmd.MarkFlagsMutuallyExclusive("manifest", "ref")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if buildOpts.manifestFile != "" {
		if len(args) > 0 {
			return fmt.Errorf("--manifest and a source argument are mutually exclusive")
		}
		return runManifestBuild(cmd)
	}

	source := "."
	if len(args) > 0 {
		source = args[0]
	}

	cfg, err := buildConfigFromFlags(cmd, source)
	if err != nil {
		return err
	}

	result, err := builder.NewEngine(*cfg).Build(ctx)
	if err != nil {
		return err
	}

	displayResult(result)
	return nil
}

// buildConfigFromFlags assembles a build config from CLI flags over
// global config values.
func buildConfigFromFlags(cmd *cobra.Command, source string) (*builder.Config, error) {
	globalCfg := configFromContext(cmd)

	cfg := &builder.Config{
		Source:        source,
		Ref:           buildOpts.ref,
		OutputDir:     buildOpts.outputDir,
		PythonVersion: buildOpts.pythonVersion,
		Isolation:     buildOpts.isolationMode,
		Sdist:         buildOpts.sdist,
		Wheel:         !buildOpts.noWheel,
		NoDeps:        buildOpts.noDeps,
		CleanFirst:    buildOpts.clean,
		WriteLog:      buildOpts.writeLog,
	}
	if buildOpts.noWheel && !buildOpts.sdist {
		return nil, fmt.Errorf("--no-wheel requires --sdist: nothing would be built")
	}

	// Global config fills anything the flags left unset
	if globalCfg != nil {
		if cfg.OutputDir == "" {
			cfg.OutputDir = globalCfg.Build.OutputDir
		}
		if cfg.PythonVersion == "" {
			cfg.PythonVersion = globalCfg.Build.PythonVersion
		}
		if cfg.Isolation == "" {
			cfg.Isolation = globalCfg.Build.Isolation
		}
		if !cfg.WriteLog {
			cfg.WriteLog = globalCfg.Build.WriteLog
		}
		cfg.GitToken = globalCfg.Git.Token
		cfg.GitDepth = globalCfg.Git.Depth
		cfg.Container = isolation.ContainerConfig{
			Platform:     isolation.Platform(globalCfg.Container.Platform),
			Architecture: globalCfg.Container.Architecture,
			Image:        globalCfg.Container.Image,
			Network:      globalCfg.Container.Network,
			MemoryLimit:  globalCfg.Container.MemoryLimit,
			CPULimit:     globalCfg.Container.CPULimit,
			RepairWheel:  globalCfg.Container.RepairWheel,
		}
	}

	// Container flags override global config
	if buildOpts.platform != "" {
		cfg.Container.Platform = isolation.Platform(buildOpts.platform)
	}
	if buildOpts.architecture != "" {
		cfg.Container.Architecture = buildOpts.architecture
	}
	if buildOpts.image != "" {
		cfg.Container.Image = buildOpts.image
	}
	if buildOpts.repair {
		cfg.Container.RepairWheel = true
	}
	if buildOpts.noNetwork {
		cfg.Container.Network = false
	}
	if buildOpts.memoryLimit != "" {
		cfg.Container.MemoryLimit = buildOpts.memoryLimit
	}
	if buildOpts.cpuLimit > 0 {
		cfg.Container.CPULimit = buildOpts.cpuLimit
	}

	settings, err := parseKeyValues(buildOpts.configSettings)
	if err != nil {
		return nil, fmt.Errorf("invalid --config-setting: %w", err)
	}
	cfg.ConfigSettings = settings
	cfg.BuildRequirements = buildOpts.requirements

	cfg.ApplyDefaults()
	return cfg, nil
}

// runManifestBuild builds every project in the manifest.
func runManifestBuild(cmd *cobra.Command) error {
	ctx := cmd.Context()
	globalCfg := configFromContext(cmd)

	vars, err := parseKeyValues(buildOpts.vars)
	if err != nil {
		return fmt.Errorf("invalid --var: %w", err)
	}

	m, err := manifest.NewLoader().Load(buildOpts.manifestFile, vars)
	if err != nil {
		return err
	}

	concurrency := buildOpts.concurrency
	if concurrency <= 0 && globalCfg != nil {
		concurrency = globalCfg.Build.Concurrency
	}

	configs := m.Configs()
	if globalCfg != nil {
		for i := range configs {
			if configs[i].GitToken == "" {
				configs[i].GitToken = globalCfg.Git.Token
			}
			if configs[i].GitDepth == 0 {
				configs[i].GitDepth = globalCfg.Git.Depth
			}
		}
	}

	results, err := builder.NewPipeline(concurrency).BuildAll(ctx, configs)
	for i := range results {
		if results[i].Result != nil && results[i].Err == nil {
			displayResult(results[i].Result)
		}
	}
	return err
}

// displayResult logs a successful build's artifacts.
func displayResult(result *builder.Result) {
	logging.Info("Build of %s completed in %s (%s isolation)",
		result.Source, result.Duration.Round(time.Millisecond), result.Backend)
	for _, artifact := range result.Artifacts {
		logging.Info("  %s: %s (%d bytes, %s)", artifact.Kind, artifact.Path, artifact.Size, artifact.Digest)
	}
	if result.LogPath != "" {
		logging.Info("  log: %s", result.LogPath)
	}
}

// parseKeyValues turns KEY=VALUE strings into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
