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

package isolation

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/logging"
)

// dockerBinary is the container runtime executable.
const dockerBinary = "docker"

// ContainerBackend builds wheels inside official manylinux/musllinux
// containers, producing artifacts portable across Linux distributions.
type ContainerBackend struct {
	Config ContainerConfig

	runner    CommandRunner
	available *bool
}

// NewContainerBackend creates a container isolation backend.
func NewContainerBackend(config ContainerConfig) *ContainerBackend {
	return &ContainerBackend{
		Config: config,
		runner: NewExecRunner(),
	}
}

// Name implements Backend.
func (b *ContainerBackend) Name() string { return "container" }

// CheckAvailable probes for a working container runtime. The result is
// memoized for the backend instance's lifetime and never re-probed.
func (b *ContainerBackend) CheckAvailable(ctx context.Context) bool {
	if b.available != nil {
		return *b.available
	}

	ok := false
	if _, err := exec.LookPath(dockerBinary); err == nil {
		_, runErr := b.runner.Run(ctx, "", nil, dockerBinary, "info")
		ok = runErr == nil
	}
	b.available = &ok
	return ok
}

// CreateEnvironment prepares a container build environment: it resolves the
// image (pure lookup), ensures the image is present locally (separate
// side-effecting step), and allocates an ephemeral working area. Nothing
// runs until ExecuteBuild.
func (b *ContainerBackend) CreateEnvironment(ctx context.Context, pythonVersion string, buildRequirements []string) (*BuildEnvironment, error) {
	if !b.CheckAvailable(ctx) {
		return nil, errors.Isolationf(
			"container runtime is not available; install docker or ensure the daemon is running")
	}

	image, err := SelectImage(b.Config.Image, b.Config.Platform, b.Config.Architecture)
	if err != nil {
		return nil, err
	}

	pythonPath, err := ContainerPython(pythonVersion)
	if err != nil {
		return nil, err
	}

	if err := b.EnsureImageAvailable(ctx, image); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "wheelwright-container-")
	if err != nil {
		return nil, errors.Wrap("create container work directory", "", err)
	}

	logging.DebugContext(ctx, "Container environment ready: image=%s python=%s", image, pythonPath)

	return &BuildEnvironment{
		PythonPath:        pythonPath,
		SitePackages:      "/tmp/site-packages",
		EnvVars:           BuildEnvVars(b.Config),
		Image:             image,
		WorkDir:           workDir,
		BuildRequirements: buildRequirements,
		release: func() error {
			return os.RemoveAll(workDir)
		},
	}, nil
}

// ExecuteBuild runs the in-container build script via the container
// runtime, streaming combined output into the build log, and scans the
// output directory for produced artifacts.
func (b *ContainerBackend) ExecuteBuild(ctx context.Context, sourceDir, outputDir string, env *BuildEnvironment, opts BuildOptions) (*ExecResult, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrap("create output directory", outputDir, err)
	}

	script := GenerateBuildScript(env.PythonPath, env.BuildRequirements, opts, b.Config.RepairWheel)
	args := ContainerRunArgs(b.Config, env.Image, sourceDir, outputDir, env.EnvVars)
	args = append(args, "bash", "-c", script)

	logging.DebugContext(ctx, "Running container build: %s %s", dockerBinary, strings.Join(args[:len(args)-1], " "))

	log, err := b.runner.Run(ctx, "", nil, dockerBinary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return &ExecResult{Log: log}, errors.Wrap("container build interrupted", "", ctx.Err())
		}
		return &ExecResult{Log: log}, errors.Buildf("container build failed: %v\n%s", err, log)
	}

	result := &ExecResult{Log: log}
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return result, errors.Wrap("scan output directory", outputDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".whl"):
			result.WheelPath = filepath.Join(outputDir, name)
		case strings.HasSuffix(name, ".tar.gz"):
			result.SdistPath = filepath.Join(outputDir, name)
		}
	}
	return result, nil
}

// EnsureImageAvailable pulls the image if it is not already present
// locally. Presence handling is deliberately separate from name resolution
// and never influences which reference is used.
func (b *ContainerBackend) EnsureImageAvailable(ctx context.Context, image string) error {
	if _, err := b.runner.Run(ctx, "", nil, dockerBinary, "image", "inspect", image); err == nil {
		return nil
	}

	logging.InfoContext(ctx, "Pulling image %s", image)
	output, err := b.runner.Run(ctx, "", nil, dockerBinary, "pull", image)
	if err != nil {
		return errors.Isolationf("failed to pull image %s:\n%s", image, output)
	}
	return nil
}

// ImageInfo is the summary returned by InspectImage.
type ImageInfo struct {
	ID           string `json:"id"`
	Created      string `json:"created"`
	Size         int64  `json:"size"`
	Architecture string `json:"architecture"`
	OS           string `json:"os"`
}

// InspectImage returns a summary of a locally-present image.
func (b *ContainerBackend) InspectImage(ctx context.Context, image string) (*ImageInfo, error) {
	output, err := b.runner.Run(ctx, "", nil, dockerBinary, "image", "inspect", image)
	if err != nil {
		return nil, errors.Isolationf("image not found: %s", image)
	}

	var raw []struct {
		ID           string `json:"Id"`
		Created      string `json:"Created"`
		Size         int64  `json:"Size"`
		Architecture string `json:"Architecture"`
		Os           string `json:"Os"`
	}
	if err := json.Unmarshal([]byte(output), &raw); err != nil || len(raw) == 0 {
		return nil, errors.Wrap("decode image inspect output", image, err)
	}

	id := raw[0].ID
	if len(id) > 12 {
		id = strings.TrimPrefix(id, "sha256:")
		if len(id) > 12 {
			id = id[:12]
		}
	}
	return &ImageInfo{
		ID:           id,
		Created:      raw[0].Created,
		Size:         raw[0].Size,
		Architecture: raw[0].Architecture,
		OS:           raw[0].Os,
	}, nil
}
