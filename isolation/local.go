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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/logging"
	"github.com/cowdogmoo/wheelwright/security"
)

// LocalBackend runs the build directly against a host interpreter matching
// the requested version, with no container indirection.
type LocalBackend struct {
	// PythonVersion is the interpreter version this backend was probed
	// for. Set by the engine before CheckAvailable.
	PythonVersion string

	runner     CommandRunner
	available  *bool
	pythonPath string
}

// NewLocalBackend creates a local isolation backend for the given
// interpreter version.
func NewLocalBackend(pythonVersion string) *LocalBackend {
	return &LocalBackend{
		PythonVersion: pythonVersion,
		runner:        NewExecRunner(),
	}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return "local" }

// CheckAvailable reports whether an interpreter matching the requested
// version resolves on the host. Memoized per instance.
func (b *LocalBackend) CheckAvailable(ctx context.Context) bool {
	if b.available != nil {
		return *b.available
	}

	ok := false
	if path, err := b.findInterpreter(ctx); err == nil {
		b.pythonPath = path
		ok = true
	}
	b.available = &ok
	return ok
}

// findInterpreter resolves the host interpreter for the requested version,
// preferring a versioned executable (python3.12) and falling back to
// python3 when its reported version matches.
func (b *LocalBackend) findInterpreter(ctx context.Context) (string, error) {
	normalized, err := security.ValidatePythonVersion(b.PythonVersion)
	if err != nil {
		return "", err
	}

	if path, err := exec.LookPath("python" + normalized); err == nil {
		return path, nil
	}

	path, err := exec.LookPath("python3")
	if err != nil {
		return "", errors.Isolationf("no python %s interpreter found on host", normalized)
	}
	output, err := b.runner.Run(ctx, "", nil, path, "--version")
	if err != nil {
		return "", errors.Wrap("probe host interpreter", path, err)
	}
	if !strings.HasPrefix(strings.TrimSpace(output), "Python "+normalized+".") &&
		strings.TrimSpace(output) != "Python "+normalized {
		return "", errors.Isolationf(
			"host interpreter %s reports %q, want python %s", path, strings.TrimSpace(output), normalized)
	}
	return path, nil
}

// CreateEnvironment prepares an ephemeral working area for a host build.
func (b *LocalBackend) CreateEnvironment(ctx context.Context, pythonVersion string, buildRequirements []string) (*BuildEnvironment, error) {
	if !b.CheckAvailable(ctx) {
		return nil, errors.Isolationf(
			"no usable python %s interpreter on host\nSupported versions: %s",
			pythonVersion, strings.Join(security.SupportedPythonVersionList(), ", "))
	}

	workDir, err := os.MkdirTemp("", "wheelwright-local-")
	if err != nil {
		return nil, errors.Wrap("create local work directory", "", err)
	}

	return &BuildEnvironment{
		PythonPath:   b.pythonPath,
		SitePackages: filepath.Join(workDir, "site-packages"),
		EnvVars: map[string]string{
			"PIP_NO_CACHE_DIR":              "1",
			"PIP_DISABLE_PIP_VERSION_CHECK": "1",
			"PYTHONDONTWRITEBYTECODE":       "1",
		},
		WorkDir:           workDir,
		BuildRequirements: buildRequirements,
		release: func() error {
			return os.RemoveAll(workDir)
		},
	}, nil
}

// ExecuteBuild invokes the external build backend as a subprocess with the
// source directory as working directory, and discovers artifacts by
// scanning the output directory for files that were not there before.
func (b *LocalBackend) ExecuteBuild(ctx context.Context, sourceDir, outputDir string, env *BuildEnvironment, opts BuildOptions) (*ExecResult, error) {
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, errors.Wrap("resolve output directory", outputDir, err)
	}
	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return nil, errors.Wrap("create output directory", absOutput, err)
	}

	before, err := artifactSet(absOutput)
	if err != nil {
		return nil, err
	}

	args := []string{"-m", "build"}
	if opts.Wheel && !opts.Sdist {
		args = append(args, "--wheel")
	} else if opts.Sdist && !opts.Wheel {
		args = append(args, "--sdist")
	}
	if opts.NoDeps {
		args = append(args, "--no-isolation")
	}
	for _, key := range sortedMapKeys(opts.ConfigSettings) {
		args = append(args, fmt.Sprintf("--config-setting=%s=%s", key, opts.ConfigSettings[key]))
	}
	args = append(args, "--outdir", absOutput)

	subEnv := os.Environ()
	for _, key := range sortedMapKeys(env.EnvVars) {
		subEnv = append(subEnv, key+"="+env.EnvVars[key])
	}

	logging.DebugContext(ctx, "Running local build: %s %s", env.PythonPath, strings.Join(args, " "))

	log, err := b.runner.Run(ctx, sourceDir, subEnv, env.PythonPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return &ExecResult{Log: log}, errors.Wrap("local build interrupted", "", ctx.Err())
		}
		return &ExecResult{Log: log}, errors.Buildf("build backend failed: %v\n%s", err, log)
	}

	result := &ExecResult{Log: log}
	entries, err := os.ReadDir(absOutput)
	if err != nil {
		return result, errors.Wrap("scan output directory", absOutput, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if before[name] {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".whl"):
			result.WheelPath = filepath.Join(absOutput, name)
		case strings.HasSuffix(name, ".tar.gz"):
			result.SdistPath = filepath.Join(absOutput, name)
		}
	}
	return result, nil
}

// artifactSet snapshots the artifact filenames currently in dir.
func artifactSet(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap("scan output directory", dir, err)
	}
	set := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".whl") || strings.HasSuffix(name, ".tar.gz") {
			set[name] = true
		}
	}
	return set, nil
}
