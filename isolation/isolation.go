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

// Package isolation provides the pluggable build environments a wheel build
// runs in: directly against a host interpreter (local), or inside an
// official manylinux/musllinux container (container). Backends follow a
// two-phase protocol: CreateEnvironment prepares an environment without
// running anything, ExecuteBuild runs the external build backend in it, and
// the environment's Release reclaims temporary resources on every exit path.
package isolation

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// Backend is the capability set an isolation strategy must provide.
// Implementations are not safe for concurrent use; each build invocation
// owns its backend instance.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// CheckAvailable probes whether this backend can run builds on this
	// host. Results are memoized per instance.
	CheckAvailable(ctx context.Context) bool

	// CreateEnvironment prepares a build environment for the requested
	// interpreter version without running a build. The returned
	// environment's Release must be called when the build is done,
	// regardless of outcome.
	CreateEnvironment(ctx context.Context, pythonVersion string, buildRequirements []string) (*BuildEnvironment, error)

	// ExecuteBuild runs the external build backend against sourceDir,
	// leaving artifacts in outputDir. The returned ExecResult carries the
	// combined build log even when the build failed.
	ExecuteBuild(ctx context.Context, sourceDir, outputDir string, env *BuildEnvironment, opts BuildOptions) (*ExecResult, error)
}

// BuildOptions are the per-build knobs passed to ExecuteBuild.
type BuildOptions struct {
	Wheel          bool
	Sdist          bool
	ConfigSettings map[string]string
	NoDeps         bool
}

// BuildEnvironment is the typed state handed from CreateEnvironment to
// ExecuteBuild. It replaces string-keyed environment smuggling with
// explicit fields; creation always precedes execution and Release always
// follows both.
type BuildEnvironment struct {
	// PythonPath is the interpreter to build with: a host path for local
	// isolation, an in-container path for container isolation.
	PythonPath string

	// SitePackages is the environment's package installation target.
	SitePackages string

	// EnvVars are extra environment variables for the build subprocess.
	EnvVars map[string]string

	// Image is the canonical container image reference. Empty for local
	// isolation.
	Image string

	// WorkDir is the ephemeral working area owned by this environment.
	WorkDir string

	// BuildRequirements are additional build-time requirements to install
	// before invoking the build backend.
	BuildRequirements []string

	releaseOnce sync.Once
	release     func() error
}

// Release reclaims the environment's temporary resources. Safe to call more
// than once; only the first call runs the cleanup.
func (e *BuildEnvironment) Release() error {
	var err error
	e.releaseOnce.Do(func() {
		if e.release != nil {
			err = e.release()
		}
	})
	return err
}

// ExecResult is what a backend returns from ExecuteBuild.
type ExecResult struct {
	// WheelPath is the built wheel, or empty if none was produced.
	WheelPath string

	// SdistPath is the built source distribution, or empty.
	SdistPath string

	// Log is the combined stdout/stderr of the build subprocess.
	Log string
}

// CommandRunner abstracts subprocess execution so backends can be tested
// without docker or a python toolchain on the host.
type CommandRunner interface {
	// Run executes the command and returns its combined stdout/stderr.
	// A non-zero exit is returned as an error alongside the output.
	Run(ctx context.Context, dir string, env []string, name string, args ...string) (string, error)
}

// execRunner runs commands with os/exec, killing the subprocess when the
// context is cancelled.
type execRunner struct{}

// NewExecRunner returns the CommandRunner used in production.
func NewExecRunner() CommandRunner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	return combined.String(), err
}
