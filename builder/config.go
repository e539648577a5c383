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

package builder

import (
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/cowdogmoo/wheelwright/security"
)

// Isolation mode names accepted in configuration.
const (
	IsolationLocal     = "local"
	IsolationContainer = "container"
	IsolationAuto      = "auto"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultPythonVersion = "3.12"
	DefaultOutputDir     = "dist"
	DefaultIsolation     = IsolationAuto
)

// Config describes a single project build.
type Config struct {
	// Source is a local project directory or a git URL.
	Source string `yaml:"source" json:"source"`

	// Ref is the git branch, tag, or commit for git sources.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// OutputDir receives the built artifacts.
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`

	// PythonVersion is the interpreter to build for (major.minor).
	PythonVersion string `yaml:"python_version,omitempty" json:"python_version,omitempty"`

	// Isolation selects the backend: local, container, or auto.
	Isolation string `yaml:"isolation,omitempty" json:"isolation,omitempty"`

	// Wheel and Sdist select the artifact types to build. Both default to
	// wheel-only when neither is set.
	Wheel bool `yaml:"wheel,omitempty" json:"wheel,omitempty"`
	Sdist bool `yaml:"sdist,omitempty" json:"sdist,omitempty"`

	// NoDeps skips build-backend dependency isolation.
	NoDeps bool `yaml:"no_deps,omitempty" json:"no_deps,omitempty"`

	// CleanFirst removes stale artifacts from OutputDir before building.
	CleanFirst bool `yaml:"clean_first,omitempty" json:"clean_first,omitempty"`

	// WriteLog writes the combined build log next to the artifacts.
	WriteLog bool `yaml:"write_log,omitempty" json:"write_log,omitempty"`

	// ConfigSettings are passed through to the build backend.
	ConfigSettings map[string]string `yaml:"config_settings,omitempty" json:"config_settings,omitempty"`

	// BuildRequirements are extra build-time requirements installed before
	// the build.
	BuildRequirements []string `yaml:"build_requirements,omitempty" json:"build_requirements,omitempty"`

	// Container tunes container isolation. Ignored for local builds.
	Container isolation.ContainerConfig `yaml:"container,omitempty" json:"container,omitempty"`

	// GitToken authenticates clones of private git sources. Never
	// serialized.
	GitToken string `yaml:"-" json:"-"`

	// GitDepth limits clone history for git sources. Zero means a full
	// clone.
	GitDepth int `yaml:"git_depth,omitempty" json:"git_depth,omitempty"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.PythonVersion == "" {
		c.PythonVersion = DefaultPythonVersion
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Isolation == "" {
		c.Isolation = DefaultIsolation
	}
	if !c.Wheel && !c.Sdist {
		c.Wheel = true
	}
}

// Validate rejects invalid or conflicting configuration before any side
// effect happens.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.Configf("source is required")
	}

	switch c.Isolation {
	case IsolationLocal, IsolationContainer, IsolationAuto:
	default:
		return errors.Configf(
			"invalid isolation mode %q: must be %s, %s, or %s",
			c.Isolation, IsolationLocal, IsolationContainer, IsolationAuto)
	}

	if _, err := security.ValidatePythonVersion(c.PythonVersion); err != nil {
		return err
	}

	if c.Container.Image != "" && c.Container.Platform != "" && c.Container.Platform != isolation.PlatformAuto {
		return errors.Configf(
			"image and platform are mutually exclusive: an explicit image already pins the platform")
	}

	if c.Isolation == IsolationLocal {
		if c.Container.Image != "" {
			return errors.Configf("an explicit image requires container isolation")
		}
		if c.Container.RepairWheel {
			return errors.Configf("wheel repair requires container isolation")
		}
	}

	return nil
}
