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

import "strings"

// ReservedEnvPrefix marks internal environment variable keys. Keys with
// this prefix are never forwarded to the container and never appear in the
// generated invocation.
const ReservedEnvPrefix = "__WHEELWRIGHT_"

// ContainerConfig is the immutable configuration for container isolation.
// The zero value disables networking, resource limits, and overrides.
type ContainerConfig struct {
	// Platform selects the portable-Linux family. Empty or PlatformAuto
	// resolves to manylinux.
	Platform Platform `yaml:"platform,omitempty" json:"platform,omitempty"`

	// Image overrides image selection with a registry key or canonical
	// reference.
	Image string `yaml:"image,omitempty" json:"image,omitempty"`

	// Architecture is the target CPU architecture (x86_64, aarch64, i686).
	Architecture string `yaml:"architecture,omitempty" json:"architecture,omitempty"`

	// Network enables container networking. Disabled unless explicitly
	// requested; installs inside the container need it.
	Network bool `yaml:"network,omitempty" json:"network,omitempty"`

	// MemoryLimit is a docker memory limit such as "4g". Empty means no
	// limit.
	MemoryLimit string `yaml:"memory_limit,omitempty" json:"memory_limit,omitempty"`

	// CPULimit caps container CPUs (e.g. 2.0). Zero means no limit.
	CPULimit float64 `yaml:"cpu_limit,omitempty" json:"cpu_limit,omitempty"`

	// RepairWheel runs auditwheel on built wheels for portability.
	RepairWheel bool `yaml:"repair_wheel,omitempty" json:"repair_wheel,omitempty"`

	// StripBinaries strips debug symbols from native extensions during
	// repair.
	StripBinaries bool `yaml:"strip_binaries,omitempty" json:"strip_binaries,omitempty"`

	// ExtraMounts adds host:container volume mounts.
	ExtraMounts map[string]string `yaml:"extra_mounts,omitempty" json:"extra_mounts,omitempty"`

	// ExtraEnv adds environment variables to the container. Reserved-prefix
	// keys are dropped.
	ExtraEnv map[string]string `yaml:"extra_env,omitempty" json:"extra_env,omitempty"`
}

// BuildEnvVars returns the environment passed into the build container.
// Reserved-prefix keys from ExtraEnv are excluded.
func BuildEnvVars(config ContainerConfig) map[string]string {
	env := map[string]string{
		// Disable interactive prompts
		"DEBIAN_FRONTEND": "noninteractive",
		// Pip settings
		"PIP_NO_CACHE_DIR":              "1",
		"PIP_DISABLE_PIP_VERSION_CHECK": "1",
		// Build settings
		"PYTHONDONTWRITEBYTECODE": "1",
	}

	for key, value := range config.ExtraEnv {
		if strings.HasPrefix(key, ReservedEnvPrefix) {
			continue
		}
		env[key] = value
	}
	return env
}
