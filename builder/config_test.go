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
	"testing"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Source: "./project"}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultPythonVersion, cfg.PythonVersion)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, IsolationAuto, cfg.Isolation)
	assert.True(t, cfg.Wheel)
	assert.False(t, cfg.Sdist)

	// explicit sdist-only stays sdist-only
	cfg = Config{Source: "./project", Sdist: true}
	cfg.ApplyDefaults()
	assert.False(t, cfg.Wheel)
	assert.True(t, cfg.Sdist)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		kind    error
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing source",
			mutate:  func(c *Config) { c.Source = "  " },
			wantErr: "source is required",
			kind:    errors.ErrConfig,
		},
		{
			name:    "unknown isolation mode",
			mutate:  func(c *Config) { c.Isolation = "chroot" },
			wantErr: "invalid isolation mode",
			kind:    errors.ErrConfig,
		},
		{
			name:    "unsupported python version",
			mutate:  func(c *Config) { c.PythonVersion = "2.7" },
			wantErr: "Supported versions",
			kind:    errors.ErrIsolation,
		},
		{
			name: "image and platform conflict",
			mutate: func(c *Config) {
				c.Container.Image = "manylinux_2_28_x86_64"
				c.Container.Platform = isolation.PlatformMusllinux
			},
			wantErr: "mutually exclusive",
			kind:    errors.ErrConfig,
		},
		{
			name: "image with auto platform is fine",
			mutate: func(c *Config) {
				c.Container.Image = "manylinux_2_28_x86_64"
				c.Container.Platform = isolation.PlatformAuto
			},
		},
		{
			name: "explicit image requires container isolation",
			mutate: func(c *Config) {
				c.Isolation = IsolationLocal
				c.Container.Image = "manylinux_2_28_x86_64"
			},
			wantErr: "requires container isolation",
			kind:    errors.ErrConfig,
		},
		{
			name: "wheel repair requires container isolation",
			mutate: func(c *Config) {
				c.Isolation = IsolationLocal
				c.Container.RepairWheel = true
			},
			wantErr: "requires container isolation",
			kind:    errors.ErrConfig,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Config{Source: "./project"}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.True(t, errors.Is(err, tc.kind))
		})
	}
}

func TestRequiresContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config isolation.ContainerConfig
		want   bool
	}{
		{name: "zero config can run locally", want: false},
		{name: "explicit image", config: isolation.ContainerConfig{Image: "manylinux_2_28_x86_64"}, want: true},
		{name: "pinned platform", config: isolation.ContainerConfig{Platform: isolation.PlatformMusllinux}, want: true},
		{name: "auto platform can run locally", config: isolation.ContainerConfig{Platform: isolation.PlatformAuto}, want: false},
		{name: "non-native architecture", config: isolation.ContainerConfig{Architecture: "aarch64"}, want: true},
		{name: "x86_64 architecture can run locally", config: isolation.ContainerConfig{Architecture: "x86_64"}, want: false},
		{name: "wheel repair", config: isolation.ContainerConfig{RepairWheel: true}, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Config{Source: "./project", Container: tc.config}
			cfg.ApplyDefaults()
			assert.Equal(t, tc.want, requiresContainer(&cfg))
		})
	}
}
