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

// Package config loads the global wheelwright configuration: user
// preferences and environment-specific settings, NOT per-project build
// definitions (those live in the pipeline manifest).
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the global wheelwright configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Build     BuildConfig     `mapstructure:"build"`
	Container ContainerConfig `mapstructure:"container"`
	Git       GitConfig       `mapstructure:"git"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BuildConfig holds build-related configuration.
type BuildConfig struct {
	PythonVersion string `mapstructure:"python_version"`
	OutputDir     string `mapstructure:"output_dir"`
	Isolation     string `mapstructure:"isolation"`
	Concurrency   int    `mapstructure:"concurrency"`
	WriteLog      bool   `mapstructure:"write_log"`
}

// ContainerConfig holds container isolation configuration.
type ContainerConfig struct {
	Platform     string  `mapstructure:"platform"`
	Architecture string  `mapstructure:"architecture"`
	Image        string  `mapstructure:"image"`
	Network      bool    `mapstructure:"network"`
	MemoryLimit  string  `mapstructure:"memory_limit"`
	CPULimit     float64 `mapstructure:"cpu_limit"`
	RepairWheel  bool    `mapstructure:"repair_wheel"`
}

// GitConfig holds git source configuration.
type GitConfig struct {
	Token string `mapstructure:"token"`
	Depth int    `mapstructure:"depth"`
}

// Load reads and parses the global configuration file. Returns a Config
// with defaults if no config file exists.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Look in these locations (in order)
	if defaultPath, err := DefaultConfigPath(); err == nil {
		v.AddConfigPath(filepath.Dir(defaultPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "wheelwright")) // XDG standard
	}
	v.AddConfigPath(".")

	setDefaults(v)

	// WHEELWRIGHT_LOG_LEVEL, WHEELWRIGHT_BUILD_ISOLATION, etc.
	v.SetEnvPrefix("WHEELWRIGHT")
	v.AutomaticEnv()
	bindEnvVars(v)

	// Config file is optional
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("WHEELWRIGHT")
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")

	v.SetDefault("build.python_version", "3.12")
	v.SetDefault("build.output_dir", "dist")
	v.SetDefault("build.isolation", "auto")
	v.SetDefault("build.concurrency", 2)
	v.SetDefault("build.write_log", false)

	v.SetDefault("container.platform", "auto")
	v.SetDefault("container.architecture", "x86_64")
	v.SetDefault("container.network", true)

	v.SetDefault("git.depth", 1)
}

// bindEnvVars binds environment variables to config keys.
func bindEnvVars(v *viper.Viper) {
	// Log
	_ = v.BindEnv("log.level", "WHEELWRIGHT_LOG_LEVEL")
	_ = v.BindEnv("log.format", "WHEELWRIGHT_LOG_FORMAT")

	// Build
	_ = v.BindEnv("build.python_version", "WHEELWRIGHT_BUILD_PYTHON_VERSION")
	_ = v.BindEnv("build.output_dir", "WHEELWRIGHT_BUILD_OUTPUT_DIR")
	_ = v.BindEnv("build.isolation", "WHEELWRIGHT_BUILD_ISOLATION")
	_ = v.BindEnv("build.concurrency", "WHEELWRIGHT_BUILD_CONCURRENCY")
	_ = v.BindEnv("build.write_log", "WHEELWRIGHT_BUILD_WRITE_LOG")

	// Container
	_ = v.BindEnv("container.platform", "WHEELWRIGHT_CONTAINER_PLATFORM")
	_ = v.BindEnv("container.architecture", "WHEELWRIGHT_CONTAINER_ARCHITECTURE")
	_ = v.BindEnv("container.image", "WHEELWRIGHT_CONTAINER_IMAGE")
	_ = v.BindEnv("container.network", "WHEELWRIGHT_CONTAINER_NETWORK")
	_ = v.BindEnv("container.memory_limit", "WHEELWRIGHT_CONTAINER_MEMORY_LIMIT")
	_ = v.BindEnv("container.cpu_limit", "WHEELWRIGHT_CONTAINER_CPU_LIMIT")
	_ = v.BindEnv("container.repair_wheel", "WHEELWRIGHT_CONTAINER_REPAIR_WHEEL")

	// Git (GITHUB_TOKEN also works for CI convenience)
	_ = v.BindEnv("git.token", "WHEELWRIGHT_GIT_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("git.depth", "WHEELWRIGHT_GIT_DEPTH")
}
