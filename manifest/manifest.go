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

// Package manifest loads multi-project build manifests. A manifest is a
// plain YAML file listing the projects to build plus shared defaults;
// per-project settings win over defaults.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/wheelwright/builder"
	"github.com/cowdogmoo/wheelwright/errors"
	"gopkg.in/yaml.v3"
)

// Manifest is a multi-project build definition.
type Manifest struct {
	// Version is the manifest format version.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Defaults apply to every project unless the project overrides them.
	Defaults Defaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Projects are the builds to run.
	Projects []Project `yaml:"projects" json:"projects"`
}

// Defaults are the shared settings projects inherit.
type Defaults struct {
	PythonVersion string `yaml:"python_version,omitempty" json:"python_version,omitempty"`
	OutputDir     string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	Isolation     string `yaml:"isolation,omitempty" json:"isolation,omitempty"`
	Sdist         bool   `yaml:"sdist,omitempty" json:"sdist,omitempty"`
	CleanFirst    bool   `yaml:"clean_first,omitempty" json:"clean_first,omitempty"`
	WriteLog      bool   `yaml:"write_log,omitempty" json:"write_log,omitempty"`
}

// Project is one build in the manifest.
type Project struct {
	// Name identifies the project in logs and reports. Defaults to the
	// source specifier.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Config is the project's build configuration.
	Config builder.Config `yaml:",inline" json:"config"`
}

// Loader reads and parses build manifests.
type Loader struct{}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a manifest from path, expanding ${VAR} references against
// vars first and the environment second, and resolving relative source
// and output paths against the manifest's directory.
func (l *Loader) Load(path string, vars map[string]string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap("read manifest", path, err)
	}

	expanded := expandVariables(string(data), vars)

	var m Manifest
	if err := yaml.Unmarshal([]byte(expanded), &m); err != nil {
		return nil, errors.Wrap("parse manifest", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap("resolve manifest directory", path, err)
	}
	m.resolvePaths(baseDir)

	return &m, nil
}

// Validate rejects structurally invalid manifests before any path
// resolution.
func (m *Manifest) Validate() error {
	if len(m.Projects) == 0 {
		return errors.Configf("manifest defines no projects")
	}

	seen := make(map[string]bool, len(m.Projects))
	for i := range m.Projects {
		p := &m.Projects[i]
		if strings.TrimSpace(p.Config.Source) == "" {
			return errors.Configf("project %d has no source", i)
		}
		name := p.EffectiveName()
		if seen[name] {
			return errors.Configf("duplicate project name: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// EffectiveName returns the project's name, falling back to its source.
func (p *Project) EffectiveName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Config.Source
}

// Configs materializes one builder config per project, layering manifest
// defaults under per-project settings.
func (m *Manifest) Configs() []builder.Config {
	configs := make([]builder.Config, 0, len(m.Projects))
	for i := range m.Projects {
		cfg := m.Projects[i].Config

		if cfg.PythonVersion == "" {
			cfg.PythonVersion = m.Defaults.PythonVersion
		}
		if cfg.OutputDir == "" {
			cfg.OutputDir = m.Defaults.OutputDir
		}
		if cfg.Isolation == "" {
			cfg.Isolation = m.Defaults.Isolation
		}
		if m.Defaults.Sdist {
			cfg.Sdist = true
		}
		if m.Defaults.CleanFirst {
			cfg.CleanFirst = true
		}
		if m.Defaults.WriteLog {
			cfg.WriteLog = true
		}

		cfg.ApplyDefaults()
		configs = append(configs, cfg)
	}
	return configs
}

// resolvePaths makes relative source directories and output directories
// absolute against the manifest's directory. Git URLs are left alone.
func (m *Manifest) resolvePaths(baseDir string) {
	for i := range m.Projects {
		cfg := &m.Projects[i].Config
		if cfg.Source != "" && !filepath.IsAbs(cfg.Source) && !isRemote(cfg.Source) {
			cfg.Source = filepath.Join(baseDir, cfg.Source)
		}
		if cfg.OutputDir != "" && !filepath.IsAbs(cfg.OutputDir) {
			cfg.OutputDir = filepath.Join(baseDir, cfg.OutputDir)
		}
	}
	if m.Defaults.OutputDir != "" && !filepath.IsAbs(m.Defaults.OutputDir) {
		m.Defaults.OutputDir = filepath.Join(baseDir, m.Defaults.OutputDir)
	}
}

func isRemote(source string) bool {
	return strings.Contains(source, "://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasSuffix(source, ".git")
}

// expandVariables expands ${VAR} style references only. Values from vars
// win over the environment. $VAR without braces is left untouched.
func expandVariables(s string, vars map[string]string) string {
	result := strings.Builder{}
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end >= 0 {
				varName := s[i+2 : i+2+end]
				var value string
				if vars != nil {
					value = vars[varName]
				}
				if value == "" {
					value = os.Getenv(varName)
				}
				result.WriteString(value)
				i += end + 2
				continue
			}
		}
		result.WriteByte(s[i])
	}
	return result.String()
}
