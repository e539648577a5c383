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

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wheelwright.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `version: "1"
defaults:
  python_version: "3.11"
  output_dir: dist
  sdist: true
projects:
  - name: lib-a
    source: ./lib-a
  - name: lib-b
    source: ./lib-b
    python_version: "3.12"
    isolation: container
    container:
      platform: musllinux
`)

	m, err := NewLoader().Load(path, nil)
	require.NoError(t, err)
	require.Len(t, m.Projects, 2)

	configs := m.Configs()
	require.Len(t, configs, 2)

	baseDir := filepath.Dir(path)

	// defaults layered under the first project
	assert.Equal(t, "3.11", configs[0].PythonVersion)
	assert.Equal(t, filepath.Join(baseDir, "lib-a"), configs[0].Source)
	assert.Equal(t, filepath.Join(baseDir, "dist"), configs[0].OutputDir)
	assert.True(t, configs[0].Sdist)
	assert.True(t, configs[0].Wheel)
	assert.Equal(t, "auto", configs[0].Isolation)

	// per-project settings win
	assert.Equal(t, "3.12", configs[1].PythonVersion)
	assert.Equal(t, "container", configs[1].Isolation)
	assert.Equal(t, "musllinux", string(configs[1].Container.Platform))
}

func TestLoadManifestVariableExpansion(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `projects:
  - source: ./project
    python_version: "${PY_VERSION}"
`)

	m, err := NewLoader().Load(path, map[string]string{"PY_VERSION": "3.13"})
	require.NoError(t, err)
	assert.Equal(t, "3.13", m.Projects[0].Config.PythonVersion)
}

func TestLoadManifestEnvExpansion(t *testing.T) {
	t.Setenv("WHEELWRIGHT_TEST_PY", "3.10")

	path := writeManifest(t, `projects:
  - source: ./project
    python_version: "${WHEELWRIGHT_TEST_PY}"
`)

	m, err := NewLoader().Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "3.10", m.Projects[0].Config.PythonVersion)
}

func TestLoadManifestRemoteSourcesKeepURLs(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `projects:
  - source: https://github.com/psf/requests.git
    ref: v2.32.0
`)

	m, err := NewLoader().Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/psf/requests.git", m.Projects[0].Config.Source)
	assert.Equal(t, "v2.32.0", m.Projects[0].Config.Ref)
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name:     "no projects",
			contents: "version: \"1\"\nprojects: []\n",
			wantErr:  "no projects",
		},
		{
			name: "project without source",
			contents: `projects:
  - name: empty
`,
			wantErr: "has no source",
		},
		{
			name: "duplicate names",
			contents: `projects:
  - name: dup
    source: ./a
  - name: dup
    source: ./b
`,
			wantErr: "duplicate project name",
		},
		{
			name:     "malformed yaml",
			contents: "projects: [unterminated\n",
			wantErr:  "parse manifest",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeManifest(t, tc.contents)
			_, err := NewLoader().Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestEffectiveName(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `projects:
  - source: ./unnamed
  - name: named
    source: ./named-src
`)

	m, err := NewLoader().Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "unnamed"), m.Projects[0].EffectiveName())
	assert.Equal(t, "named", m.Projects[1].EffectiveName())
}

func TestManifestValidateKind(t *testing.T) {
	t.Parallel()

	m := &Manifest{}
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}
