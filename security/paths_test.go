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

package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowdogmoo/wheelwright/errors"
)

func TestIsDangerousCleanupPathSystemDirs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{"root", "/"},
		{"home", "/home"},
		{"nested under home", "/home/someone/dist"},
		{"root home", "/root"},
		{"usr", "/usr"},
		{"nested under usr", "/usr/local/lib"},
		{"var", "/var"},
		{"opt", "/opt"},
		{"etc", "/etc"},
		{"bin", "/bin"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, IsDangerousCleanupPath(tt.path), "expected %s to be dangerous", tt.path)
		})
	}
}

func TestIsDangerousCleanupPathUserHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, IsDangerousCleanupPath(home))
}

func TestIsDangerousCleanupPathSafeDirs(t *testing.T) {
	t.Parallel()

	safe := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.MkdirAll(safe, 0o755))
	assert.False(t, IsDangerousCleanupPath(safe))

	nested := filepath.Join(t.TempDir(), "project", "dist")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	assert.False(t, IsDangerousCleanupPath(nested))
}

func TestIsDangerousCleanupPathDefeatsRelativeEvasion(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	// A relative hop that resolves back into /usr must still be refused.
	evasive := filepath.Join(tmp, "..", "..", "..", "usr")
	if canonicalize(evasive) == "/usr" {
		assert.True(t, IsDangerousCleanupPath(evasive))
	}
}

func TestValidateCleanupPathDangerous(t *testing.T) {
	t.Parallel()

	err := ValidateCleanupPath("/usr")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSecurity)
	assert.Contains(t, err.Error(), "/usr")
}

func TestValidateCleanupPathMissing(t *testing.T) {
	t.Parallel()

	err := ValidateCleanupPath(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBuild)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateCleanupPathNotADirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := ValidateCleanupPath(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestSafeCleanupArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.whl", "b.tar.gz", "c.zip", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	deleted, err := SafeCleanupArtifacts(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// Only the artifacts are gone
	assert.NoFileExists(t, filepath.Join(dir, "a.whl"))
	assert.NoFileExists(t, filepath.Join(dir, "b.tar.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "c.zip"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestSafeCleanupArtifactsSkipsDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.whl"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.whl"), []byte("x"), 0o644))

	deleted, err := SafeCleanupArtifacts(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.DirExists(t, filepath.Join(dir, "nested.whl"))
}

func TestSafeCleanupArtifactsRefusesDangerousDir(t *testing.T) {
	t.Parallel()

	_, err := SafeCleanupArtifacts("/opt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSecurity)
}

func TestSafeCleanupArtifactsEmptyDir(t *testing.T) {
	t.Parallel()

	deleted, err := SafeCleanupArtifacts(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
