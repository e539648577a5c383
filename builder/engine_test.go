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
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend satisfies isolation.Backend and drops pre-baked artifacts
// into the output directory instead of running a build.
type fakeBackend struct {
	name      string
	wheelName string
	sdistName string
	execErr   error
	log       string

	createCalls int
	execCalls   int
}

func (f *fakeBackend) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeBackend) CheckAvailable(context.Context) bool { return true }

func (f *fakeBackend) CreateEnvironment(context.Context, string, []string) (*isolation.BuildEnvironment, error) {
	f.createCalls++
	return &isolation.BuildEnvironment{PythonPath: "/usr/bin/python3.12"}, nil
}

func (f *fakeBackend) ExecuteBuild(_ context.Context, _, outputDir string, _ *isolation.BuildEnvironment, _ isolation.BuildOptions) (*isolation.ExecResult, error) {
	f.execCalls++
	if f.execErr != nil {
		return &isolation.ExecResult{Log: f.log}, f.execErr
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	result := &isolation.ExecResult{Log: f.log}
	if f.wheelName != "" {
		result.WheelPath = filepath.Join(outputDir, f.wheelName)
		writeWheelFixture(result.WheelPath)
	}
	if f.sdistName != "" {
		result.SdistPath = filepath.Join(outputDir, f.sdistName)
		if err := os.WriteFile(result.SdistPath, []byte("sdist bytes"), 0o644); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// writeWheelFixture writes a structurally valid wheel archive.
func writeWheelFixture(path string) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entries := map[string]string{
		"demo/__init__.py":           "__version__ = '1.0.0'\n",
		"demo-1.0.0.dist-info/WHEEL": "Wheel-Version: 1.0\nTag: py3-none-any\n",
		"demo-1.0.0.dist-info/METADATA": "Metadata-Version: 2.1\n" +
			"Name: demo\nVersion: 1.0.0\nRequires-Python: >=3.9\n\nDemo body\n",
		"demo-1.0.0.dist-info/RECORD": "",
	}
	for name, contents := range entries {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(contents)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
}

// testProject creates a minimal buildable project directory.
func testProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\nname = \"demo\"\nversion = \"1.0.0\"\n"), 0o644))
	return dir
}

func newTestEngine(t *testing.T, cfg Config, backend isolation.Backend) *Engine {
	t.Helper()
	engine := NewEngine(cfg)
	engine.backend = backend
	return engine
}

func TestEngineBuildWheel(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		wheelName: "demo-1.0.0-py3-none-any.whl",
		log:       "Successfully built demo",
	}
	engine := newTestEngine(t, Config{
		Source:    testProject(t),
		OutputDir: t.TempDir(),
	}, backend)

	result, err := engine.Build(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success())
	assert.Equal(t, 1, backend.createCalls)
	assert.Equal(t, 1, backend.execCalls)
	assert.Equal(t, "fake", result.Backend)
	assert.Equal(t, "3.12", result.PythonVersion)

	wheelArtifact := result.Wheel()
	require.NotNil(t, wheelArtifact)
	assert.FileExists(t, wheelArtifact.Path)
	assert.Equal(t, "sha256", string(wheelArtifact.Digest.Algorithm()))
	assert.Positive(t, wheelArtifact.Size)
	assert.Equal(t, ">=3.9", wheelArtifact.RequiresPython)
	require.NotNil(t, wheelArtifact.Metadata)
	assert.Equal(t, "demo", wheelArtifact.Metadata.Distribution)
	assert.True(t, wheelArtifact.Metadata.IsUniversal())
	assert.Nil(t, result.Sdist())
}

func TestEngineBuildWheelAndSdist(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		wheelName: "demo-1.0.0-py3-none-any.whl",
		sdistName: "demo-1.0.0.tar.gz",
	}
	engine := newTestEngine(t, Config{
		Source:    testProject(t),
		OutputDir: t.TempDir(),
		Wheel:     true,
		Sdist:     true,
	}, backend)

	result, err := engine.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Artifacts, 2)
	require.NotNil(t, result.Sdist())
	assert.Equal(t, KindSdist, result.Sdist().Kind)
	assert.Positive(t, result.Sdist().Size)
}

func TestEngineCleanFirst(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	for _, stale := range []string{"old-0.1.0-py3-none-any.whl", "old-0.1.0.tar.gz", "old.zip"} {
		require.NoError(t, os.WriteFile(filepath.Join(outputDir, stale), []byte("stale"), 0o644))
	}
	readme := filepath.Join(outputDir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# keep me"), 0o644))

	backend := &fakeBackend{wheelName: "demo-1.0.0-py3-none-any.whl"}
	engine := newTestEngine(t, Config{
		Source:     testProject(t),
		OutputDir:  outputDir,
		CleanFirst: true,
	}, backend)

	_, err := engine.Build(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(outputDir, "old-0.1.0-py3-none-any.whl"))
	assert.NoFileExists(t, filepath.Join(outputDir, "old-0.1.0.tar.gz"))
	assert.NoFileExists(t, filepath.Join(outputDir, "old.zip"))
	assert.FileExists(t, readme)
	assert.FileExists(t, filepath.Join(outputDir, "demo-1.0.0-py3-none-any.whl"))
}

func TestEngineRefusesDangerousOutputDir(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{wheelName: "demo-1.0.0-py3-none-any.whl"}
	engine := newTestEngine(t, Config{
		Source:     testProject(t),
		OutputDir:  "/usr",
		CleanFirst: true,
	}, backend)

	_, err := engine.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSecurity))
	// refused before any build work happened
	assert.Zero(t, backend.createCalls)
	assert.Zero(t, backend.execCalls)
}

func TestEngineCleanFirstMissingOutputDirIsFine(t *testing.T) {
	t.Parallel()

	outputDir := filepath.Join(t.TempDir(), "dist")
	backend := &fakeBackend{wheelName: "demo-1.0.0-py3-none-any.whl"}
	engine := newTestEngine(t, Config{
		Source:     testProject(t),
		OutputDir:  outputDir,
		CleanFirst: true,
	}, backend)

	result, err := engine.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success())
}

func TestEngineBuildFailure(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		execErr: errors.Buildf("build backend failed"),
		log:     "gcc: error: missing header",
	}
	engine := newTestEngine(t, Config{
		Source:    testProject(t),
		OutputDir: t.TempDir(),
	}, backend)

	_, err := engine.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBuild))
}

func TestEngineEmptyBuildIsAnError(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{log: "nothing was produced"}
	engine := newTestEngine(t, Config{
		Source:    testProject(t),
		OutputDir: t.TempDir(),
	}, backend)

	result, err := engine.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBuild))
	assert.Contains(t, err.Error(), "without producing any artifacts")
	require.NotNil(t, result)
	assert.False(t, result.Success())
}

func TestEngineWritesBuildLog(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	backend := &fakeBackend{
		wheelName: "demo-1.0.0-py3-none-any.whl",
		log:       "build transcript",
	}
	engine := newTestEngine(t, Config{
		Source:    testProject(t),
		OutputDir: outputDir,
		WriteLog:  true,
	}, backend)

	result, err := engine.Build(context.Background())
	require.NoError(t, err)

	logPath := filepath.Join(outputDir, "build.log")
	assert.Equal(t, logPath, result.LogPath)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "build transcript", string(data))
}

func TestEngineMissingSourceIsBuildFailure(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{wheelName: "demo-1.0.0-py3-none-any.whl"}
	engine := newTestEngine(t, Config{
		Source:    filepath.Join(t.TempDir(), "missing"),
		OutputDir: t.TempDir(),
	}, backend)

	_, err := engine.Build(context.Background())
	require.Error(t, err)

	// Resolution failures are per-project build failures, not fatal
	// configuration errors, so a pipeline keeps building its siblings.
	assert.True(t, errors.Is(err, errors.ErrBuild))
	assert.False(t, errors.Is(err, errors.ErrConfig))
	assert.Zero(t, backend.execCalls)
}
