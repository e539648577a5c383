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

// Package builder turns a Python source project into validated wheel and
// sdist artifacts. The engine cleans the output directory when asked,
// resolves the source, picks an isolation backend, runs the two-phase
// build protocol, and validates whatever the build produced before
// reporting success.
package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/cowdogmoo/wheelwright/logging"
	"github.com/cowdogmoo/wheelwright/security"
	"github.com/cowdogmoo/wheelwright/sources"
	"github.com/cowdogmoo/wheelwright/wheel"
)

// buildLogName is the log file written next to the artifacts.
const buildLogName = "build.log"

// Engine runs single-project builds. A zero-value Engine with a Config is
// ready to use; the backend is selected per build unless a test injects
// one.
type Engine struct {
	Config Config

	// backend overrides backend selection. Tests use this to run the
	// engine against a fake.
	backend isolation.Backend
}

// NewEngine creates a build engine, applying config defaults.
func NewEngine(cfg Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{Config: cfg}
}

// Build runs the complete build workflow and returns the validated
// result. Validation failures and empty builds are errors; the returned
// Result still carries whatever context is useful for reporting.
func (e *Engine) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := &e.Config

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	normalized, err := security.ValidatePythonVersion(cfg.PythonVersion)
	if err != nil {
		return nil, err
	}

	if cfg.CleanFirst {
		if err := e.cleanOutput(ctx); err != nil {
			return nil, err
		}
	}

	src, err := sources.Resolve(ctx, cfg.Source, sources.Options{
		Ref:   cfg.Ref,
		Depth: cfg.GitDepth,
		Token: cfg.GitToken,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := src.Release(); releaseErr != nil {
			logging.WarnContext(ctx, "Failed to release source: %v", releaseErr)
		}
	}()

	backend := e.backend
	if backend == nil {
		backend, err = SelectBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	logging.InfoContext(ctx, "Building %s with %s isolation (python %s)",
		cfg.Source, backend.Name(), normalized)

	env, err := backend.CreateEnvironment(ctx, normalized, cfg.BuildRequirements)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := env.Release(); releaseErr != nil {
			logging.WarnContext(ctx, "Failed to release build environment: %v", releaseErr)
		}
	}()

	opts := isolation.BuildOptions{
		Wheel:          cfg.Wheel,
		Sdist:          cfg.Sdist,
		ConfigSettings: cfg.ConfigSettings,
		NoDeps:         cfg.NoDeps,
	}
	exec, err := backend.ExecuteBuild(ctx, src.Path, cfg.OutputDir, env, opts)
	if exec != nil && cfg.WriteLog && exec.Log != "" {
		e.writeLog(ctx, exec.Log)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Source:        cfg.Source,
		Commit:        src.Commit,
		Backend:       backend.Name(),
		PythonVersion: normalized,
		Duration:      time.Since(start),
	}
	if cfg.WriteLog && exec.Log != "" {
		result.LogPath = filepath.Join(cfg.OutputDir, buildLogName)
	}

	if exec.WheelPath != "" {
		artifact, err := validateWheel(exec.WheelPath)
		if err != nil {
			return result, err
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}
	if exec.SdistPath != "" {
		artifact, err := describeSdist(exec.SdistPath)
		if err != nil {
			return result, err
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}

	if !result.Success() {
		return result, errors.Buildf(
			"build completed without producing any artifacts\n%s", trimLog(exec.Log))
	}

	logging.InfoContext(ctx, "Built %d artifact(s) in %s", len(result.Artifacts), result.Duration.Round(time.Millisecond))
	return result, nil
}

// cleanOutput removes stale artifacts from the output directory after the
// dangerous-path check. A missing directory is fine; there is nothing to
// clean.
func (e *Engine) cleanOutput(ctx context.Context) error {
	dir := e.Config.OutputDir
	if security.IsDangerousCleanupPath(dir) {
		return errors.Securityf("refusing to clean dangerous directory: %s", dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// no directory yet, nothing to clean
		return nil
	}

	removed, err := security.SafeCleanupArtifacts(dir)
	if err != nil {
		return err
	}
	if removed > 0 {
		logging.InfoContext(ctx, "Removed %d stale artifact(s) from %s", removed, dir)
	}
	return nil
}

// writeLog writes the build log atomically next to the artifacts. Log
// writing is best effort and never fails the build.
func (e *Engine) writeLog(ctx context.Context, log string) {
	path := filepath.Join(e.Config.OutputDir, buildLogName)
	if err := security.WriteDataAtomic(path, []byte(log)); err != nil {
		logging.WarnContext(ctx, "Failed to write build log to %s: %v", path, err)
	}
}

// validateWheel checks the wheel's filename and archive structure and
// extracts its metadata and content digest.
func validateWheel(path string) (Artifact, error) {
	md, err := wheel.ParseFilename(path)
	if err != nil {
		return Artifact{}, err
	}
	if err := wheel.ValidateArchive(path); err != nil {
		return Artifact{}, err
	}

	dgst, size, err := wheel.ContentDigest(path)
	if err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		Path:     path,
		Kind:     KindWheel,
		Digest:   dgst,
		Size:     size,
		Metadata: &md,
	}
	if requires, err := wheel.RequiresPython(path); err == nil {
		artifact.RequiresPython = requires
	}
	return artifact, nil
}

// describeSdist digests an sdist. Sdists are tarballs, not wheels, so only
// the content digest applies.
func describeSdist(path string) (Artifact, error) {
	dgst, size, err := wheel.ContentDigest(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Path:   path,
		Kind:   KindSdist,
		Digest: dgst,
		Size:   size,
	}, nil
}

// trimLog keeps error messages readable by capping the quoted build log.
func trimLog(log string) string {
	const maxLines = 30
	lines := strings.Split(strings.TrimSpace(log), "\n")
	if len(lines) <= maxLines {
		return strings.TrimSpace(log)
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
