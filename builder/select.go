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
	"context"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/cowdogmoo/wheelwright/logging"
)

// requiresContainer reports whether the config asks for something only
// container isolation can deliver.
func requiresContainer(cfg *Config) bool {
	if cfg.Container.Image != "" || cfg.Container.RepairWheel {
		return true
	}
	if cfg.Container.Platform != "" && cfg.Container.Platform != isolation.PlatformAuto {
		return true
	}
	return cfg.Container.Architecture != "" && cfg.Container.Architecture != "x86_64"
}

// Backend factories, swappable by tests.
var (
	newLocalBackend = func(pythonVersion string) isolation.Backend {
		return isolation.NewLocalBackend(pythonVersion)
	}
	newContainerBackend = func(cfg isolation.ContainerConfig) isolation.Backend {
		return isolation.NewContainerBackend(cfg)
	}
)

// SelectBackend picks the isolation backend for a build. Explicit modes
// are honored after an availability probe. Auto mode prefers the local
// backend and falls back to containers when the host interpreter is
// missing or the config pins a platform, architecture, image, or wheel
// repair.
func SelectBackend(ctx context.Context, cfg *Config) (isolation.Backend, error) {
	local := newLocalBackend(cfg.PythonVersion)
	container := newContainerBackend(cfg.Container)

	switch cfg.Isolation {
	case IsolationLocal:
		if !local.CheckAvailable(ctx) {
			return nil, errors.Isolationf(
				"local isolation requested but no python %s interpreter was found on the host",
				cfg.PythonVersion)
		}
		return local, nil

	case IsolationContainer:
		if !container.CheckAvailable(ctx) {
			return nil, errors.Isolationf(
				"container isolation requested but no working container runtime was found")
		}
		return container, nil
	}

	// auto
	needsContainer := requiresContainer(cfg)
	if !needsContainer && local.CheckAvailable(ctx) {
		logging.DebugContext(ctx, "Auto isolation: using local python %s", cfg.PythonVersion)
		return local, nil
	}
	if container.CheckAvailable(ctx) {
		logging.DebugContext(ctx, "Auto isolation: using container backend")
		return container, nil
	}

	if needsContainer {
		// The local backend was never consulted, so the message must not
		// blame the host interpreter.
		return nil, errors.Isolationf(
			"no isolation backend available: the configuration requires container isolation but no container runtime is running")
	}
	return nil, errors.Isolationf(
		"no isolation backend available: python %s was not found on the host and no container runtime is running",
		cfg.PythonVersion)
}
