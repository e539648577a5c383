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
	"testing"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeBackend is a fakeBackend with a controllable availability probe.
type probeBackend struct {
	fakeBackend
	available bool
}

func (p *probeBackend) CheckAvailable(context.Context) bool { return p.available }

// stubBackends swaps the backend factories for the duration of one test.
func stubBackends(t *testing.T, localAvailable, containerAvailable bool) (local, container *probeBackend) {
	t.Helper()

	local = &probeBackend{fakeBackend: fakeBackend{name: "local"}, available: localAvailable}
	container = &probeBackend{fakeBackend: fakeBackend{name: "container"}, available: containerAvailable}

	origLocal, origContainer := newLocalBackend, newContainerBackend
	newLocalBackend = func(string) isolation.Backend { return local }
	newContainerBackend = func(isolation.ContainerConfig) isolation.Backend { return container }
	t.Cleanup(func() {
		newLocalBackend, newContainerBackend = origLocal, origContainer
	})
	return local, container
}

func selectConfig(mode string) *Config {
	cfg := &Config{Source: ".", Isolation: mode}
	cfg.ApplyDefaults()
	cfg.Isolation = mode
	return cfg
}

func TestSelectBackendExplicitLocal(t *testing.T) {
	local, _ := stubBackends(t, true, false)

	backend, err := SelectBackend(context.Background(), selectConfig(IsolationLocal))
	require.NoError(t, err)
	assert.Same(t, isolation.Backend(local), backend)
}

func TestSelectBackendExplicitLocalUnavailable(t *testing.T) {
	stubBackends(t, false, true)

	_, err := SelectBackend(context.Background(), selectConfig(IsolationLocal))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIsolation))
	assert.Contains(t, err.Error(), "no python")
}

func TestSelectBackendExplicitContainerUnavailable(t *testing.T) {
	stubBackends(t, true, false)

	_, err := SelectBackend(context.Background(), selectConfig(IsolationContainer))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIsolation))
	assert.Contains(t, err.Error(), "container runtime")
}

func TestSelectBackendAutoPrefersLocal(t *testing.T) {
	local, _ := stubBackends(t, true, true)

	backend, err := SelectBackend(context.Background(), selectConfig(IsolationAuto))
	require.NoError(t, err)
	assert.Same(t, isolation.Backend(local), backend)
}

func TestSelectBackendAutoFallsBackToContainer(t *testing.T) {
	_, container := stubBackends(t, false, true)

	backend, err := SelectBackend(context.Background(), selectConfig(IsolationAuto))
	require.NoError(t, err)
	assert.Same(t, isolation.Backend(container), backend)
}

func TestSelectBackendAutoContainerWhenConfigPinsIt(t *testing.T) {
	tests := []struct {
		name      string
		container isolation.ContainerConfig
	}{
		{"explicit image", isolation.ContainerConfig{Image: "manylinux_2_28_x86_64"}},
		{"wheel repair", isolation.ContainerConfig{RepairWheel: true}},
		{"pinned platform", isolation.ContainerConfig{Platform: isolation.PlatformMusllinux}},
		{"foreign architecture", isolation.ContainerConfig{Architecture: "aarch64"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, container := stubBackends(t, true, true)

			cfg := selectConfig(IsolationAuto)
			cfg.Container = tc.container

			backend, err := SelectBackend(context.Background(), cfg)
			require.NoError(t, err)
			assert.Same(t, isolation.Backend(container), backend)
		})
	}
}

func TestSelectBackendAutoNothingAvailable(t *testing.T) {
	stubBackends(t, false, false)

	_, err := SelectBackend(context.Background(), selectConfig(IsolationAuto))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIsolation))
	assert.Contains(t, err.Error(), "no isolation backend available")
	assert.Contains(t, err.Error(), "not found on the host")
}

func TestSelectBackendAutoPinnedContainerUnavailable(t *testing.T) {
	// Local availability is irrelevant once the config pins container
	// isolation; the error must not blame the host interpreter.
	stubBackends(t, true, false)

	cfg := selectConfig(IsolationAuto)
	cfg.Container = isolation.ContainerConfig{RepairWheel: true}

	_, err := SelectBackend(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrIsolation))
	assert.Contains(t, err.Error(), "requires container isolation")
	assert.NotContains(t, err.Error(), "python")
}

func TestRequiresContainerChecks(t *testing.T) {
	t.Parallel()

	assert.False(t, requiresContainer(&Config{}))
	assert.False(t, requiresContainer(&Config{Container: isolation.ContainerConfig{Platform: isolation.PlatformAuto}}))
	assert.False(t, requiresContainer(&Config{Container: isolation.ContainerConfig{Architecture: "x86_64"}}))
	assert.True(t, requiresContainer(&Config{Container: isolation.ContainerConfig{Image: "x"}}))
	assert.True(t, requiresContainer(&Config{Container: isolation.ContainerConfig{RepairWheel: true}}))
	assert.True(t, requiresContainer(&Config{Container: isolation.ContainerConfig{Platform: isolation.PlatformManylinux}}))
	assert.True(t, requiresContainer(&Config{Container: isolation.ContainerConfig{Architecture: "aarch64"}}))
}
