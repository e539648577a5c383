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

import (
	"sort"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/security"
)

// Platform is a portable-Linux platform family.
type Platform string

// Platform families supported by container isolation.
const (
	PlatformManylinux Platform = "manylinux"
	PlatformMusllinux Platform = "musllinux"
	PlatformAuto      Platform = "auto"
)

// Images maps registry keys to canonical image references. These are the
// official build images from PyPA (https://github.com/pypa/manylinux).
// Read-only after initialization; resolution must never mutate it.
var Images = map[string]string{
	// manylinux2014 - CentOS 7 based (oldest, most compatible)
	"manylinux2014_x86_64":  "quay.io/pypa/manylinux2014_x86_64",
	"manylinux2014_i686":    "quay.io/pypa/manylinux2014_i686",
	"manylinux2014_aarch64": "quay.io/pypa/manylinux2014_aarch64",
	// manylinux_2_28 - AlmaLinux 8 based (recommended for new projects)
	"manylinux_2_28_x86_64":  "quay.io/pypa/manylinux_2_28_x86_64",
	"manylinux_2_28_aarch64": "quay.io/pypa/manylinux_2_28_aarch64",
	// manylinux_2_34 - AlmaLinux 9 based (newest glibc)
	"manylinux_2_34_x86_64":  "quay.io/pypa/manylinux_2_34_x86_64",
	"manylinux_2_34_aarch64": "quay.io/pypa/manylinux_2_34_aarch64",
	// musllinux - Alpine based (for musl libc distros)
	"musllinux_1_1_x86_64":  "quay.io/pypa/musllinux_1_1_x86_64",
	"musllinux_1_1_aarch64": "quay.io/pypa/musllinux_1_1_aarch64",
	"musllinux_1_2_x86_64":  "quay.io/pypa/musllinux_1_2_x86_64",
	"musllinux_1_2_aarch64": "quay.io/pypa/musllinux_1_2_aarch64",
}

// defaultImageKeys pick the default registry key for each platform family.
var defaultImageKeys = map[Platform]string{
	PlatformManylinux: "manylinux_2_28_x86_64",
	PlatformMusllinux: "musllinux_1_2_x86_64",
}

// pythonPaths maps interpreter versions to their paths inside the build
// images.
var pythonPaths = map[string]string{
	"3.9":  "/opt/python/cp39-cp39/bin/python",
	"3.10": "/opt/python/cp310-cp310/bin/python",
	"3.11": "/opt/python/cp311-cp311/bin/python",
	"3.12": "/opt/python/cp312-cp312/bin/python",
	"3.13": "/opt/python/cp313-cp313/bin/python",
}

// ListImages returns a copy of the image registry for display.
func ListImages() map[string]string {
	images := make(map[string]string, len(Images))
	for k, v := range Images {
		images[k] = v
	}
	return images
}

// SelectImage resolves the image to use for a build. An explicit image
// (key or fully-qualified reference) takes precedence; otherwise the
// platform family default is combined with the requested architecture.
// Resolution is a pure lookup: identical inputs always yield an identical
// reference, and image presence is handled separately by
// EnsureImageAvailable.
func SelectImage(explicitImage string, platform Platform, architecture string) (string, error) {
	if explicitImage != "" {
		return security.EnsureDeterministicImage(explicitImage, Images)
	}

	if platform == PlatformAuto || platform == "" {
		// manylinux_2_28 has the broadest compatibility
		platform = PlatformManylinux
	}

	key, ok := defaultImageKeys[platform]
	if !ok {
		return "", errors.Isolationf(
			"unknown platform family: %s\nSupported families: %s, %s, %s",
			platform, PlatformManylinux, PlatformMusllinux, PlatformAuto)
	}

	if architecture != "" && architecture != "x86_64" {
		key = strings.Replace(key, "x86_64", architecture, 1)
	}

	image, ok := Images[key]
	if !ok {
		return "", errors.Isolationf(
			"unknown platform: %s\nAvailable: %s", key, strings.Join(imageKeys(), ", "))
	}
	return image, nil
}

// ContainerPython returns the interpreter path inside the build image for
// the requested version, trying an exact match and then major.minor.
func ContainerPython(version string) (string, error) {
	normalized, err := security.ValidatePythonVersion(version)
	if err != nil {
		return "", err
	}

	if path, ok := pythonPaths[version]; ok {
		return path, nil
	}
	if path, ok := pythonPaths[normalized]; ok {
		return path, nil
	}

	return "", errors.Isolationf(
		"unsupported python version: %s\nSupported versions: %s",
		version, strings.Join(security.SupportedPythonVersionList(), ", "))
}

func imageKeys() []string {
	keys := make([]string, 0, len(Images))
	for k := range Images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
