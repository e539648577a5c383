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
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Fixed mount points inside the build container.
const (
	containerSourceDir  = "/src"
	containerOutputDir  = "/output"
	containerStagingDir = "/tmp/dist"
)

// ContainerRunArgs assembles the arguments for the container runtime's run
// command: resource limits, networking, the read-only source mount, the
// read-write output mount, extra mounts and environment, the working
// directory, and finally the image. The shell command is appended by the
// caller. envVars is the environment prepared by CreateEnvironment; keys
// are emitted in sorted order so the argv is deterministic.
func ContainerRunArgs(config ContainerConfig, image, sourceDir, outputDir string, envVars map[string]string) []string {
	args := []string{"run", "--rm"}

	if config.MemoryLimit != "" {
		args = append(args, "--memory", config.MemoryLimit)
	}
	if config.CPULimit > 0 {
		args = append(args, "--cpus", strconv.FormatFloat(config.CPULimit, 'f', -1, 64))
	}

	if !config.Network {
		args = append(args, "--network=none")
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		absSource = sourceDir
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		absOutput = outputDir
	}
	args = append(args, "-v", absSource+":"+containerSourceDir+":ro")
	args = append(args, "-v", absOutput+":"+containerOutputDir+":rw")

	for _, hostPath := range sortedMapKeys(config.ExtraMounts) {
		args = append(args, "-v", hostPath+":"+config.ExtraMounts[hostPath])
	}

	for _, key := range sortedMapKeys(envVars) {
		args = append(args, "-e", key+"="+envVars[key])
	}

	args = append(args, "-w", containerSourceDir)
	args = append(args, image)
	return args
}

// GenerateBuildScript produces the shell script run inside the container.
// Steps run in a fixed order and any non-zero exit fails the whole run:
// tool installation, extra build requirements, the build itself into a
// staging directory, wheel repair (with unrepaired-copy fallback) or a
// plain copy-out, sdist copy-out, and a final output listing.
func GenerateBuildScript(pythonPath string, buildRequirements []string, opts BuildOptions, repairWheel bool) string {
	lines := []string{
		"set -ex",
		"",
		"# Upgrade pip and install build tools",
		fmt.Sprintf("%s -m pip install --upgrade pip build auditwheel", pythonPath),
	}

	if len(buildRequirements) > 0 {
		quoted := make([]string, len(buildRequirements))
		for i, req := range buildRequirements {
			quoted[i] = strconv.Quote(req)
		}
		lines = append(lines, fmt.Sprintf("%s -m pip install %s", pythonPath, strings.Join(quoted, " ")))
	}

	lines = append(lines, "", "# Build the package")

	buildCmd := pythonPath + " -m build"
	if opts.Wheel && !opts.Sdist {
		buildCmd += " --wheel"
	} else if opts.Sdist && !opts.Wheel {
		buildCmd += " --sdist"
	}
	for _, key := range sortedMapKeys(opts.ConfigSettings) {
		buildCmd += fmt.Sprintf(" --config-setting=%s=%s", key, opts.ConfigSettings[key])
	}
	buildCmd += " --outdir " + containerStagingDir
	lines = append(lines, buildCmd)

	if repairWheel && opts.Wheel {
		lines = append(lines,
			"",
			"# Repair wheel for manylinux compatibility",
			fmt.Sprintf("for whl in %s/*.whl; do", containerStagingDir),
			`    if [ -f "$whl" ]; then`,
			fmt.Sprintf(`        auditwheel repair "$whl" --plat auto -w %s/ || cp "$whl" %s/`,
				containerOutputDir, containerOutputDir),
			"    fi",
			"done",
		)
	} else {
		lines = append(lines,
			"",
			"# Copy artifacts to output",
			fmt.Sprintf("cp %s/* %s/ 2>/dev/null || true", containerStagingDir, containerOutputDir),
		)
	}

	if opts.Sdist {
		lines = append(lines,
			fmt.Sprintf("cp %s/*.tar.gz %s/ 2>/dev/null || true", containerStagingDir, containerOutputDir))
	}

	lines = append(lines,
		"",
		"# List output",
		fmt.Sprintf("ls -la %s/", containerOutputDir),
	)

	return strings.Join(lines, "\n")
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
