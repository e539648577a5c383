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

// Package security provides the validation and safety primitives that guard
// every filesystem-touching step of a build: dangerous-directory detection,
// safe artifact cleanup, archive entry path validation, interpreter version
// validation, deterministic image resolution, and atomic file finalization.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
)

// unixDangerousRoots are directories that must never be cleanup targets.
// /tmp is deliberately absent: ephemeral build output commonly lives there.
var unixDangerousRoots = []string{
	"/",
	"/home",
	"/root",
	"/usr",
	"/var",
	"/opt",
	"/etc",
	"/bin",
	"/sbin",
	"/lib",
}

// windowsDangerousRoots mirror the Unix set on the secondary platform
// family. Compared case-insensitively.
var windowsDangerousRoots = []string{
	`c:\`,
	`c:\windows`,
	`c:\program files`,
}

// artifactSuffixes are the only file suffixes safe cleanup may delete.
var artifactSuffixes = []string{".whl", ".tar.gz", ".zip"}

// canonicalize resolves dir to an absolute path, following symlinks when the
// path exists. Symlink resolution is what defeats relative-path and symlink
// evasion of the dangerous-root check.
func canonicalize(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs
}

// IsDangerousCleanupPath reports whether dir resolves to a system root, the
// user's home directory, or anything nested below one of those roots. The
// check works on the canonicalized path and does not require dir to exist.
func IsDangerousCleanupPath(dir string) bool {
	resolved := canonicalize(dir)
	lower := strings.ToLower(resolved)

	for _, root := range unixDangerousRoots {
		if root == "/" {
			if resolved == "/" {
				return true
			}
			continue
		}
		if resolved == root || strings.HasPrefix(resolved, root+"/") {
			return true
		}
	}

	for _, root := range windowsDangerousRoots {
		trimmed := strings.TrimSuffix(root, `\`)
		if lower == root || lower == trimmed || strings.HasPrefix(lower, trimmed+`\`) {
			return true
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		home = canonicalize(home)
		if resolved == home || strings.HasPrefix(resolved, home+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// ValidateCleanupPath verifies that dir is a safe cleanup target: not a
// dangerous directory, existing, and a directory. The dangerous check runs
// first so a refusal never depends on filesystem state.
func ValidateCleanupPath(dir string) error {
	if IsDangerousCleanupPath(dir) {
		return errors.Securityf(
			"refusing to clean dangerous directory: %s\ncleanup is restricted to project directories",
			canonicalize(dir))
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Buildf("output directory does not exist: %s", dir)
		}
		return errors.Wrap("stat output directory", dir, err)
	}
	if !info.IsDir() {
		return errors.Buildf("output path is not a directory: %s", dir)
	}
	return nil
}

// SafeCleanupArtifacts deletes build artifacts (*.whl, *.tar.gz, *.zip) from
// dir and returns the number of files removed. It refuses dangerous
// directories, never touches non-artifact files, and accumulates individual
// deletion failures into a single error instead of stopping at the first.
func SafeCleanupArtifacts(dir string) (int, error) {
	if err := ValidateCleanupPath(dir); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrap("read output directory", dir, err)
	}

	deleted := 0
	var failures []string
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			failures = append(failures, err.Error())
			continue
		}
		deleted++
	}

	if len(failures) > 0 {
		return deleted, errors.Buildf(
			"failed to delete some files during cleanup:\n%s", strings.Join(failures, "\n"))
	}
	return deleted, nil
}

func isArtifactName(name string) bool {
	for _, suffix := range artifactSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
