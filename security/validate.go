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
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/cowdogmoo/wheelwright/errors"
)

// SupportedPythonVersions is the interpreter version allowlist, matching the
// interpreters shipped in the manylinux/musllinux images.
var SupportedPythonVersions = map[string]bool{
	"3.9":  true,
	"3.10": true,
	"3.11": true,
	"3.12": true,
	"3.13": true,
}

// SupportedPythonVersionList returns the allowlist sorted for error messages.
func SupportedPythonVersionList() []string {
	parsed := make(semver.Collection, 0, len(SupportedPythonVersions))
	for v := range SupportedPythonVersions {
		parsed = append(parsed, semver.MustParse(v))
	}
	sort.Sort(parsed)

	versions := make([]string, len(parsed))
	for i, v := range parsed {
		versions[i] = fmt.Sprintf("%d.%d", v.Major(), v.Minor())
	}
	return versions
}

// ValidatePythonVersion checks version against the allowlist and returns the
// normalized major.minor form. A patch component is accepted and dropped
// ("3.12.4" normalizes to "3.12"). Rejections list the supported set.
func ValidatePythonVersion(version string) (string, error) {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return "", errors.Isolationf(
			"python version cannot be empty\nSupported versions: %s",
			strings.Join(SupportedPythonVersionList(), ", "))
	}

	parsed, err := semver.NewVersion(trimmed)
	if err != nil {
		return "", errors.Isolationf(
			"invalid python version %q: %v\nSupported versions: %s",
			version, err, strings.Join(SupportedPythonVersionList(), ", "))
	}

	normalized := fmt.Sprintf("%d.%d", parsed.Major(), parsed.Minor())

	if !SupportedPythonVersions[normalized] {
		return "", errors.Isolationf(
			"unsupported python version: %s\nSupported versions: %s",
			version, strings.Join(SupportedPythonVersionList(), ", "))
	}
	return normalized, nil
}

// windowsDrivePattern matches paths anchored at a Windows drive letter.
var windowsDrivePattern = regexp.MustCompile(`^[a-zA-Z]:[/\\]`)

// ValidateArchiveEntryPath validates a single archive entry name before it
// is trusted. Absolute paths are rejected (UNC network-share forms are the
// recognized exception), as is any ".." component and any component that
// starts with a hyphen.
func ValidateArchiveEntryPath(entry string) error {
	// UNC network-share paths are allowed in some contexts
	isUNC := strings.HasPrefix(entry, `\\`) || strings.HasPrefix(entry, "//")

	if !isUNC {
		if strings.HasPrefix(entry, "/") || strings.HasPrefix(entry, `\`) || windowsDrivePattern.MatchString(entry) {
			return errors.Securityf(
				"absolute path not allowed in wheel: %s\nuse relative paths only", entry)
		}
	}

	normalized := strings.ReplaceAll(entry, `\`, "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return errors.Securityf(
				"directory traversal (..) not allowed in wheel path: %s", entry)
		}
		if strings.HasPrefix(part, "-") {
			return errors.Securityf(
				"invalid path component in wheel: %s\npath components cannot start with hyphen", part)
		}
	}
	return nil
}

// knownRegistryPrefixes identify fully-qualified image references, as
// opposed to short registry keys.
var knownRegistryPrefixes = []string{"quay.io/", "docker.io/", "ghcr.io/"}

// EnsureDeterministicImage resolves an image specification to its canonical
// fully-qualified reference. A fully-qualified input must be a member of the
// registry's value set; anything else is treated as a registry key. Both
// paths fail on unrecognized images, naming the available keys, so repeated
// calls with identical inputs always return an identical string.
func EnsureDeterministicImage(image string, available map[string]string) (string, error) {
	for _, prefix := range knownRegistryPrefixes {
		if strings.HasPrefix(image, prefix) {
			for _, canonical := range available {
				if image == canonical {
					return image, nil
				}
			}
			return "", errors.Isolationf(
				"unknown or unsupported image: %s\nSupported image keys: %s",
				image, strings.Join(sortedKeys(available), ", "))
		}
	}

	canonical, ok := available[image]
	if !ok {
		msg := "unknown image key: " + image
		if suggestion := closestKey(image, available); suggestion != "" {
			msg += "\ndid you mean: " + suggestion + "?"
		}
		return "", errors.Isolationf(
			"%s\nSupported image keys:\n  %s",
			msg, strings.Join(sortedKeys(available), "\n  "))
	}
	return canonical, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func closestKey(input string, available map[string]string) string {
	ranks := fuzzy.RankFindFold(input, sortedKeys(available))
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
