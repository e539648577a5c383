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

// Package wheel handles wheel artifact validation and metadata extraction:
// filename parsing, compatibility classification, archive content checks,
// and content digests.
package wheel

import (
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
)

// Metadata is the identity parsed from a wheel filename. The filename
// format is {distribution}-{version}[-{build}]-{python}-{abi}-{platform}.whl.
type Metadata struct {
	Distribution string `json:"distribution"`
	Version      string `json:"version"`
	BuildTag     string `json:"build_tag,omitempty"`
	PythonTag    string `json:"python_tag"`
	ABITag       string `json:"abi_tag"`
	PlatformTag  string `json:"platform_tag"`
	Filename     string `json:"filename"`
}

// ParseFilename parses a wheel filename into its components. The python,
// abi, and platform tags are always the last three dash-separated
// components, which keeps the parse correct whether or not the optional
// build tag is present.
func ParseFilename(filename string) (Metadata, error) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, ".whl")
	parts := strings.Split(stem, "-")

	if !strings.HasSuffix(base, ".whl") || len(parts) < 5 {
		return Metadata{}, errors.Buildf(
			"invalid wheel filename: %s\nexpected {distribution}-{version}[-{build}]-{python}-{abi}-{platform}.whl",
			base)
	}

	md := Metadata{
		Distribution: strings.ReplaceAll(parts[0], "_", "-"),
		Version:      parts[1],
		PythonTag:    parts[len(parts)-3],
		ABITag:       parts[len(parts)-2],
		PlatformTag:  parts[len(parts)-1],
		Filename:     base,
	}

	// Anything between the version and the trailing tag triple is the
	// optional build tag.
	if extra := parts[2 : len(parts)-3]; len(extra) > 0 {
		md.BuildTag = strings.Join(extra, "-")
	}

	return md, nil
}

// IsValidFilename reports whether filename parses as a wheel filename.
func IsValidFilename(filename string) bool {
	_, err := ParseFilename(filename)
	return err == nil
}

// IsUniversal reports whether the wheel runs on any interpreter and
// platform (py3 or py2.py3, no ABI, platform "any").
func (m Metadata) IsUniversal() bool {
	return (m.PythonTag == "py3" || m.PythonTag == "py2.py3") &&
		m.ABITag == "none" &&
		m.PlatformTag == "any"
}

// IsPortableLinux reports whether the wheel targets a pinned-baseline Linux
// platform family (manylinux or musllinux).
func (m Metadata) IsPortableLinux() bool {
	platform := strings.ToLower(m.PlatformTag)
	return strings.Contains(platform, "manylinux") || strings.Contains(platform, "musllinux")
}
