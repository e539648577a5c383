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

package wheel

import (
	"archive/zip"
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/security"
)

// ValidateArchive opens the wheel archive and verifies it before any entry
// is trusted: every entry name must pass the archive-entry path checks, and
// the archive must contain exactly one *.dist-info/WHEEL and exactly one
// *.dist-info/METADATA entry. It must be called before metadata extraction.
func ValidateArchive(path string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrap("open wheel archive", path, err)
	}
	defer reader.Close()

	wheelEntries := 0
	metadataEntries := 0
	for _, file := range reader.File {
		if err := security.ValidateArchiveEntryPath(file.Name); err != nil {
			return errors.Wrap("validate wheel entry", file.Name, err)
		}
		if isDistInfoFile(file.Name, "WHEEL") {
			wheelEntries++
		}
		if isDistInfoFile(file.Name, "METADATA") {
			metadataEntries++
		}
	}

	switch {
	case wheelEntries == 0:
		return errors.Buildf("missing WHEEL metadata in %s", path)
	case wheelEntries > 1:
		return errors.Buildf("multiple WHEEL entries in %s", path)
	case metadataEntries == 0:
		return errors.Buildf("missing METADATA in %s", path)
	case metadataEntries > 1:
		return errors.Buildf("multiple METADATA entries in %s", path)
	}
	return nil
}

// isDistInfoFile reports whether entry is the given file directly inside a
// *.dist-info directory.
func isDistInfoFile(entry, name string) bool {
	dir, file, ok := strings.Cut(entry, "/")
	return ok && file == name && strings.HasSuffix(dir, ".dist-info")
}

// RequiresPython extracts the Requires-Python declaration from the wheel's
// METADATA entry. Returns an empty string if absent.
func RequiresPython(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.Wrap("open wheel archive", path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if !isDistInfoFile(file.Name, "METADATA") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", errors.Wrap("read METADATA", file.Name, err)
		}
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			line := scanner.Text()
			// Metadata headers end at the first blank line
			if line == "" {
				break
			}
			if value, ok := strings.CutPrefix(line, "Requires-Python:"); ok {
				return strings.TrimSpace(value), nil
			}
		}
		return "", scanner.Err()
	}
	return "", errors.Buildf("missing METADATA in %s", path)
}

// ContentDigest computes the sha256 digest and byte size of the artifact
// file. The digest's encoded (hex) form is what ends up in build results.
func ContentDigest(path string) (digest.Digest, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, errors.Wrap("open artifact", path, err)
	}
	defer file.Close()

	counted := &countingReader{r: file}
	dgst, err := digest.SHA256.FromReader(counted)
	if err != nil {
		return "", 0, errors.Wrap("digest artifact", path, err)
	}
	return dgst, counted.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
