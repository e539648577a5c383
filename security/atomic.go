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
	"io"
	"os"
	"path/filepath"

	"github.com/cowdogmoo/wheelwright/errors"
)

// WriteFileAtomic writes a file by streaming through write into a temporary
// file created in the same directory as target, then renaming it into
// place. The same-directory temp file is what guarantees the rename stays on
// one filesystem and is therefore atomic. If write or the rename fails, the
// temporary file is removed and the original error is returned; no partial
// file and no temp file remain on either path.
func WriteFileAtomic(target string, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".tmp_*")
	if err != nil {
		return errors.Wrap("create temporary file", dir, err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap("flush temporary file", tmpPath, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap("finalize", target, err)
	}
	return nil
}

// WriteDataAtomic is a convenience wrapper around WriteFileAtomic for
// callers that already hold the full contents in memory.
func WriteDataAtomic(target string, data []byte) error {
	return WriteFileAtomic(target, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
