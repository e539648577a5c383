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
	"time"

	"github.com/cowdogmoo/wheelwright/wheel"
	"github.com/opencontainers/go-digest"
)

// ArtifactKind distinguishes the artifact types a build can produce.
type ArtifactKind string

// Artifact kinds.
const (
	KindWheel ArtifactKind = "wheel"
	KindSdist ArtifactKind = "sdist"
)

// Artifact is one validated build output.
type Artifact struct {
	// Path is the artifact's location under the output directory.
	Path string `json:"path"`

	// Kind is wheel or sdist.
	Kind ArtifactKind `json:"kind"`

	// Digest is the sha256 content digest.
	Digest digest.Digest `json:"digest"`

	// Size is the artifact size in bytes.
	Size int64 `json:"size"`

	// Metadata is the parsed wheel identity. Nil for sdists.
	Metadata *wheel.Metadata `json:"metadata,omitempty"`

	// RequiresPython is the wheel's declared interpreter constraint, if
	// any.
	RequiresPython string `json:"requires_python,omitempty"`
}

// Result is the outcome of a single project build.
type Result struct {
	// Source is the project specifier the build started from.
	Source string `json:"source"`

	// Commit is the built commit for git sources.
	Commit string `json:"commit,omitempty"`

	// Backend names the isolation backend that ran the build.
	Backend string `json:"backend"`

	// PythonVersion is the normalized interpreter version built for.
	PythonVersion string `json:"python_version"`

	// Artifacts are the validated outputs.
	Artifacts []Artifact `json:"artifacts"`

	// LogPath is the written build log, when log writing is enabled.
	LogPath string `json:"log_path,omitempty"`

	// Duration is the wall-clock build time.
	Duration time.Duration `json:"duration"`
}

// Success reports whether the build produced at least one validated
// artifact.
func (r *Result) Success() bool {
	return len(r.Artifacts) > 0
}

// Wheel returns the built wheel artifact, or nil.
func (r *Result) Wheel() *Artifact {
	for i := range r.Artifacts {
		if r.Artifacts[i].Kind == KindWheel {
			return &r.Artifacts[i]
		}
	}
	return nil
}

// Sdist returns the built sdist artifact, or nil.
func (r *Result) Sdist() *Artifact {
	for i := range r.Artifacts {
		if r.Artifacts[i].Kind == KindSdist {
			return &r.Artifacts[i]
		}
	}
	return nil
}
