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

// Package sources resolves a project specifier (local directory or git URL)
// to a buildable source tree on disk.
package sources

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cowdogmoo/wheelwright/config"
	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/logging"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// tempDirPrefix is the prefix used for cloned source directories.
const tempDirPrefix = "wheelwright-sources-"

// gitCacheSubdir is the cache subdirectory that holds git clones.
const gitCacheSubdir = "sources"

// Origin identifies where a resolved source came from.
type Origin string

// Source origins.
const (
	OriginLocal Origin = "local"
	OriginGit   Origin = "git"
)

// Options tune git source resolution.
type Options struct {
	// Ref is a branch, tag, or commit hash to check out. Empty means the
	// remote default branch.
	Ref string

	// Depth limits clone history. Zero means full history. Ignored when
	// Ref is a commit hash, which shallow clones cannot reach.
	Depth int

	// Token authenticates HTTPS clones of private repositories.
	Token string
}

// Resolved is a source tree ready to build from.
type Resolved struct {
	// Path is the local directory holding the project.
	Path string

	// Origin records whether Path is the caller's directory or a clone.
	Origin Origin

	// Commit is the checked-out commit hash for git sources.
	Commit string

	releaseOnce sync.Once
	release     func() error
}

// Release removes the cloned working tree. For local sources it is a
// no-op; the caller's directory is never touched. Safe to call more than
// once.
func (r *Resolved) Release() error {
	var err error
	r.releaseOnce.Do(func() {
		if r.release != nil {
			err = r.release()
		}
	})
	return err
}

// IsGitURL reports whether spec looks like a git remote rather than a
// local path.
func IsGitURL(spec string) bool {
	if strings.HasPrefix(spec, "git@") || strings.HasPrefix(spec, "ssh://") {
		return true
	}
	if strings.HasPrefix(spec, "https://") || strings.HasPrefix(spec, "http://") {
		return true
	}
	return strings.HasSuffix(spec, ".git")
}

// Resolve turns a project specifier into a buildable source tree. Local
// directories are validated in place; git URLs are cloned into a scoped
// temporary directory that the returned Resolved owns.
func Resolve(ctx context.Context, spec string, opts Options) (*Resolved, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.Configf("source cannot be empty")
	}

	if IsGitURL(spec) {
		return resolveGit(ctx, spec, opts)
	}
	return resolveLocal(spec)
}

func resolveLocal(dir string) (*Resolved, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap("resolve source path", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Buildf("source directory does not exist: %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Buildf("source is not a directory: %s", abs)
	}

	if err := checkBuildable(abs); err != nil {
		return nil, err
	}

	return &Resolved{Path: abs, Origin: OriginLocal}, nil
}

// checkBuildable verifies the directory holds a buildable Python project.
func checkBuildable(dir string) error {
	for _, marker := range []string{"pyproject.toml", "setup.py"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return nil
		}
	}
	return errors.Buildf(
		"source %s has no pyproject.toml or setup.py; not a buildable python project", dir)
}

func resolveGit(ctx context.Context, repoURL string, opts Options) (*Resolved, error) {
	// Clones land under the user cache dir so interrupted builds leave
	// their debris somewhere predictable; without a resolvable home the
	// system temp dir serves.
	base := ""
	if cacheDir, err := config.GetCacheDir(gitCacheSubdir); err == nil {
		base = cacheDir
	}
	destDir, err := os.MkdirTemp(base, tempDirPrefix)
	if err != nil {
		return nil, errors.Wrap("create clone directory", "", err)
	}
	release := func() error { return os.RemoveAll(destDir) }

	cloneURL, err := injectToken(repoURL, opts.Token)
	if err != nil {
		_ = release()
		return nil, err
	}

	logging.DebugContext(ctx, "Cloning %s to %s", logging.RedactURL(repoURL), destDir)

	repo, err := cloneWithRef(ctx, cloneURL, destDir, opts)
	if err != nil {
		_ = release()
		return nil, errors.WrapKind(errors.ErrBuild, "clone repository", logging.RedactURL(repoURL), err)
	}

	resolved := &Resolved{
		Path:    destDir,
		Origin:  OriginGit,
		release: release,
	}
	if head, headErr := repo.Head(); headErr == nil {
		resolved.Commit = head.Hash().String()
		logging.InfoContext(ctx, "Cloned %s at %s", logging.RedactURL(repoURL), resolved.Commit[:8])
	}

	if err := checkBuildable(destDir); err != nil {
		_ = resolved.Release()
		return nil, err
	}
	return resolved, nil
}

// cloneWithRef clones the repository, trying the ref as a branch, then as
// a tag, and finally falling back to a full clone with checkout so commit
// hashes work too.
func cloneWithRef(ctx context.Context, cloneURL, destDir string, opts Options) (*git.Repository, error) {
	cloneOpts := &git.CloneOptions{URL: cloneURL}
	if opts.Depth > 0 {
		cloneOpts.Depth = opts.Depth
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, destDir, false, cloneOpts)
	if err == nil {
		return repo, nil
	}
	if opts.Ref == "" {
		return nil, err
	}

	if strings.Contains(err.Error(), "reference not found") {
		_ = os.RemoveAll(destDir)
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.Ref)
		repo, err = git.PlainCloneContext(ctx, destDir, false, cloneOpts)
		if err == nil {
			return repo, nil
		}
	}

	// Last resort: full clone, then checkout the ref as a commit hash.
	_ = os.RemoveAll(destDir)
	cloneOpts.ReferenceName = ""
	cloneOpts.SingleBranch = false
	cloneOpts.Depth = 0
	repo, err = git.PlainCloneContext(ctx, destDir, false, cloneOpts)
	if err != nil {
		return nil, err
	}
	if err := checkoutRef(repo, opts.Ref); err != nil {
		return nil, err
	}
	return repo, nil
}

func checkoutRef(repo *git.Repository, ref string) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return errors.Wrap("get worktree", "", err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(ref)}); err == nil {
		return nil
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(ref)}); err == nil {
		return nil
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewTagReferenceName(ref)}); err == nil {
		return nil
	}
	return errors.Configf("could not checkout ref %s: not a valid branch, tag, or commit", ref)
}

// injectToken injects an auth token into an HTTPS URL. SSH and plain HTTP
// URLs pass through unchanged.
func injectToken(repoURL, token string) (string, error) {
	if token == "" {
		return repoURL, nil
	}
	if strings.HasPrefix(repoURL, "git@") || strings.HasPrefix(repoURL, "ssh://") {
		return repoURL, nil
	}

	parsed, err := url.Parse(repoURL)
	if err != nil {
		return "", errors.Configf("invalid repository URL: %v", err)
	}
	if parsed.Scheme != "https" {
		return repoURL, nil
	}

	parsed.User = url.UserPassword("x-access-token", token)
	return parsed.String(), nil
}
