//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/l50/goutils/v2/dev/lint"
	"github.com/l50/goutils/v2/git"
	mageutils "github.com/l50/goutils/v2/dev/mage"
	"github.com/l50/goutils/v2/sys"

	// mage utility functions
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var repoRoot string

func init() {
	os.Setenv("GO111MODULE", "on")

	var err error
	repoRoot, err = git.RepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get repo root: %v", err)
		os.Exit(1)
	}
}

type compileParams struct {
	GOOS   string
	GOARCH string
}

func (p *compileParams) populateFromEnv() {
	if p.GOOS == "" {
		p.GOOS = os.Getenv("GOOS")
		if p.GOOS == "" {
			p.GOOS = runtime.GOOS
		}
	}

	if p.GOARCH == "" {
		p.GOARCH = os.Getenv("GOARCH")
		if p.GOARCH == "" {
			p.GOARCH = runtime.GOARCH
		}
	}
}

// InstallDeps installs the Go dependencies necessary for developing
// on the project.
//
// Example usage:
//
// ```go
// mage installdeps
// ```
//
// **Returns:**
//
// error: An error if any issue occurs while trying to
// install the dependencies.
func InstallDeps() error {
	fmt.Println(color.YellowString("Installing dependencies."))
	if err := lint.InstallGoPCDeps(); err != nil {
		return fmt.Errorf("failed to install pre-commit dependencies: %v", err)
	}

	if err := mageutils.InstallVSCodeModules(); err != nil {
		return fmt.Errorf(color.RedString(
			"failed to install vscode-go modules: %v", err))
	}

	return nil
}

// RunPreCommit updates, clears, and executes all pre-commit hooks
// locally.
//
// Example usage:
//
// ```go
// mage runprecommit
// ```
//
// **Returns:**
//
// error: An error if any issue occurs.
func RunPreCommit() error {
	mg.Deps(InstallDeps)

	fmt.Println(color.YellowString("Updating pre-commit hooks."))
	if err := lint.UpdatePCHooks(); err != nil {
		return err
	}

	fmt.Println(color.YellowString(
		"Clearing the pre-commit cache to ensure we have a fresh start."))
	if err := lint.ClearPCCache(); err != nil {
		return err
	}

	fmt.Println(color.YellowString("Running all pre-commit hooks locally."))
	if err := lint.RunPCHooks(); err != nil {
		return err
	}

	return nil
}

// Compile compiles the wheelwright binary using goreleaser. The behavior
// is controlled by the 'release' environment variable. If the GOOS and
// GOARCH environment variables are not set, the function defaults to the
// current system's OS and architecture.
//
// Example usage:
//
// ```go
// release=true mage compile # Compiles all supported releases for wheelwright
// GOOS=darwin GOARCH=arm64 mage compile false # Compiles the binary for darwin/arm64
// ```
//
// **Returns:**
//
// error: An error if any issue occurs during compilation.
func Compile() error {
	release, ok := os.LookupEnv("release")
	if !ok {
		return fmt.Errorf("'release' environment variable not set. It should be 'true' or 'false'. Example: release=true mage Compile")
	}

	isRelease := false
	if release == "true" {
		isRelease = true
	} else if release != "false" {
		return fmt.Errorf("invalid value for 'release' environment variable. It should be 'true' or 'false'")
	}

	if !sys.CmdExists("goreleaser") {
		return fmt.Errorf("goreleaser is not installed, please run mage installdeps")
	}

	cwd, err := changeToRepoRoot()
	if err != nil {
		return err
	}
	defer os.Chdir(cwd)

	var p compileParams
	p.populateFromEnv()

	var args []string
	if isRelease {
		fmt.Println("Compiling all supported releases for wheelwright with goreleaser")
		args = []string{"release", "--snapshot", "--clean", "--skip", "validate"}
	} else {
		fmt.Printf("Compiling the wheelwright binary for %s/%s, please wait.\n", p.GOOS, p.GOARCH)
		args = []string{"build", "--snapshot", "--clean", "--skip", "validate", "--single-target"}
	}

	if err := sh.RunV("goreleaser", args...); err != nil {
		return fmt.Errorf("goreleaser failed to execute: %v", err)
	}
	return nil
}

func changeToRepoRoot() (originalCwd string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}

	if cwd != repoRoot {
		if err := os.Chdir(repoRoot); err != nil {
			return "", fmt.Errorf("failed to change directory to repo root: %v", err)
		}
	}

	return cwd, nil
}

// RunTests executes all unit tests.
//
// Example usage:
//
// ```go
// mage runtests
// ```
//
// **Returns:**
//
// error: An error if any issue occurs while running the tests.
func RunTests() error {
	fmt.Println("Running unit tests.")
	if _, err := sys.RunCommand(filepath.Join(".hooks", "run-go-tests.sh"), "all"); err != nil {
		return fmt.Errorf("failed to run unit tests: %v", err)
	}
	return nil
}
