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

package main

import (
	"encoding/json"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/wheel"
	"github.com/spf13/cobra"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <wheel>",
	Short: "Inspect and validate a wheel file",
	Long: `Inspect a wheel file: parse its filename tags, validate the archive
structure, and report its content digest and interpreter requirement.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Emit machine-readable JSON")
}

// inspectReport is the full inspection result for one wheel.
type inspectReport struct {
	wheel.Metadata
	Digest         string `json:"digest"`
	Size           int64  `json:"size"`
	RequiresPython string `json:"requires_python,omitempty"`
	Universal      bool   `json:"universal"`
	PortableLinux  bool   `json:"portable_linux"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !strings.HasSuffix(path, ".whl") {
		return errors.Configf("inspect expects a .whl file, got %s", path)
	}

	md, err := wheel.ParseFilename(path)
	if err != nil {
		return err
	}
	if err := wheel.ValidateArchive(path); err != nil {
		return err
	}
	dgst, size, err := wheel.ContentDigest(path)
	if err != nil {
		return err
	}
	requiresPython, err := wheel.RequiresPython(path)
	if err != nil {
		return err
	}

	report := inspectReport{
		Metadata:       md,
		Digest:         dgst.String(),
		Size:           size,
		RequiresPython: requiresPython,
		Universal:      md.IsUniversal(),
		PortableLinux:  md.IsPortableLinux(),
	}

	if inspectJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap("encoding inspection report", path, err)
		}
		cmd.Println(string(encoded))
		return nil
	}

	cmd.Printf("distribution:     %s\n", report.Distribution)
	cmd.Printf("version:          %s\n", report.Version)
	if report.BuildTag != "" {
		cmd.Printf("build tag:        %s\n", report.BuildTag)
	}
	cmd.Printf("python tag:       %s\n", report.PythonTag)
	cmd.Printf("abi tag:          %s\n", report.ABITag)
	cmd.Printf("platform tag:     %s\n", report.PlatformTag)
	cmd.Printf("digest:           %s\n", report.Digest)
	cmd.Printf("size:             %d bytes\n", report.Size)
	if report.RequiresPython != "" {
		cmd.Printf("requires python:  %s\n", report.RequiresPython)
	}
	cmd.Printf("universal:        %t\n", report.Universal)
	cmd.Printf("portable linux:   %t\n", report.PortableLinux)
	return nil
}
