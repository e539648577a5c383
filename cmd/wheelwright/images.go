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
	"sort"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/isolation"
	"github.com/spf13/cobra"
)

var (
	imagesPull    bool
	imagesInspect string
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List the known build images",
	Long: `List the build images wheelwright knows about, keyed by platform
family and architecture. The same key always resolves to the same image
reference.`,
	Args: cobra.NoArgs,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().BoolVar(&imagesPull, "pull", false, "Pull every listed image")
	imagesCmd.Flags().StringVar(&imagesInspect, "inspect", "", "Show details for one image (key or reference)")
	imagesCmd.MarkFlagsMutuallyExclusive("pull", "inspect")
}

func runImages(cmd *cobra.Command, _ []string) error {
	if imagesInspect != "" {
		return inspectImage(cmd, imagesInspect)
	}

	images := isolation.ListImages()

	keys := make([]string, 0, len(images))
	for key := range images {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	width := 0
	for _, key := range keys {
		if len(key) > width {
			width = len(key)
		}
	}
	for _, key := range keys {
		cmd.Printf("%-*s  %s\n", width, key, images[key])
	}

	if !imagesPull {
		return nil
	}

	backend := isolation.NewContainerBackend(isolation.ContainerConfig{})
	if !backend.CheckAvailable(cmd.Context()) {
		return errors.Isolationf("container runtime is not available: cannot pull images")
	}
	for _, key := range keys {
		if err := backend.EnsureImageAvailable(cmd.Context(), images[key]); err != nil {
			return err
		}
	}
	return nil
}

// inspectImage resolves a key or reference and prints a summary of the
// locally-present image.
func inspectImage(cmd *cobra.Command, image string) error {
	reference, err := isolation.SelectImage(image, isolation.PlatformAuto, "")
	if err != nil {
		return err
	}

	backend := isolation.NewContainerBackend(isolation.ContainerConfig{})
	if !backend.CheckAvailable(cmd.Context()) {
		return errors.Isolationf("container runtime is not available: cannot inspect images")
	}

	info, err := backend.InspectImage(cmd.Context(), reference)
	if err != nil {
		return err
	}

	cmd.Printf("reference:     %s\n", reference)
	cmd.Printf("id:            %s\n", info.ID)
	cmd.Printf("created:       %s\n", info.Created)
	cmd.Printf("size:          %d bytes\n", info.Size)
	cmd.Printf("architecture:  %s\n", info.Architecture)
	cmd.Printf("os:            %s\n", info.OS)
	return nil
}
