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

// Package main generates a JSON schema from the wheelwright manifest
// structure. The generated schema enables IDE autocompletion and validation
// for manifest YAML files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cowdogmoo/wheelwright/config"
	"github.com/cowdogmoo/wheelwright/manifest"
	"github.com/invopop/jsonschema"
)

var (
	output = flag.String("o", "schema/wheelwright-manifest.json", "Output path for JSON schema")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            false,
		AllowAdditionalProperties: false,
	}

	// Type-level doc comments become schema descriptions; field-level
	// descriptions come from the reflector directly.
	if err := reflector.AddGoComments("github.com/cowdogmoo/wheelwright", "./"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to extract type-level comments: %v\n", err)
	}

	schema := reflector.Reflect(&manifest.Manifest{})

	schema.ID = jsonschema.ID("https://wheelwright.dev/schema/manifest.json")
	schema.Title = "Wheelwright Manifest"
	schema.Description = "Schema for wheelwright multi-project build manifests"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"version": "1",
			"defaults": map[string]interface{}{
				"python_version": "3.12",
				"output_dir":     "dist",
				"isolation":      "container",
			},
			"projects": []interface{}{
				map[string]interface{}{
					"name":   "requests",
					"source": "https://github.com/psf/requests.git",
					"ref":    "v2.32.0",
				},
				map[string]interface{}{
					"name":   "native-extension",
					"source": "./packages/native-extension",
					"container": map[string]interface{}{
						"platform":     "manylinux",
						"architecture": "aarch64",
						"repair_wheel": true,
					},
				},
			},
		},
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	dir := filepath.Dir(*output)
	if err := os.MkdirAll(dir, config.DirPermReadWriteExec); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Append newline to satisfy end-of-file-fixer
	data = append(data, '\n')

	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	fmt.Printf("✓ Generated JSON schema: %s\n", *output)
	return nil
}
