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
	"context"
	"strings"

	"github.com/cowdogmoo/wheelwright/errors"
	"github.com/cowdogmoo/wheelwright/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is the default number of parallel project builds.
const DefaultMaxConcurrency = 2

// Pipeline coordinates multi-project builds with controlled concurrency.
type Pipeline struct {
	maxConcurrency int

	// newEngine builds the engine for one project. Tests swap it to
	// inject fake backends.
	newEngine func(cfg Config) *Engine
}

// NewPipeline creates a pipeline with the given concurrency limit.
func NewPipeline(maxConcurrency int) *Pipeline {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Pipeline{
		maxConcurrency: maxConcurrency,
		newEngine:      NewEngine,
	}
}

// ProjectResult pairs a project's config with its build outcome. Exactly
// one of Result and Err is meaningful.
type ProjectResult struct {
	Config Config
	Result *Result
	Err    error
}

// BuildAll builds every project, running up to the concurrency limit in
// parallel. Every project runs to completion; failures are collected
// per project rather than aborting the batch, and the returned error
// summarizes them.
func (p *Pipeline) BuildAll(ctx context.Context, configs []Config) ([]ProjectResult, error) {
	if len(configs) == 0 {
		return nil, errors.Configf("no projects to build")
	}

	logging.InfoContext(ctx, "Building %d project(s)", len(configs))

	g := new(errgroup.Group)
	g.SetLimit(p.maxConcurrency)

	results := make([]ProjectResult, len(configs))
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			results[i].Config = cfg
			result, err := p.newEngine(cfg).Build(ctx)
			results[i].Result = result
			results[i].Err = err
			if err != nil {
				logging.ErrorContext(ctx, "Build failed for %s: %v", cfg.Source, err)
			}
			return nil
		})
	}
	// goroutines never return errors; failures live in results
	_ = g.Wait()

	var failed []string
	for i := range results {
		if results[i].Err != nil {
			failed = append(failed, results[i].Config.Source)
		}
	}
	if len(failed) > 0 {
		return results, errors.Buildf(
			"%d of %d project build(s) failed: %s",
			len(failed), len(configs), strings.Join(failed, ", "))
	}

	logging.InfoContext(ctx, "All %d project build(s) succeeded", len(configs))
	return results, nil
}
