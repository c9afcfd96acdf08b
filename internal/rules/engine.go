/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/pkg/logger"
)

// Config selects what the engine runs
type Config struct {
	// Categories restricts the run; empty means all registered analyzers
	Categories []content.Category
	// Concurrency > 1 runs analyzers in parallel with at most that many workers
	Concurrency int
}

// CategoryRun reports how one analyzer went
type CategoryRun struct {
	Category content.Category `json:"category"`
	Messages int              `json:"messages"`
	Duration time.Duration    `json:"duration"`
}

// Engine runs analyzers over a tree
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over the given registry (nil means DefaultRegistry)
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{registry: registry}
}

// Registry returns the analyzer registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

type job struct {
	analyzer Analyzer
	buf      *buffer
	duration time.Duration
}

// Run executes the selected analyzers and attaches their findings to the tree.
// Messages are merged in category priority order whether or not the run is
// parallel, so the per-node order does not depend on scheduling.
func (e *Engine) Run(ctx context.Context, tree *content.Tree, env *Env, cfg Config) ([]CategoryRun, error) {
	jobs := e.plan(cfg.Categories)

	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	logger.Debug(fmt.Sprintf("Running %d analyzers (workers=%d)", len(jobs), workers))

	if workers == 1 {
		for _, j := range jobs {
			if err := runJob(ctx, tree, env, j); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, j := range jobs {
			g.Go(func() error {
				return runJob(gctx, tree, env, j)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	runs := make([]CategoryRun, 0, len(jobs))
	for _, j := range jobs {
		n := j.buf.flush(tree)
		runs = append(runs, CategoryRun{Category: j.analyzer.Category(), Messages: n, Duration: j.duration})
		logger.Debug(fmt.Sprintf("%s analysis completed in %v: %d messages", j.analyzer.Category(), j.duration, n))
	}
	return runs, nil
}

func (e *Engine) plan(selected []content.Category) []*job {
	allowed := make(map[content.Category]bool, len(selected))
	for _, c := range selected {
		allowed[c] = true
	}

	var jobs []*job
	for _, c := range e.registry.Categories() {
		if len(allowed) > 0 && !allowed[c] {
			continue
		}
		a, ok := e.registry.Get(c)
		if !ok {
			continue
		}
		jobs = append(jobs, &job{analyzer: a, buf: &buffer{}})
	}

	for c := range allowed {
		if _, ok := e.registry.Get(c); !ok {
			logger.Warn(fmt.Sprintf("No analyzer found for category: %s", c))
		}
	}
	return jobs
}

func runJob(ctx context.Context, tree *content.Tree, env *Env, j *job) error {
	start := time.Now()
	err := j.analyzer.Analyze(ctx, tree, env, j.buf)
	j.duration = time.Since(start)
	if err != nil {
		return fmt.Errorf("%s analysis failed: %w", j.analyzer.Category(), err)
	}
	return nil
}
