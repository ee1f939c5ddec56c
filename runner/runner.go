// Package runner bounds how many pipeline executions run at the same time.
package runner

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/kgpgpt/graph"
)

// Runner executes graphs under a concurrency limit. Callers beyond the limit
// wait until a slot frees up or their context ends.
type Runner struct {
	maxConcurrency int
	semaphore      chan struct{}
}

// New creates a runner. A non-positive limit falls back to 16.
func New(maxConcurrency int) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &Runner{
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

func (r *Runner) acquire(ctx context.Context) error {
	select {
	case r.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) release() { <-r.semaphore }

// RunGraph executes g once a slot is available.
func (r *Runner) RunGraph(ctx context.Context, g *graph.Graph, initialState graph.State) (graph.State, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	return g.Execute(ctx, initialState)
}

// Do runs fn once a slot is available. A panic inside fn is returned as an
// error so one bad request cannot take the process down.
func (r *Runner) Do(ctx context.Context, fn func(context.Context) error) (err error) {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in task: %v", p)
		}
	}()
	return fn(ctx)
}

// InFlight reports how many slots are taken.
func (r *Runner) InFlight() int { return len(r.semaphore) }

// Capacity reports the configured limit.
func (r *Runner) Capacity() int { return r.maxConcurrency }
