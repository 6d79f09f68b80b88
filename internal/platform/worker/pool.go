// Package worker runs batches of named tasks with bounded concurrency.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of work.
type Task struct {
	// Name identifies the task in results and logs.
	Name string
	// Run does the work. It must honor context cancellation.
	Run func(ctx context.Context) error
}

// Result records the outcome of a single task.
type Result struct {
	// Name is the name of the task that produced this result.
	Name string
	// Duration is how long the task ran. Zero if the task never started.
	Duration time.Duration
	// Err is the task error, or the group's context error for tasks
	// skipped after a stop.
	Err error
}

// Config controls pool behavior.
type Config struct {
	// Limit caps how many tasks run at once. Zero or negative means
	// one at a time.
	Limit int
	// StopOnError skips the remaining tasks after the first failure.
	StopOnError bool
}

// Pool executes task batches with bounded concurrency. A Pool holds no
// goroutines between runs and is safe for reuse.
type Pool struct {
	limit       int
	stopOnError bool
}

// New creates a pool with the given configuration.
func New(cfg Config) *Pool {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 1
	}
	return &Pool{
		limit:       limit,
		stopOnError: cfg.StopOnError,
	}
}

// Limit returns the pool's concurrency cap.
func (p *Pool) Limit() int {
	return p.limit
}

// Run executes all tasks and returns one result per task, in task order.
// It blocks until every started task has finished. With StopOnError set,
// a failure cancels the batch and tasks that never started report the
// cancellation error instead of running.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Name: task.Name, Err: err}
				return nil
			}

			start := time.Now()
			err := task.Run(gctx)
			results[i] = Result{
				Name:     task.Name,
				Duration: time.Since(start),
				Err:      err,
			}

			if err != nil && p.stopOnError {
				return err
			}
			return nil
		})
	}

	// Per-task errors live in results; the group error only drives
	// cancellation.
	_ = g.Wait()

	return results
}

// FirstError returns the first task error in task order, or nil if
// every task succeeded.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
