package processor

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Executor runs batches of independent tasks on a bounded number of
// goroutines. Its width is fixed when it is created.
type Executor struct {
	workers int
}

// NewExecutor creates an executor with the given number of workers. A value
// <= 0 uses one worker per CPU.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers}
}

// Workers returns the number of workers.
func (e *Executor) Workers() int {
	return e.workers
}

// Run runs tasks and waits for them to finish. After the first task fails no
// further tasks are started, and that first error is returned. Tasks already
// running are left to complete.
func (e *Executor) Run(ctx context.Context, tasks []func(ctx context.Context) error) error {
	p := pool.New().
		WithMaxGoroutines(e.workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for _, task := range tasks {
		p.Go(func(poolCtx context.Context) error {
			if err := poolCtx.Err(); err != nil {
				return err
			}
			return task(ctx)
		})
	}
	return p.Wait()
}
