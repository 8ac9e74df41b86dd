package local

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Task func(ctx context.Context) error

// Pool runs tasks on a bounded number of goroutines. The first task error
// cancels the context seen by the remaining tasks and is returned by Close.
type Pool struct {
	group *errgroup.Group
	ctx   context.Context
}

func NewPool(ctx context.Context, numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(numWorkers)
	return &Pool{group: group, ctx: ctx}
}

// Submit blocks until a worker is free.
func (p *Pool) Submit(task Task) {
	p.group.Go(func() error {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		return task(p.ctx)
	})
}

// Close waits for every submitted task and returns the first error.
func (p *Pool) Close() error {
	return p.group.Wait()
}
