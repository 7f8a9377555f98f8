package pool

import (
	"context"
	"runtime"
	"sync"
)

// Task is one unit of work. It receives the context it was submitted with.
type Task func(ctx context.Context)

// WorkerPool bounds how many tasks run at once. Every submitted task runs
// exactly once: a task still waiting for a slot when ctx is cancelled runs
// immediately with the cancelled context so it can record that outcome.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewWorkerPool returns a pool running at most maxWorkers tasks at a time.
// A non-positive maxWorkers means one slot per CPU.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

// Size returns the number of concurrent slots.
func (p *WorkerPool) Size() int {
	return cap(p.sem)
}

func (p *WorkerPool) Submit(ctx context.Context, task Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			task(ctx)
		case <-ctx.Done():
			task(ctx)
		}
	}()
}

// Wait blocks until every submitted task has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
