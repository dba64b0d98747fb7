package worker

import (
	"context"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// Pool is a fixed-size worker pool draining a buffered job channel.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewPool[T any](numWorkers int, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processor(ctx, job)
		}
	}
}

// Submit enqueues a job, blocking while the buffer is full. It reports
// false if ctx is cancelled first, so producers never deadlock against
// workers that have already shut down.
func (p *Pool[T]) Submit(ctx context.Context, job T) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
