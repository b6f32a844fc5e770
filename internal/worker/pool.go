// Package worker provides the bounded fan-out machinery for harvesting:
// a fixed-size worker pool, a per-host request pacer, and the orchestrator
// that runs one harvest job per source under a shared concurrency cap.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers. Each job produces its
// result privately; a single collector goroutine gathers them, so no
// worker ever blocks on a full result buffer and nothing downstream
// needs locking.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	collected []Result
	wg        sync.WaitGroup
	done      chan struct{}
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		done:    make(chan struct{}),
	}
}

// Start launches the workers and the result collector. Jobs run until the
// queue is closed by Wait; there is no mid-run cancellation beyond the
// context handed to each job.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- job.Execute(ctx)
			}
		}()
	}

	go func() {
		for result := range p.results {
			p.collected = append(p.collected, result)
		}
		close(p.done)
	}()
}

// Submit queues a job for execution.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Wait closes the queue, blocks until every submitted job has resolved
// and returns all results. Order follows completion, not submission.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	<-p.done
	return p.collected
}
