package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting to a pool that was shut down or drained
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produces
type Result interface {
	GetError() error
}

type indexedJob struct {
	seq int
	job Job
}

type indexedResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of goroutines and returns results
// in submission order
type Pool struct {
	workers int
	jobs    chan indexedJob
	results chan indexedResult
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// mu is held for reading while a job is being queued so the job
	// channel is never closed under a pending send
	mu        sync.RWMutex
	closed    bool
	submitted atomic.Int64

	collected map[int]Result
	collectWg sync.WaitGroup
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx; cancelling ctx stops the workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:   workers,
		jobs:      make(chan indexedJob, workers*2),
		results:   make(chan indexedResult, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		collected: make(map[int]Result),
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.collectWg.Add(1)
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *Pool) collect() {
	defer p.collectWg.Done()
	for r := range p.results {
		p.collected[r.seq] = r.result
	}
}

func (p *Pool) work() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- indexedResult{seq: j.seq, result: j.job.Execute(p.ctx)}
		}
	}
}

// Submit queues a job. It blocks while the queue is full and fails once
// the pool is closed.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	seq := int(p.submitted.Add(1) - 1)
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	case p.jobs <- indexedJob{seq: seq, job: job}:
		return nil
	}
}

// Wait stops accepting jobs, waits for the queued ones and returns their
// results in submission order. Jobs dropped by a shutdown have a nil slot.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()

	results := make([]Result, p.submitted.Load())
	for seq, r := range p.collected {
		results[seq] = r
	}
	return results
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.close()
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()
}

func (p *Pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
