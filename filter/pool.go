package filter

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolStopped is returned when work is submitted to a stopped pool
var ErrPoolStopped = errors.New("worker pool is stopped")

// workerPool implements WorkerPool with bounded concurrency
type workerPool struct {
	workers  int
	workChan chan func()
	quit     chan struct{}
	stopOnce sync.Once

	// mu keeps Stop from closing quit while a Submit is queueing work, so
	// every accepted func runs
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	pool := &workerPool{
		workers:  workers,
		workChan: make(chan func(), workers*2),
		quit:     make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker runs queued work until the pool stops. Work still queued at that
// point is drained so no submitter waits forever.
func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case work := <-p.workChan:
			if work != nil {
				work()
			}
		case <-p.quit:
			for {
				select {
				case work := <-p.workChan:
					if work != nil {
						work()
					}
				default:
					return
				}
			}
		}
	}
}

// Submit queues work, blocking while the queue is full. Work it accepts is
// run even if Stop is called right after.
func (p *workerPool) Submit(ctx context.Context, work func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully stops the worker pool
func (p *workerPool) Stop(ctx context.Context) error {
	var err error

	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.quit)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})

	return err
}
