package utils

import (
	"sync"
)

// Job represents a task to be executed by a worker.
type Job struct {
	Task func()
}

// WorkerPool runs submitted tasks on a fixed number of goroutines, in
// submission order. The fused platform uses it as the context its callbacks
// are dispatched on.
//
// Submit never blocks: jobs queue up without bound, so a task may submit
// further tasks even when every worker is busy.
type WorkerPool struct {
	workers   int
	waitGroup sync.WaitGroup

	mu     sync.Mutex
	ready  *sync.Cond
	queue  []Job
	closed bool
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
// queueSize preallocates room for that many pending jobs.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < workers {
		queueSize = workers
	}
	pool := &WorkerPool{
		workers: workers,
		queue:   make([]Job, 0, queueSize),
	}
	pool.ready = sync.NewCond(&pool.mu)

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes jobs until the pool is shut down and drained.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for {
		wp.mu.Lock()
		for len(wp.queue) == 0 && !wp.closed {
			wp.ready.Wait()
		}
		if len(wp.queue) == 0 {
			wp.mu.Unlock()
			return
		}
		job := wp.queue[0]
		wp.queue[0] = Job{}
		wp.queue = wp.queue[1:]
		wp.mu.Unlock()

		job.Task()
	}
}

// Submit adds a new job to the worker pool. It returns false once the pool
// has been shut down; the task is not run in that case.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return false
	}
	wp.queue = append(wp.queue, Job{Task: task})
	wp.ready.Signal()
	return true
}

// Shutdown stops accepting jobs, waits for queued jobs to finish and then
// returns. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	wp.ready.Broadcast()
	wp.mu.Unlock()
	wp.waitGroup.Wait()
}
