// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines. The event loop uses it
// to run blocking stream reads and writes away from the loop goroutine.

package concurrency

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("executor: closed")

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines fed by one queue.
type Executor struct {
	queue      chan TaskFunc
	closeCh    chan struct{}
	closed     atomic.Bool
	numWorkers int32
	wg         sync.WaitGroup
	logger     *slog.Logger

	// statistics
	totalTasks     int64
	completedTasks int64
}

// NewExecutor creates an Executor with numWorkers goroutines.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int, logger *slog.Logger) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		queue:      make(chan TaskFunc, numWorkers*16),
		closeCh:    make(chan struct{}),
		numWorkers: int32(numWorkers),
		logger:     logger,
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.worker(i)
	}
	return e
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrExecutorClosed once Close has been called.
func (e *Executor) Submit(task func()) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	atomic.AddInt64(&e.totalTasks, 1)
	select {
	case e.queue <- task:
		return nil
	case <-e.closeCh:
		atomic.AddInt64(&e.totalTasks, -1)
		return ErrExecutorClosed
	}
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	return int(atomic.LoadInt32(&e.numWorkers))
}

// Close stops accepting tasks, lets queued ones finish and waits for the
// workers to exit.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.closeCh)
	}
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := atomic.LoadInt64(&e.totalTasks)
	done := atomic.LoadInt64(&e.completedTasks)
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"num_workers":     int64(e.NumWorkers()),
	}
}

func (e *Executor) worker(id int) {
	defer func() {
		atomic.AddInt32(&e.numWorkers, -1)
		e.wg.Done()
	}()
	for {
		select {
		case task := <-e.queue:
			e.executeTask(id, task)
		case <-e.closeCh:
			for {
				select {
				case task := <-e.queue:
					e.executeTask(id, task)
				default:
					return
				}
			}
		}
	}
}

// executeTask runs the task and updates statistics, recovering from panics.
func (e *Executor) executeTask(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("executor: task panicked", "worker", id, "panic", r)
		}
		atomic.AddInt64(&e.completedTasks, 1)
	}()
	task()
}
