package client

import (
	"sync"

	"github.com/ValentinKolb/eKV/lib/store"
)

// executor runs tasks one after another on a single dedicated goroutine.
// Callers of run block until their task has finished.
type executor struct {
	tasks chan func()
	done  chan struct{} // closed when the worker goroutine has exited

	mu     sync.RWMutex // protects closed and sending on tasks
	closed bool
}

// taskResult is the outcome of one task
type taskResult struct {
	err      error
	panicked bool
	panicVal interface{}
}

// newExecutor creates an executor and starts its worker goroutine
func newExecutor() *executor {
	e := &executor{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go e.loop()
	return e
}

// loop is the worker goroutine
func (e *executor) loop() {
	defer close(e.done)
	for task := range e.tasks {
		task()
	}
}

// run executes fn on the worker goroutine and waits for it.
// A panic inside fn is re-raised on the calling goroutine.
// After shutdown run returns store.ErrClientClosed.
func (e *executor) run(fn func() error) error {
	result := make(chan taskResult, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- taskResult{panicked: true, panicVal: r}
			}
		}()
		result <- taskResult{err: fn()}
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return store.ErrClientClosed
	}
	e.tasks <- task
	e.mu.RUnlock()

	res := <-result
	if res.panicked {
		panic(res.panicVal)
	}
	return res.err
}

// shutdown stops accepting tasks, lets the queued ones finish and waits for the
// worker goroutine to exit. It returns false if the executor was already shut down.
func (e *executor) shutdown() bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	<-e.done
	return true
}
