package endpoint

import "sync"

// executor is a single-worker task queue — the "strand"/serial executor
// spec §4.E and §5 require for serializing write-pipeline enqueues into
// one linear order. It is the teacher's pool.Pool primitive fixed at
// capacity 1: a worker pool of size 1 already behaves as a strand, the
// teacher just never runs it at that capacity.
type executor struct {
	wg    sync.WaitGroup
	queue chan func()
}

// newExecutor starts the worker goroutine and returns a ready executor.
func newExecutor() *executor {
	e := &executor{queue: make(chan func(), 64)}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *executor) run() {
	defer e.wg.Done()
	for task := range e.queue {
		task()
	}
}

// submit enqueues task to run on the executor's single worker, preserving
// the order submit was called in.
func (e *executor) submit(task func()) {
	e.queue <- task
}

// close stops accepting new tasks and waits for the worker to drain.
func (e *executor) close() {
	close(e.queue)
	e.wg.Wait()
}
