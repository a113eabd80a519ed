package endpoint

import (
	"sync"

	"github.com/flowmq/endpoint/transport"
)

// writeTask is one queued asynchronous write awaiting its turn on the
// wire, plus the completion handler to invoke once it lands.
type writeTask struct {
	buf  []byte
	done func(error)
}

// writePipeline implements component E. It enforces at-most-one
// outstanding asynchronous write at a time while letting callers enqueue
// freely from any goroutine, and lets synchronous writes share the same
// underlying wire-serialization so the two modes never interleave bytes
// mid-packet (spec §4.E's "mixing rule").
type writePipeline struct {
	stream transport.Stream
	exec   *executor

	mu      sync.Mutex
	queue   []writeTask
	writing bool

	// wireMu serializes the actual Stream.WriteAll calls, whether they
	// originate from the async drain loop or a synchronous caller.
	wireMu sync.Mutex
}

func newWritePipeline(stream transport.Stream) *writePipeline {
	return &writePipeline{
		stream: stream,
		exec:   newExecutor(),
	}
}

// EnqueueAsync enqueues buf for asynchronous write. Enqueue itself is
// serialized through the executor so concurrent callers observe a single
// linear order; if no write is currently in flight, this call kicks one
// off. done, if non-nil, runs after buf's bytes are fully on the wire or
// the write failed.
func (wp *writePipeline) EnqueueAsync(buf []byte, done func(error)) {
	wp.exec.submit(func() {
		wp.mu.Lock()
		wp.queue = append(wp.queue, writeTask{buf: buf, done: done})
		if wp.writing {
			wp.mu.Unlock()
			return
		}
		wp.writing = true
		task := wp.queue[0]
		wp.queue = wp.queue[1:]
		wp.mu.Unlock()

		go wp.drain(task)
	})
}

// drain writes task and then, on success, pops and issues the next queued
// write; on error it clears the queue entirely, calling each dropped
// task's done with the same error — the receive loop will observe the
// resulting transport failure and tear down the connection.
func (wp *writePipeline) drain(task writeTask) {
	err := wp.writeToWire(task.buf)
	if task.done != nil {
		task.done(err)
	}

	wp.mu.Lock()
	if err != nil {
		dropped := wp.queue
		wp.queue = nil
		wp.writing = false
		wp.mu.Unlock()
		for _, t := range dropped {
			if t.done != nil {
				t.done(err)
			}
		}
		return
	}
	if len(wp.queue) == 0 {
		wp.writing = false
		wp.mu.Unlock()
		return
	}
	next := wp.queue[0]
	wp.queue = wp.queue[1:]
	wp.mu.Unlock()

	wp.drain(next)
}

// WriteSync blocks until buf is fully written, sharing wire serialization
// with the async path so a concurrent async write can't interleave with
// it mid-packet.
func (wp *writePipeline) WriteSync(buf []byte) error {
	return wp.writeToWire(buf)
}

func (wp *writePipeline) writeToWire(buf []byte) error {
	wp.wireMu.Lock()
	defer wp.wireMu.Unlock()
	return wp.stream.WriteAll(buf)
}

// close stops the pipeline's executor after it has run every enqueue
// already submitted. Writes already queued are still written by the
// drain goroutine.
func (wp *writePipeline) close() {
	wp.exec.close()
}
