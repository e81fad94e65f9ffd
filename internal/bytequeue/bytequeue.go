// Package bytequeue implements a single-producer/single-consumer blocking
// ring buffer of bytes, the pacer's hand-off to the top-level MIDI parser
// loop. Read blocks until a byte is available rather than busy-spinning.
package bytequeue

import "sync"

// Queue is a fixed-capacity circular byte buffer with a blocking Read. The
// read/write cursor bookkeeping mirrors a classic ring buffer: two indices
// into a backing array, wrapping on overflow.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	buf               []byte
	readPos, writePos int
	n                 int

	closed bool
}

// New creates a queue with the given capacity in bytes.
func New(capacity int) *Queue {
	q := &Queue{buf: make([]byte, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Write appends p to the queue. The pacer paces its own writes via sleeps,
// so the queue rarely fills; when it does, Write waits for the consumer to
// free space rather than dropping data. Returns the number of bytes
// written, which is less than len(p) only if the queue was closed
// mid-write.
func (q *Queue) Write(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	written := 0
	for written < len(p) {
		if q.closed {
			return written
		}

		free := len(q.buf) - q.n
		if free == 0 {
			// No room: wait for Read to consume a byte (it broadcasts on
			// the same condition) or for Close, then re-check.
			q.notEmpty.Wait()
			continue
		}

		n := len(p) - written
		if n > free {
			n = free
		}

		if q.writePos+n > len(q.buf) {
			n1 := len(q.buf) - q.writePos
			n2 := n - n1
			copy(q.buf[q.writePos:], p[written:written+n1])
			copy(q.buf[:n2], p[written+n1:written+n])
			q.writePos = n2
		} else {
			copy(q.buf[q.writePos:q.writePos+n], p[written:written+n])
			q.writePos += n
		}

		q.n += n
		written += n
		q.notEmpty.Signal()
	}

	return written
}

// Read blocks until at least one byte is available and returns it. Read
// returns ok=false only once the queue has been closed and drained.
func (q *Queue) Read() (b byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.n == 0 {
		if q.closed {
			return 0, false
		}
		q.notEmpty.Wait()
	}

	b = q.buf[q.readPos]
	q.readPos = (q.readPos + 1) % len(q.buf)
	q.n--
	q.notEmpty.Broadcast() // wakes a Write waiting for free space
	return b, true
}

// Close marks the queue closed and wakes any blocked reader. Once closed
// and drained, Read returns ok=false; writes after Close are no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}
