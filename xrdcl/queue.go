package xrdcl

import "sync/atomic"

// OutboundQueue is the lock-free single-producer/single-consumer ring
// buffer spec.md §9 calls for at the Stream→Connection boundary: "if the
// Stream must be called from another thread ... the boundary is a
// lock-free SPSC queue drained under OnReadyToWrite." One goroutine
// (the Stream, or whatever submits outgoing traffic) calls Push; exactly
// one goroutine (the Connection's reactor loop, inside OnReadyToWrite)
// calls Pop. Neither side takes a mutex.
type OutboundQueue struct {
	buf  []*Message
	mask uint64
	head atomic.Uint64 // next slot to write (producer-owned)
	tail atomic.Uint64 // next slot to read (consumer-owned)
}

// NewOutboundQueue builds a queue with the given capacity, rounded up to
// the next power of two.
func NewOutboundQueue(capacity int) *OutboundQueue {
	n := 1
	for n < capacity {
		n <<= 1
	}
	if n == 0 {
		n = 1
	}
	return &OutboundQueue{
		buf:  make([]*Message, n),
		mask: uint64(n - 1),
	}
}

// Push enqueues msg. It reports false if the queue is full (backpressure:
// the caller should hold the message and retry, rather than the queue
// silently growing or dropping it).
func (q *OutboundQueue) Push(msg *Message) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail >= uint64(len(q.buf)) {
		return false
	}
	q.buf[head&q.mask] = msg
	q.head.Store(head + 1)
	return true
}

// Pop dequeues the oldest message, or (nil, false) if the queue is empty.
// Only the single designated consumer (the Connection's OnReadyToWrite
// path) may call this.
func (q *OutboundQueue) Pop() (*Message, bool) {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail == head {
		return nil, false
	}
	msg := q.buf[tail&q.mask]
	q.buf[tail&q.mask] = nil
	q.tail.Store(tail + 1)
	return msg, true
}

// Len reports the current number of queued messages. It is a snapshot,
// meaningful only as an approximation under concurrent use.
func (q *OutboundQueue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}
