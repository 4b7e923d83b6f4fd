package network

import (
	"context"
	"sync"

	"github.com/roach88/tradefin/internal/ledger"
)

// envelope is one queued request and the channel its reply goes to.
type envelope struct {
	ctx   context.Context
	from  ledger.Party
	msg   Message
	reply chan reply
}

type reply struct {
	msg Message
	err error
}

// queue is a thread-safe FIFO of envelopes.
//
// The queue is unbounded so that senders never block on a slow receiver;
// the sender's context bounds how long it waits for the reply instead.
//
// A buffered signal channel of size 1 coalesces wake-ups and lets the
// mailbox loop wait on it together with ctx.Done().
type queue struct {
	mu     sync.Mutex
	items  []envelope
	closed bool
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{
		items:  make([]envelope, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds e to the back of the queue. Returns false if closed.
func (q *queue) Enqueue(e envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front envelope without blocking.
func (q *queue) TryDequeue() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return envelope{}, false
	}
	e := q.items[0]
	// Release the slot so the transaction it references can be collected.
	q.items[0] = envelope{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return e, true
}

// Wait returns the channel signalled when envelopes may be available. It
// is closed when the queue closes.
func (q *queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued envelopes.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further enqueues and wakes the consumer.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
