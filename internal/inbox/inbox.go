// Package inbox provides a small typed channel queue with non-blocking
// and bounded-wait receives. The simulated compositor uses it as the wire
// between its goroutine and the transport's receive path.
package inbox

import (
	"sync/atomic"
	"time"
)

// Inbox is a typed buffered queue. Sends never block; receives are either
// non-blocking or bounded by an explicit timeout, matching the session
// loop's rule that the readiness wait is the only suspension point.
type Inbox[T any] struct {
	ch chan T

	sent     atomic.Int64
	received atomic.Int64
	dropped  atomic.Int64
}

// Stats is a snapshot of inbox counters.
type Stats struct {
	TotalSent     int64
	TotalReceived int64
	TotalDropped  int64
	CurrentDepth  int
}

// New creates an inbox holding at most bufferSize queued items.
func New[T any](bufferSize int) *Inbox[T] {
	return &Inbox[T]{
		ch: make(chan T, bufferSize),
	}
}

// Send enqueues an item without blocking. When the buffer is full the
// item is dropped and Send returns false; the sender side (a compositor)
// never waits on a slow client.
func (ib *Inbox[T]) Send(item T) bool {
	select {
	case ib.ch <- item:
		ib.sent.Add(1)
		return true
	default:
		ib.dropped.Add(1)
		return false
	}
}

// TryReceive pops an item without blocking. Returns false when empty.
func (ib *Inbox[T]) TryReceive() (T, bool) {
	select {
	case item := <-ib.ch:
		ib.received.Add(1)
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// ReceiveTimeout waits up to timeout for an item. Returns false when the
// timeout elapses with nothing queued. A zero or negative timeout behaves
// like TryReceive.
func (ib *Inbox[T]) ReceiveTimeout(timeout time.Duration) (T, bool) {
	if timeout <= 0 {
		return ib.TryReceive()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-ib.ch:
		ib.received.Add(1)
		return item, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued items.
func (ib *Inbox[T]) Len() int {
	return len(ib.ch)
}

// GetStats returns a snapshot of the inbox counters.
func (ib *Inbox[T]) GetStats() Stats {
	return Stats{
		TotalSent:     ib.sent.Load(),
		TotalReceived: ib.received.Load(),
		TotalDropped:  ib.dropped.Load(),
		CurrentDepth:  len(ib.ch),
	}
}
