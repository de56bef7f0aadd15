// Package transport defines the boundary to the windowing transport that
// carries compositor messages and synchronization counter updates. The
// session core is written against the Transport interface; real display
// connections and the in-process simulator both sit behind it.
package transport

import (
	"errors"
	"time"
)

// Op identifies the wire-level type of an inbound compositor message.
type Op uint32

const (
	OpNone Op = iota

	// OpSyncRequest is a compositor resize request carrying a new
	// synchronization serial and the extended-sync flag.
	OpSyncRequest

	// OpPing is a liveness probe that must be echoed back unmodified.
	OpPing

	// OpFrameDrawn acknowledges that a frame's contents were picked up.
	OpFrameDrawn

	// OpFrameTimings acknowledges a frame's presentation timing.
	OpFrameTimings

	// OpConfigure notifies a surface size change.
	OpConfigure
)

// RawEvent is one inbound compositor message before decoding. The data
// words are packed per message type the way the windowing transport packs
// client message payloads; internal/protocol owns the unpacking.
type RawEvent struct {
	Op     Op
	Serial uint64
	Data   [5]uint64
}

// QueueMode selects how Queued counts buffered events.
type QueueMode int

const (
	// QueuedAlready counts only events already in the in-memory queue,
	// without touching the connection.
	QueuedAlready QueueMode = iota

	// QueuedAfterReading first drains whatever the connection has
	// buffered into the in-memory queue, then counts. This is the
	// priming step the wait loop relies on: the connection may buffer
	// messages invisibly to the readiness poll.
	QueuedAfterReading
)

// CounterID selects one of the two compositor-facing sync counters.
type CounterID int

const (
	// BasicCounter receives the raw resize serial once per completed
	// resize cycle.
	BasicCounter CounterID = iota

	// ExtendedCounter receives the 3-phase per-frame sequence.
	ExtendedCounter
)

// Capabilities reports what the compositor side advertises.
type Capabilities struct {
	ExtendedSync bool
}

// Standard errors
var (
	// ErrInterrupted reports a readiness wait cut short by a signal; the
	// caller retries the wait.
	ErrInterrupted = errors.New("transport: wait interrupted")

	// ErrQueueEmpty reports a NextEvent call with nothing queued.
	ErrQueueEmpty = errors.New("transport: event queue empty")

	// ErrClosed reports use of a closed transport.
	ErrClosed = errors.New("transport: closed")
)

// Transport is the connection to the compositor. Implementations are used
// from a single loop; none of the methods need to be goroutine-safe.
type Transport interface {
	// Capabilities reports compositor support, probed once at session start.
	Capabilities() Capabilities

	// Poll blocks until the connection is readable or the timeout
	// elapses, returning the number of ready descriptors (0 or 1).
	// A zero timeout performs a non-blocking readiness check.
	// Returns ErrInterrupted when the wait was cut short by a signal.
	Poll(timeout time.Duration) (int, error)

	// Queued returns the number of buffered inbound events per mode.
	Queued(mode QueueMode) int

	// NextEvent pops the next buffered event. It never blocks; callers
	// must confirm availability via Queued first. Returns ErrQueueEmpty
	// otherwise.
	NextEvent() (RawEvent, error)

	// Flush pushes buffered outbound protocol state to the compositor.
	Flush() error

	// Sync performs a full round-trip, draining both directions.
	Sync() error

	// SetCounter emits a synchronization counter value.
	SetCounter(c CounterID, value uint64) error

	// EchoProbe echoes a liveness probe back on the control channel.
	EchoProbe(timestamp, token uint64) error

	// Close releases the connection.
	Close() error
}
