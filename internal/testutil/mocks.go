// Package testutil provides hand-written mocks for the session's external
// collaborators: the windowing transport, the render/present pair, the
// counter sink and a manual clock.
package testutil

import (
	"fmt"
	"time"

	"github.com/veldt/framepace/internal/counter"
	"github.com/veldt/framepace/internal/transport"
)

// ManualClock is a Clock whose time only moves when the test advances it.
type ManualClock struct {
	Current time.Time
}

// NewManualClock starts a clock at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{Current: time.Unix(1_700_000_000, 0)}
}

func (c *ManualClock) Now() time.Time { return c.Current }

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// CallLog records the order of collaborator calls so tests can assert the
// begin -> present -> end protocol ordering.
type CallLog struct {
	Calls []string
}

func (l *CallLog) Append(format string, args ...any) {
	l.Calls = append(l.Calls, fmt.Sprintf(format, args...))
}

// LoggingSink is a counter.Sink that appends emissions to a CallLog.
type LoggingSink struct {
	Log *CallLog
}

func (s *LoggingSink) SetBasic(v counter.Serial)    { s.Log.Append("basic:%d", uint64(v)) }
func (s *LoggingSink) SetExtended(v counter.Serial) { s.Log.Append("extended:%d", uint64(v)) }

// MockRenderer implements scheduler.Renderer and scheduler.Presenter,
// optionally logging calls and failing on demand.
type MockRenderer struct {
	Log *CallLog

	DrawCalls    int
	PresentCalls int
	DrawErr      error
	PresentErr   error

	LastWidth  int32
	LastHeight int32
	LastDelta  time.Duration
}

func (m *MockRenderer) DrawFrame(width, height int32, delta time.Duration) error {
	m.DrawCalls++
	m.LastWidth = width
	m.LastHeight = height
	m.LastDelta = delta
	if m.Log != nil {
		m.Log.Append("draw")
	}
	return m.DrawErr
}

func (m *MockRenderer) Present() error {
	m.PresentCalls++
	if m.Log != nil {
		m.Log.Append("present")
	}
	return m.PresentErr
}

// PollStep scripts one Poll result for the mock transport.
type PollStep struct {
	Ready   int
	Err     error
	Advance time.Duration // applied to Clock before returning, if set
}

// CounterEmission is one SetCounter call seen by the mock transport.
type CounterEmission struct {
	ID    transport.CounterID
	Value uint64
}

// MockTransport is a scriptable in-memory transport. Events staged in
// Conn become visible to the session only after a QueuedAfterReading
// priming step, mirroring how a display connection buffers messages
// behind the readiness poll.
type MockTransport struct {
	Caps  transport.Capabilities
	Clock *ManualClock

	// Conn holds events "on the wire"; queue holds events already read
	// into the in-memory queue.
	Conn  []transport.RawEvent
	queue []transport.RawEvent

	// PollScript is consumed one step per Poll call. When exhausted,
	// Poll reports readiness based on staged events.
	PollScript []PollStep
	PollCalls  int

	FlushCalls int
	SyncCalls  int
	FlushErr   error
	SyncErr    error

	Counters []CounterEmission
	Echoes   [][2]uint64
	Closed   bool
}

func NewMockTransport(clock *ManualClock) *MockTransport {
	return &MockTransport{
		Caps:  transport.Capabilities{ExtendedSync: true},
		Clock: clock,
	}
}

func (m *MockTransport) Capabilities() transport.Capabilities { return m.Caps }

func (m *MockTransport) Poll(timeout time.Duration) (int, error) {
	m.PollCalls++

	if len(m.PollScript) > 0 {
		step := m.PollScript[0]
		m.PollScript = m.PollScript[1:]
		if step.Advance > 0 && m.Clock != nil {
			m.Clock.Advance(step.Advance)
		}
		return step.Ready, step.Err
	}

	if len(m.Conn) > 0 || len(m.queue) > 0 {
		return 1, nil
	}

	// Nothing staged: the timeout elapses.
	if m.Clock != nil && timeout > 0 {
		m.Clock.Advance(timeout)
	}
	return 0, nil
}

func (m *MockTransport) Queued(mode transport.QueueMode) int {
	if mode == transport.QueuedAfterReading {
		m.queue = append(m.queue, m.Conn...)
		m.Conn = nil
	}
	return len(m.queue)
}

func (m *MockTransport) NextEvent() (transport.RawEvent, error) {
	if len(m.queue) == 0 {
		return transport.RawEvent{}, transport.ErrQueueEmpty
	}
	ev := m.queue[0]
	m.queue = m.queue[1:]
	return ev, nil
}

func (m *MockTransport) Flush() error {
	m.FlushCalls++
	return m.FlushErr
}

func (m *MockTransport) Sync() error {
	m.SyncCalls++
	return m.SyncErr
}

func (m *MockTransport) SetCounter(c transport.CounterID, value uint64) error {
	m.Counters = append(m.Counters, CounterEmission{ID: c, Value: value})
	return nil
}

func (m *MockTransport) EchoProbe(timestamp, token uint64) error {
	m.Echoes = append(m.Echoes, [2]uint64{timestamp, token})
	return nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// ExtendedValues returns the values emitted on the extended counter.
func (m *MockTransport) ExtendedValues() []uint64 {
	var vals []uint64
	for _, e := range m.Counters {
		if e.ID == transport.ExtendedCounter {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

// BasicValues returns the values emitted on the basic counter.
func (m *MockTransport) BasicValues() []uint64 {
	var vals []uint64
	for _, e := range m.Counters {
		if e.ID == transport.BasicCounter {
			vals = append(vals, e.Value)
		}
	}
	return vals
}
