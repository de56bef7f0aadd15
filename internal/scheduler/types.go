package scheduler

import (
	"time"

	"github.com/veldt/framepace/internal/counter"
)

// Result reports the outcome of a submission attempt.
type Result int

const (
	// Submitted means the frame was rendered and presented.
	Submitted Result = iota

	// Deferred means flow control held the frame back: the previous
	// frame's presentation timing has not been acknowledged yet.
	Deferred
)

// String returns a human-readable representation of the result
func (r Result) String() string {
	switch r {
	case Submitted:
		return "submitted"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Clock supplies the current time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Renderer produces frame contents. Rendering itself is outside the
// scheduling core; the scheduler only sequences the call between the
// outbound flush and the frame-begin counter emission.
type Renderer interface {
	DrawFrame(width, height int32, delta time.Duration) error
}

// Presenter makes the rendered frame visible (the buffer swap).
type Presenter interface {
	Present() error
}

// Conn is the slice of the transport the scheduler needs: flushing
// buffered outbound protocol state before drawing, and a full round-trip
// on the flow-control deferral path.
type Conn interface {
	Flush() error
	Sync() error
}

// FrameRecord describes one submitted frame for trace persistence.
type FrameRecord struct {
	Number      uint64
	SubmittedAt time.Time
	Disposition counter.Disposition
	Serial      counter.Serial
	Interval    time.Duration
	Render      time.Duration
}

// DeferralRecord describes one flow-control deferral.
type DeferralRecord struct {
	At            time.Time
	Disposition   counter.Disposition
	TimingSerial  counter.Serial
	InflightSerial counter.Serial
}

// Recorder receives frame and deferral records. Implementations must not
// block and must never fail scheduling; the trace store satisfies this.
type Recorder interface {
	RecordFrame(FrameRecord)
	RecordDeferral(DeferralRecord)
}
