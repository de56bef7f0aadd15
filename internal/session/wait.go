package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/veldt/framepace/internal/transport"
)

// Outcome is the result of one wait iteration.
type Outcome int

const (
	// Retry means the wait was interrupted; the caller re-evaluates.
	Retry Outcome = iota

	// FrameReady means the frame deadline elapsed with no inbound data.
	FrameReady

	// EventReady means inbound protocol data is buffered and ready.
	EventReady
)

// String returns a human-readable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Retry:
		return "retry"
	case FrameReady:
		return "frame_ready"
	case EventReady:
		return "event_ready"
	default:
		return "unknown"
	}
}

// wait blocks until either the frame deadline passes or an inbound
// message is confirmed buffered, never longer than the remaining time to
// the deadline. A blocking next-event read must never run without a
// priming step first: the transport may buffer messages invisibly to the
// readiness poll, so EventReady is only returned once priming has
// confirmed at least one queued message.
func (s *Session) wait(now time.Time) (Outcome, error) {
	deadline := s.sched.Deadline()

	for now.Before(deadline) {
		timeout := deadline.Sub(now)

		s.logger.Debug("waiting",
			"frame", s.sched.FrameNumber(),
			"timeout", timeout)

		n, err := s.tr.Poll(timeout)
		switch {
		case errors.Is(err, transport.ErrInterrupted):
			return Retry, nil
		case err != nil:
			// There is no way to know the queue state after a failed
			// readiness poll; the session cannot continue.
			return Retry, fmt.Errorf("readiness poll: %w", err)
		case n == 0:
			return FrameReady, nil
		}

		if s.tr.Queued(transport.QueuedAfterReading) > 0 {
			return EventReady, nil
		}

		// Spurious wakeup: readable, but priming surfaced nothing.
		now = s.clock.Now()
	}

	// The deadline passed during the previous processing burst; one
	// final non-blocking readiness check decides.
	n, err := s.tr.Poll(0)
	if err != nil && !errors.Is(err, transport.ErrInterrupted) {
		return Retry, fmt.Errorf("readiness poll: %w", err)
	}
	if n > 0 && s.tr.Queued(transport.QueuedAfterReading) > 0 {
		return EventReady, nil
	}
	return FrameReady, nil
}
