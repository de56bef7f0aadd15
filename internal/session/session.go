// Package session runs the single-threaded presentation loop: wait for
// the next event or frame deadline, drain and dispatch all buffered
// compositor messages, and submit frames through the scheduler. All
// mutation of the counter state and the timing statistics happens on this
// one loop; nothing here needs a lock.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veldt/framepace/internal/counter"
	"github.com/veldt/framepace/internal/protocol"
	"github.com/veldt/framepace/internal/scheduler"
	"github.com/veldt/framepace/internal/transport"
)

// AckRecord describes one acknowledgment for trace persistence. The
// timing fields are zero for drawn acknowledgments.
type AckRecord struct {
	Kind               string // "drawn" or "timing"
	Serial             counter.Serial
	At                 time.Time
	PresentationOffset int32
	RefreshInterval    int32
	FrameDelay         int32
}

// Recorder extends the scheduler's recorder with acknowledgment rows.
type Recorder interface {
	scheduler.Recorder
	RecordAck(AckRecord)
}

// Session owns the presentation loop for one window surface.
type Session struct {
	config Config
	logger *slog.Logger
	clock  scheduler.Clock

	tr       transport.Transport
	state    *counter.State
	sched    *scheduler.Scheduler
	recorder Recorder

	synced   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// counterSink forwards counter emissions to the transport. Emission
// failures are protocol anomalies, not session faults: they are logged
// and dropped.
type counterSink struct {
	tr     transport.Transport
	logger *slog.Logger
}

func (s counterSink) SetBasic(v counter.Serial) {
	if err := s.tr.SetCounter(transport.BasicCounter, uint64(v)); err != nil {
		s.logger.Warn("basic counter emission failed", "value", uint64(v), "error", err)
	}
}

func (s counterSink) SetExtended(v counter.Serial) {
	if err := s.tr.SetCounter(transport.ExtendedCounter, uint64(v)); err != nil {
		s.logger.Warn("extended counter emission failed", "value", uint64(v), "error", err)
	}
}

// New creates a session. Synchronization support is probed once here:
// when the compositor does not advertise extended sync, or sync is
// disabled by configuration, counter emissions are discarded and frame
// pacing runs unsynchronized. The recorder may be nil.
func New(config Config, schedConfig scheduler.Config, tr transport.Transport,
	renderer scheduler.Renderer, presenter scheduler.Presenter,
	clock scheduler.Clock, recorder Recorder, logger *slog.Logger) (*Session, error) {

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = scheduler.SystemClock()
	}

	caps := tr.Capabilities()
	synced := caps.ExtendedSync && !config.DisableSync

	var sink counter.Sink
	if synced {
		sink = counterSink{tr: tr, logger: logger}
	} else {
		sink = counter.Discard{}
	}

	logger.Info("session capabilities",
		"extended_sync", caps.ExtendedSync,
		"sync_disabled", config.DisableSync,
		"synchronized", synced)

	state := counter.NewState(sink)

	var schedRecorder scheduler.Recorder
	if recorder != nil {
		schedRecorder = recorder
	}
	sched, err := scheduler.New(schedConfig, state, tr, renderer, presenter,
		clock, schedRecorder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sched.SetSize(config.Width, config.Height)

	return &Session{
		config:   config,
		logger:   logger,
		clock:    clock,
		tr:       tr,
		state:    state,
		sched:    sched,
		recorder: recorder,
		synced:   synced,
		stop:     make(chan struct{}),
	}, nil
}

// Stop requests loop termination. Safe to call from another goroutine
// and more than once; Run returns nil after finishing the current pass.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// State exposes the counter state for inspection.
func (s *Session) State() *counter.State { return s.state }

// Scheduler exposes the frame scheduler for inspection.
func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }

// Run drives the loop until the frame budget is reached or a fatal
// transport error occurs. Each pass waits for the next thing, submits a
// frame on deadline, and otherwise drains every buffered message before
// the next scheduling decision.
func (s *Session) Run() error {
	s.logger.Info("session starting",
		"target_rate", s.sched.TargetRate(),
		"size", fmt.Sprintf("%dx%d", s.config.Width, s.config.Height),
		"max_frames", s.config.MaxFrames)

	for {
		if s.stopped() {
			s.logger.Info("session stopped", "frames", s.sched.FrameNumber())
			return nil
		}
		if s.budgetReached() {
			s.logger.Info("frame budget reached", "frames", s.sched.FrameNumber())
			return nil
		}

		waiting := true
		for waiting && s.tr.Queued(transport.QueuedAlready) == 0 {
			if s.stopped() {
				s.logger.Info("session stopped", "frames", s.sched.FrameNumber())
				return nil
			}
			outcome, err := s.wait(s.clock.Now())
			if err != nil {
				return err
			}

			switch outcome {
			case EventReady:
				waiting = false
			case FrameReady:
				if err := s.submitFrame(counter.Normal, s.sched.TargetRate()); err != nil {
					return err
				}
				if s.budgetReached() {
					s.logger.Info("frame budget reached", "frames", s.sched.FrameNumber())
					return nil
				}
			case Retry:
				// Interrupted wait; evaluate again.
			}
		}

		for s.tr.Queued(transport.QueuedAlready) > 0 {
			if err := s.processEvent(); err != nil {
				return err
			}
		}
	}
}

func (s *Session) budgetReached() bool {
	return s.config.MaxFrames > 0 && s.sched.FrameNumber() >= s.config.MaxFrames
}

func (s *Session) submitFrame(d counter.Disposition, rate float64) error {
	_, err := s.sched.TrySubmit(s.clock.Now(), rate, d)
	if err != nil {
		return fmt.Errorf("frame submission: %w", err)
	}
	return nil
}

// processEvent pops one buffered message, decodes it, and dispatches it.
// Protocol anomalies (stale acks, unknown messages) cause no state change.
func (s *Session) processEvent() error {
	ev, err := s.tr.NextEvent()
	if err != nil {
		if errors.Is(err, transport.ErrQueueEmpty) {
			return nil
		}
		return fmt.Errorf("next event: %w", err)
	}

	msg := protocol.Decode(ev)

	switch m := msg.(type) {
	case protocol.ResizeRequest:
		s.logger.Debug("resize request latched",
			"serial", uint64(m.Serial),
			"extended", m.Extended)
		s.state.OnResizeRequest(m.Serial, m.Extended)

	case protocol.LivenessProbe:
		// Echoed immediately, never delayed behind frame scheduling.
		if err := s.tr.EchoProbe(m.Timestamp, m.Token); err != nil {
			return fmt.Errorf("probe echo: %w", err)
		}

	case protocol.DrawnAck:
		s.state.OnDrawnAck(m.Serial)
		if s.recorder != nil {
			s.recorder.RecordAck(AckRecord{
				Kind:   "drawn",
				Serial: m.Serial,
				At:     s.clock.Now(),
			})
		}

	case protocol.TimingAck:
		s.logger.Debug("timing ack",
			"serial", uint64(m.Serial),
			"presentation_offset", m.PresentationOffset,
			"refresh_interval", m.RefreshInterval,
			"frame_delay", m.FrameDelay)
		s.state.OnTimingAck(m.Serial)
		if s.recorder != nil {
			s.recorder.RecordAck(AckRecord{
				Kind:               "timing",
				Serial:             m.Serial,
				At:                 s.clock.Now(),
				PresentationOffset: m.PresentationOffset,
				RefreshInterval:    m.RefreshInterval,
				FrameDelay:         m.FrameDelay,
			})
		}

	case protocol.ConfigureChange:
		s.logger.Debug("configure", "width", m.Width, "height", m.Height)
		s.config.Width = m.Width
		s.config.Height = m.Height
		s.sched.SetSize(m.Width, m.Height)

		// The urgent substitution must not promise a cadence the
		// pipeline has not been sustaining.
		capped := s.sched.CappedRate(s.sched.TargetRate())
		if err := s.submitFrame(counter.Urgent, capped); err != nil {
			return err
		}

	case protocol.Unknown:
		s.logger.Debug("unrecognized message ignored", "op", m.Op)
	}

	return nil
}
