// Package scheduler decides when the next frame is submitted. It applies
// flow control (hold a frame until the previous frame's presentation
// timing is acknowledged) and congestion control (urgent frames preempt
// the cadence at a sustainable measured rate), and sequences the render,
// counter and present calls in the order the compositor protocol requires.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/veldt/framepace/internal/counter"
	"github.com/veldt/framepace/internal/stats"
)

// Scheduler paces frame submission against the sync counter state and the
// measured timing statistics. It is driven from the single session loop
// and owns the two statistics series exclusively.
type Scheduler struct {
	config Config
	logger *slog.Logger
	clock  Clock

	conn      Conn
	renderer  Renderer
	presenter Presenter
	state     *counter.State
	stats     *stats.FrameStats
	recorder  Recorder

	deadline    time.Time
	lastDraw    time.Time
	frameNumber uint64

	width  int32
	height int32
}

// New creates a scheduler. The recorder may be nil. The first deadline is
// the current time, so the first frame is submitted immediately.
func New(config Config, state *counter.State, conn Conn, renderer Renderer,
	presenter Presenter, clock Clock, recorder Recorder, logger *slog.Logger) (*Scheduler, error) {

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock()
	}

	return &Scheduler{
		config:    config,
		logger:    logger,
		clock:     clock,
		conn:      conn,
		renderer:  renderer,
		presenter: presenter,
		state:     state,
		stats:     stats.New(config.StatsWindow),
		recorder:  recorder,
		deadline:  clock.Now(),
	}, nil
}

// Deadline returns the time the next frame is due.
func (s *Scheduler) Deadline() time.Time { return s.deadline }

// FrameNumber returns the number of frames submitted so far.
func (s *Scheduler) FrameNumber() uint64 { return s.frameNumber }

// Stats returns the scheduler's timing statistics.
func (s *Scheduler) Stats() *stats.FrameStats { return s.stats }

// SetSize updates the surface dimensions passed to the renderer.
func (s *Scheduler) SetSize(width, height int32) {
	s.width = width
	s.height = height
}

// TargetRate returns the configured steady-state frame rate.
func (s *Scheduler) TargetRate() float64 { return s.config.TargetRate }

// CappedRate caps a target rate at the measured recent frame rate, so an
// urgent frame substituted into the schedule does not promise a cadence
// the pipeline has not been sustaining.
func (s *Scheduler) CappedRate(target float64) float64 {
	measured, ok := s.stats.MeasuredRate()
	if ok && target > measured {
		return measured
	}
	return target
}

// TrySubmit attempts to submit a frame at now. Flow control defers the
// frame when the previous frame's presentation timing has not been
// acknowledged: the deadline moves out by the deferral delay and the
// render/present collaborators are not invoked. On admission the frame
// is rendered and presented between the Begin and End counter emissions,
// and both timing series are updated.
func (s *Scheduler) TrySubmit(now time.Time, targetRate float64, d counter.Disposition) (Result, error) {
	timing := s.state.TimingSerial()
	inflight := s.state.InflightSerial()

	if timing > 0 && timing < inflight {
		// Tearing may result if frames are submitted before receiving
		// timings for inflight frames submitted in response to
		// synchronization requests.
		if err := s.conn.Sync(); err != nil {
			return Deferred, fmt.Errorf("sync during deferral: %w", err)
		}
		s.deadline = now.Add(s.config.DeferralDelay)

		s.logger.Debug("frame deferred",
			"frame", s.frameNumber,
			"disposition", d.String(),
			"timing_serial", uint64(timing),
			"inflight_serial", uint64(inflight))

		if s.recorder != nil {
			s.recorder.RecordDeferral(DeferralRecord{
				At:             now,
				Disposition:    d,
				TimingSerial:   timing,
				InflightSerial: inflight,
			})
		}
		return Deferred, nil
	}

	var delta time.Duration
	if !s.lastDraw.IsZero() {
		delta = now.Sub(s.lastDraw)
		s.stats.RecordInterval(delta)
	}
	s.lastDraw = now
	s.deadline = now.Add(ratePeriod(targetRate))
	s.frameNumber++

	s.logger.Debug("frame begin",
		"frame", s.frameNumber,
		"disposition", d.String(),
		"delta", delta,
		"serial", uint64(s.state.CurrentSerial()))

	// Outbound protocol state must reach the compositor before the frame
	// begins, so counter updates are observed in order.
	if err := s.conn.Flush(); err != nil {
		return Deferred, fmt.Errorf("flush before frame: %w", err)
	}

	if err := s.renderer.DrawFrame(s.width, s.height, delta); err != nil {
		return Deferred, fmt.Errorf("draw frame %d: %w", s.frameNumber, err)
	}

	s.state.Begin(d)
	err := s.presenter.Present()
	s.state.End()
	if err != nil {
		return Deferred, fmt.Errorf("present frame %d: %w", s.frameNumber, err)
	}

	render := s.clock.Now().Sub(s.lastDraw)
	s.stats.RecordRender(render)

	s.logger.Debug("frame end",
		"frame", s.frameNumber,
		"serial", uint64(s.state.CurrentSerial()),
		"render", render)

	if s.recorder != nil {
		s.recorder.RecordFrame(FrameRecord{
			Number:      s.frameNumber,
			SubmittedAt: now,
			Disposition: d,
			Serial:      s.state.CurrentSerial(),
			Interval:    delta,
			Render:      render,
		})
	}
	return Submitted, nil
}

// ratePeriod converts a frame rate to the interval between submissions.
func ratePeriod(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}
