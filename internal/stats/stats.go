// Package stats tracks sliding-window frame timing statistics used by the
// frame scheduler for pacing and congestion-control decisions.
package stats

import (
	"time"

	"github.com/veldt/framepace/lib/ring"
)

// FrameStats holds the two timing series the scheduler feeds on every
// submitted frame: the interval between consecutive submissions and the
// wall time spent rendering and presenting. Samples are microseconds.
//
// FrameStats is owned by the scheduler and accessed only from the main
// loop; it needs no synchronization.
type FrameStats struct {
	frameIntervals  *ring.Buffer
	renderDurations *ring.Buffer
}

// New creates frame statistics with the given window size per series.
// A windowSize of zero or less uses ring.DefaultCapacity.
func New(windowSize int) *FrameStats {
	return &FrameStats{
		frameIntervals:  ring.New(windowSize),
		renderDurations: ring.New(windowSize),
	}
}

// RecordInterval records the delta between two consecutive frame submissions.
func (f *FrameStats) RecordInterval(d time.Duration) {
	f.frameIntervals.Add(d.Microseconds())
}

// RecordRender records the wall time of one render+present pass.
func (f *FrameStats) RecordRender(d time.Duration) {
	f.renderDurations.Add(d.Microseconds())
}

// AverageInterval returns the mean submission interval over the window.
// The second return value is false when no frames have been recorded.
func (f *FrameStats) AverageInterval() (time.Duration, bool) {
	us, ok := f.frameIntervals.Average()
	if !ok {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

// AverageRender returns the mean render duration over the window.
func (f *FrameStats) AverageRender() (time.Duration, bool) {
	us, ok := f.renderDurations.Average()
	if !ok {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

// MeasuredRate returns the frame rate implied by the average submission
// interval, in frames per second. Returns false until at least one
// interval has been recorded or when the average interval is zero.
func (f *FrameStats) MeasuredRate() (float64, bool) {
	us, ok := f.frameIntervals.Average()
	if !ok || us <= 0 {
		return 0, false
	}
	return 1e6 / float64(us), true
}
