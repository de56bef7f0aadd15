package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==============================================================================
// Test Helpers
// ==============================================================================

// recordingSink captures counter emissions in order for verification
type recordingSink struct {
	basic    []Serial
	extended []Serial
}

func (r *recordingSink) SetBasic(s Serial)    { r.basic = append(r.basic, s) }
func (r *recordingSink) SetExtended(s Serial) { r.extended = append(r.extended, s) }

func newStateAt(sink Sink, serial Serial) *State {
	s := NewState(sink)
	s.current = serial
	return s
}

// ==============================================================================
// Begin / End cycle
// ==============================================================================

func TestBeginEnd_NormalCycleFromEight(t *testing.T) {
	sink := &recordingSink{}
	s := newStateAt(sink, 8)

	s.Begin(Normal)
	assert.Equal(t, Serial(12), s.InflightSerial())
	assert.Equal(t, Serial(9), s.CurrentSerial())
	assert.Equal(t, PhaseNormal, s.CurrentSerial().Phase())

	s.End()
	assert.Equal(t, Serial(12), s.CurrentSerial())
	assert.Equal(t, PhaseIdle, s.CurrentSerial().Phase())

	assert.Equal(t, []Serial{9, 12}, sink.extended)
	assert.Empty(t, sink.basic)
}

func TestBeginEnd_UrgentCycleFromEight(t *testing.T) {
	sink := &recordingSink{}
	s := newStateAt(sink, 8)

	s.Begin(Urgent)
	assert.Equal(t, Serial(11), s.CurrentSerial())
	assert.Equal(t, PhaseUrgent, s.CurrentSerial().Phase())

	s.End()
	assert.Equal(t, Serial(12), s.CurrentSerial())
	assert.Equal(t, []Serial{11, 12}, sink.extended)
}

func TestBeginEnd_AdvancesByExactlyFour(t *testing.T) {
	// Absent a resize latch, a begin/end pair always lands on a multiple
	// of 4 exactly 4 above the starting value, for either disposition.
	for _, d := range []Disposition{Normal, Urgent} {
		t.Run(d.String(), func(t *testing.T) {
			s := NewState(&recordingSink{})
			for i := 0; i < 10; i++ {
				before := s.CurrentSerial()
				s.Begin(d)
				s.End()
				require.Equal(t, before+4, s.CurrentSerial())
				require.Equal(t, PhaseIdle, s.CurrentSerial().Phase())
			}
		})
	}
}

func TestEnd_NoopWhenIdle(t *testing.T) {
	sink := &recordingSink{}
	s := newStateAt(sink, 8)

	s.End()
	assert.Equal(t, Serial(8), s.CurrentSerial())
	assert.Empty(t, sink.extended)
	assert.Empty(t, sink.basic)
}

// ==============================================================================
// Resize latch
// ==============================================================================

func TestResizeLatch_EndToEnd(t *testing.T) {
	// Start idle at zero, receive resize-request(100, extended), then run
	// a normal frame: Begin emits 101, End emits 104 extended and 100
	// basic, and the latch is cleared.
	sink := &recordingSink{}
	s := NewState(sink)

	s.OnResizeRequest(100, true)
	require.True(t, s.ResizePending())

	s.Begin(Normal)
	assert.Equal(t, Serial(101), s.CurrentSerial())
	assert.Equal(t, Serial(104), s.InflightSerial())
	assert.False(t, s.ResizePending())

	s.End()
	assert.Equal(t, []Serial{101, 104}, sink.extended)
	assert.Equal(t, []Serial{100}, sink.basic)

	// Next cycle is a plain one: no further basic emission.
	s.Begin(Normal)
	s.End()
	assert.Equal(t, []Serial{100}, sink.basic)
}

func TestResizeLatch_UnalignedSerialRoundsUp(t *testing.T) {
	sink := &recordingSink{}
	s := NewState(sink)

	// A resize serial arriving mid-cycle may not be a multiple of 4.
	s.OnResizeRequest(101, true)
	s.Begin(Normal)

	// 101 rounds up to 104 before the phase increment.
	assert.Equal(t, Serial(105), s.CurrentSerial())
	assert.Equal(t, Serial(108), s.InflightSerial())

	s.End()
	assert.Equal(t, Serial(108), s.CurrentSerial())
	assert.Equal(t, []Serial{101}, sink.basic)
}

func TestResizeLatch_NotConsumedMidFrame(t *testing.T) {
	sink := &recordingSink{}
	s := newStateAt(sink, 8)

	s.Begin(Normal)

	// Latch set between Begin and End must survive until the next Begin,
	// no matter how many acknowledgments are drained in between.
	s.OnResizeRequest(200, true)
	s.OnDrawnAck(12)
	s.OnTimingAck(12)
	require.True(t, s.ResizePending())

	s.End()
	require.True(t, s.ResizePending())
	assert.Equal(t, Serial(12), s.CurrentSerial())
	assert.Empty(t, sink.basic)

	s.Begin(Normal)
	assert.False(t, s.ResizePending())
	assert.Equal(t, Serial(201), s.CurrentSerial())
}

// ==============================================================================
// Acknowledgment high-water marks
// ==============================================================================

func TestAcks_MonotonicHighWaterMarks(t *testing.T) {
	s := NewState(nil)

	s.OnDrawnAck(8)
	s.OnTimingAck(8)
	assert.Equal(t, Serial(8), s.DrawnSerial())
	assert.Equal(t, Serial(8), s.TimingSerial())

	// Stale acknowledgments are ignored.
	s.OnDrawnAck(4)
	s.OnTimingAck(4)
	assert.Equal(t, Serial(8), s.DrawnSerial())
	assert.Equal(t, Serial(8), s.TimingSerial())

	s.OnDrawnAck(12)
	s.OnTimingAck(16)
	assert.Equal(t, Serial(12), s.DrawnSerial())
	assert.Equal(t, Serial(16), s.TimingSerial())
}

func TestAcks_Idempotent(t *testing.T) {
	s := NewState(nil)

	s.OnDrawnAck(8)
	s.OnDrawnAck(8)
	s.OnTimingAck(8)
	s.OnTimingAck(8)

	assert.Equal(t, Serial(8), s.DrawnSerial())
	assert.Equal(t, Serial(8), s.TimingSerial())
}

// ==============================================================================
// Discard sink
// ==============================================================================

func TestDiscardSink_StateStillAdvances(t *testing.T) {
	s := NewState(Discard{})

	s.Begin(Normal)
	s.End()
	assert.Equal(t, Serial(4), s.CurrentSerial())
}
