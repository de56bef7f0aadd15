// Package counter implements the extended-synchronization serial state
// machine that sequences frame begin/end signals against compositor
// resize requests.
//
// The protocol encodes the frame phase in the low two bits of the
// current serial: 0 means idle/configured, 1 means a normal frame is in
// progress, 3 means an urgent frame is in progress. A resting value of
// 2 never occurs. The compositor observes "rendering started" and
// "rendering finished" purely from counter parity, with no side channel.
package counter

// Serial is a monotonically increasing 64-bit synchronization counter
// value correlating a render cycle between client and compositor. It
// only advances, except when explicitly reset to a compositor-supplied
// resize serial at a frame boundary.
type Serial uint64

// Phase is the frame phase encoded in the low two bits of a Serial.
type Phase int

const (
	PhaseIdle   Phase = 0
	PhaseNormal Phase = 1
	PhaseUrgent Phase = 3
)

// Phase returns the frame phase encoded in the serial.
func (s Serial) Phase() Phase {
	return Phase(s & 3)
}

// Disposition distinguishes regular cadence frames from latency-sensitive
// frames submitted in direct response to a resize or configuration event.
type Disposition int

const (
	Normal Disposition = iota
	Urgent
)

// String returns a human-readable representation of the disposition
func (d Disposition) String() string {
	switch d {
	case Normal:
		return "normal"
	case Urgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Sink receives counter emissions destined for the compositor. The basic
// counter carries the raw resize serial once per completed resize cycle;
// the extended counter carries the 3-phase frame sequence.
type Sink interface {
	SetBasic(Serial)
	SetExtended(Serial)
}

// Discard is a Sink that drops all emissions. Used when the compositor
// does not advertise synchronization support or sync is disabled: frame
// pacing still runs but no counters are emitted.
type Discard struct{}

func (Discard) SetBasic(Serial)    {}
func (Discard) SetExtended(Serial) {}

// State holds the synchronization counter state for one session. It is
// owned by the session loop for the session's entire lifetime and is
// mutated only from that loop; no other component touches it directly.
type State struct {
	sink Sink

	current  Serial
	inflight Serial

	// Resize latch, captured from a resize request and consumed at the
	// next Begin.
	pendingSerial   Serial
	pendingExtended bool

	// Resize carried through the current begin/end cycle, acknowledged
	// on the basic counter at End.
	cycleSerial   Serial
	cycleExtended bool

	// Acknowledgment high-water marks.
	drawn  Serial
	timing Serial
}

// NewState creates counter state with all serials at zero, emitting to sink.
func NewState(sink Sink) *State {
	if sink == nil {
		sink = Discard{}
	}
	return &State{sink: sink}
}

// Begin marks the start of a frame. A latched resize serial is adopted as
// the current serial and carried into the cycle latch. The serial is
// rounded up to the next multiple of 4 if a mid-cycle resize left it
// unaligned, the inflight serial is precomputed as the completed value of
// this cycle, and the serial advances into the in-progress phase: +1 for
// a normal frame, +3 for an urgent one.
func (s *State) Begin(d Disposition) {
	if s.pendingSerial != 0 {
		s.current = s.pendingSerial
		s.cycleSerial = s.pendingSerial
		s.cycleExtended = s.pendingExtended
		s.pendingSerial = 0
		s.pendingExtended = false
	}

	if s.current&3 != 0 {
		s.current = (s.current + 3) &^ 3
	}

	s.inflight = s.current + 4
	if d == Urgent {
		s.current += 3
	} else {
		s.current += 1
	}
	s.sink.SetExtended(s.current)
}

// End marks the end of a frame, advancing the serial to the next multiple
// of 4 and re-emitting it on the extended counter. A resize carried
// through this cycle is acknowledged on the basic counter and the cycle
// latch cleared. End is a no-op when no frame is in progress.
func (s *State) End() {
	switch s.current & 3 {
	case 1:
		s.current += 3
		s.sink.SetExtended(s.current)
	case 3:
		s.current += 1
		s.sink.SetExtended(s.current)
	}

	if s.cycleSerial != 0 {
		s.sink.SetBasic(s.cycleSerial)
		s.cycleSerial = 0
		s.cycleExtended = false
	}
}

// OnResizeRequest latches a compositor-issued resize serial. The latch
// takes effect at the next Begin, never mid-frame.
func (s *State) OnResizeRequest(serial Serial, extended bool) {
	s.pendingSerial = serial
	s.pendingExtended = extended
}

// OnDrawnAck records a drawn acknowledgment. Serials below the current
// high-water mark are stale duplicates and are ignored.
func (s *State) OnDrawnAck(serial Serial) {
	if serial > s.drawn {
		s.drawn = serial
	}
}

// OnTimingAck records a presentation-timing acknowledgment. Serials below
// the current high-water mark are ignored.
func (s *State) OnTimingAck(serial Serial) {
	if serial > s.timing {
		s.timing = serial
	}
}

// CurrentSerial returns the active serial.
func (s *State) CurrentSerial() Serial { return s.current }

// InflightSerial returns the serial expected to be acknowledged once the
// frame begun most recently completes.
func (s *State) InflightSerial() Serial { return s.inflight }

// DrawnSerial returns the latest drawn acknowledgment received.
func (s *State) DrawnSerial() Serial { return s.drawn }

// TimingSerial returns the latest timing acknowledgment received.
func (s *State) TimingSerial() Serial { return s.timing }

// ResizePending reports whether a resize latch is waiting for the next Begin.
func (s *State) ResizePending() bool { return s.pendingSerial != 0 }
