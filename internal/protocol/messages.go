// Package protocol classifies inbound compositor messages into a closed
// set of typed variants. Raw transport events are decoded once at the
// boundary; everything downstream matches on the concrete types.
package protocol

import "github.com/veldt/framepace/internal/counter"

// Message is the closed set of inbound compositor messages. The concrete
// types are ResizeRequest, LivenessProbe, DrawnAck, TimingAck,
// ConfigureChange and Unknown.
type Message interface {
	// Kind returns a short name for logging.
	Kind() string

	isMessage()
}

// ResizeRequest carries a new synchronization serial issued by the
// compositor ahead of a resize. It is latched and consumed at the next
// frame boundary.
type ResizeRequest struct {
	Serial   counter.Serial
	Extended bool
}

// LivenessProbe is a compositor ping. It must be echoed back unmodified
// on the control channel immediately, never delayed by frame scheduling.
type LivenessProbe struct {
	Timestamp uint64
	Token     uint64
}

// DrawnAck acknowledges that the compositor picked up a frame's contents.
type DrawnAck struct {
	Serial    counter.Serial
	DrawnTime int64
}

// TimingAck acknowledges a frame's presentation timing. The three timing
// fields are not consulted by the scheduling core but are preserved for
// logging and trace persistence.
type TimingAck struct {
	Serial             counter.Serial
	PresentationOffset int32
	RefreshInterval    int32
	FrameDelay         int32
}

// ConfigureChange notifies new surface dimensions. It triggers an urgent
// frame at a sustainable capped rate.
type ConfigureChange struct {
	Width  int32
	Height int32
}

// Unknown is any message the decoder does not recognize. It causes no
// state change.
type Unknown struct {
	Op uint32
}

func (ResizeRequest) Kind() string   { return "resize_request" }
func (LivenessProbe) Kind() string   { return "liveness_probe" }
func (DrawnAck) Kind() string        { return "drawn_ack" }
func (TimingAck) Kind() string       { return "timing_ack" }
func (ConfigureChange) Kind() string { return "configure_change" }
func (Unknown) Kind() string         { return "unknown" }

func (ResizeRequest) isMessage()   {}
func (LivenessProbe) isMessage()   {}
func (DrawnAck) isMessage()        {}
func (TimingAck) isMessage()       {}
func (ConfigureChange) isMessage() {}
func (Unknown) isMessage()         {}
