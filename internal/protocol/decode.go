package protocol

import (
	"github.com/veldt/framepace/internal/counter"
	"github.com/veldt/framepace/internal/transport"
)

// Decode classifies a raw transport event into a typed message. The data
// word layout per message type mirrors the client-message packing of the
// windowing transport: 64-bit serials are split across two 32-bit words.
func Decode(ev transport.RawEvent) Message {
	switch ev.Op {
	case transport.OpSyncRequest:
		return ResizeRequest{
			Serial:   counter.Serial(word64(ev.Data[2], ev.Data[3])),
			Extended: ev.Data[4] != 0,
		}

	case transport.OpPing:
		return LivenessProbe{
			Timestamp: ev.Data[1],
			Token:     ev.Data[2],
		}

	case transport.OpFrameDrawn:
		return DrawnAck{
			Serial:    counter.Serial(word64(ev.Data[0], ev.Data[1])),
			DrawnTime: int64(word64(ev.Data[2], ev.Data[3])),
		}

	case transport.OpFrameTimings:
		return TimingAck{
			Serial:             counter.Serial(word64(ev.Data[0], ev.Data[1])),
			PresentationOffset: int32(ev.Data[2]),
			RefreshInterval:    int32(ev.Data[3]),
			FrameDelay:         int32(ev.Data[4]),
		}

	case transport.OpConfigure:
		return ConfigureChange{
			Width:  int32(ev.Data[0]),
			Height: int32(ev.Data[1]),
		}

	default:
		return Unknown{Op: uint32(ev.Op)}
	}
}

// word64 assembles a 64-bit value from low and high 32-bit data words.
func word64(lo, hi uint64) uint64 {
	return lo&0xFFFFFFFF | hi<<32
}

// Words64 splits a 64-bit value into low and high data words, the inverse
// of the decoder's assembly. Used by transports when emitting serials.
func Words64(v uint64) (lo, hi uint64) {
	return v & 0xFFFFFFFF, v >> 32
}
