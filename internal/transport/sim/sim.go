// Package sim provides an in-process compositor behind the transport
// interface. It acknowledges extended-counter emissions with drawn and
// timing messages after a configurable latency, sends periodic liveness
// probes, and can play back a scripted resize sequence. The demo binary
// and the integration tests run sessions against it.
package sim

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/veldt/framepace/internal/inbox"
	"github.com/veldt/framepace/internal/protocol"
	"github.com/veldt/framepace/internal/transport"
)

// emission is one counter update observed by the compositor goroutine.
type emission struct {
	id    transport.CounterID
	value uint64
}

// Transport is a simulated compositor connection. The client-facing
// methods are called from the single session loop; the compositor runs on
// its own goroutine and talks back over the wire inbox, which is the only
// shared path between the two.
type Transport struct {
	config Config
	logger *slog.Logger
	id     string

	// Client-side receive state. readBuf holds events surfaced by Poll
	// but not yet read; queue is the in-memory event queue the session
	// drains. Both are touched only by the session loop.
	wire    *inbox.Inbox[transport.RawEvent]
	readBuf []transport.RawEvent
	queue   []transport.RawEvent

	emissions chan emission
	shutdown  chan struct{}
	wg        sync.WaitGroup
	closed    bool

	started time.Time

	// Compositor-visible liveness bookkeeping.
	echoes       atomic.Int64
	resizesAcked atomic.Int64
}

// New creates and starts a simulated compositor.
func New(config Config, logger *slog.Logger) (*Transport, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	t := &Transport{
		config:    config,
		logger:    logger,
		id:        uuid.NewString(),
		wire:      inbox.New[transport.RawEvent](config.WireCapacity),
		emissions: make(chan emission, 64),
		shutdown:  make(chan struct{}),
		started:   time.Now(),
	}

	t.logger.Info("simulated compositor starting",
		"compositor_id", t.id,
		"extended_sync", config.ExtendedSync,
		"ack_latency", config.AckLatency)

	t.wg.Add(1)
	go t.run()

	return t, nil
}

// Capabilities reports what the simulated compositor advertises.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{ExtendedSync: t.config.ExtendedSync}
}

// Poll waits for the wire to become readable or the timeout to elapse.
func (t *Transport) Poll(timeout time.Duration) (int, error) {
	if t.closed {
		return 0, transport.ErrClosed
	}

	if len(t.readBuf) > 0 || len(t.queue) > 0 {
		return 1, nil
	}

	ev, ok := t.wire.ReceiveTimeout(timeout)
	if !ok {
		return 0, nil
	}
	t.readBuf = append(t.readBuf, ev)
	return 1, nil
}

// Queued returns the buffered event count. QueuedAfterReading first moves
// everything readable off the wire into the in-memory queue.
func (t *Transport) Queued(mode transport.QueueMode) int {
	if mode == transport.QueuedAfterReading {
		t.queue = append(t.queue, t.readBuf...)
		t.readBuf = nil
		for {
			ev, ok := t.wire.TryReceive()
			if !ok {
				break
			}
			t.queue = append(t.queue, ev)
		}
	}
	return len(t.queue)
}

// NextEvent pops the next queued event without blocking.
func (t *Transport) NextEvent() (transport.RawEvent, error) {
	if len(t.queue) == 0 {
		return transport.RawEvent{}, transport.ErrQueueEmpty
	}
	ev := t.queue[0]
	t.queue = t.queue[1:]
	return ev, nil
}

// Flush is a no-op: counter emissions reach the compositor immediately.
func (t *Transport) Flush() error {
	if t.closed {
		return transport.ErrClosed
	}
	return nil
}

// Sync is a no-op round-trip for the simulator.
func (t *Transport) Sync() error {
	if t.closed {
		return transport.ErrClosed
	}
	return nil
}

// SetCounter forwards a counter update to the compositor goroutine. A
// full emission channel drops the update rather than blocking the
// session loop.
func (t *Transport) SetCounter(c transport.CounterID, value uint64) error {
	if t.closed {
		return transport.ErrClosed
	}
	select {
	case t.emissions <- emission{id: c, value: value}:
	default:
		t.logger.Warn("compositor emission channel full, dropping counter update",
			"counter", int(c),
			"value", value)
	}
	return nil
}

// EchoProbe records a liveness probe echo.
func (t *Transport) EchoProbe(timestamp, token uint64) error {
	if t.closed {
		return transport.ErrClosed
	}
	t.echoes.Add(1)
	t.logger.Debug("liveness probe echoed", "timestamp", timestamp, "token", token)
	return nil
}

// Close stops the compositor goroutine and releases the connection.
func (t *Transport) Close() error {
	if t.closed {
		return transport.ErrClosed
	}
	close(t.shutdown)
	t.wg.Wait()
	t.closed = true

	t.logger.Info("simulated compositor stopped",
		"compositor_id", t.id,
		"echoes", t.echoes.Load(),
		"resizes_acked", t.resizesAcked.Load())
	return nil
}

// EchoCount returns how many liveness probes the client echoed.
func (t *Transport) EchoCount() int64 { return t.echoes.Load() }

// ResizesAcked returns how many resize serials arrived on the basic counter.
func (t *Transport) ResizesAcked() int64 { return t.resizesAcked.Load() }

// run is the compositor goroutine: it watches counter emissions, issues
// acknowledgments, pings, and scripted resizes.
func (t *Transport) run() {
	defer t.wg.Done()

	var pingC <-chan time.Time
	if t.config.PingInterval > 0 {
		ticker := time.NewTicker(t.config.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	resizes := append([]Resize(nil), t.config.Resizes...)
	sort.Slice(resizes, func(i, j int) bool { return resizes[i].After < resizes[j].After })

	var resizeC <-chan time.Time
	var resizeTimer *time.Timer
	if len(resizes) > 0 {
		resizeTimer = time.NewTimer(time.Until(t.started.Add(resizes[0].After)))
		defer resizeTimer.Stop()
		resizeC = resizeTimer.C
	}

	// Resize serials are compositor-issued; keep them far from the
	// client's frame serials so stale-ack filtering is visible in traces.
	nextResizeSerial := uint64(0x1000)
	var pingToken uint64
	var expectedResizeSerial uint64

	for {
		select {
		case <-t.shutdown:
			return

		case em := <-t.emissions:
			switch em.id {
			case transport.ExtendedCounter:
				if em.value%4 != 0 {
					// Frame begin observed: acknowledge the completed
					// serial after composition latency.
					completed := (em.value + 3) &^ 3
					t.scheduleAcks(completed)
				}
			case transport.BasicCounter:
				t.resizesAcked.Add(1)
				if em.value == expectedResizeSerial {
					expectedResizeSerial = 0
				}
				t.logger.Debug("resize acknowledged on basic counter",
					"serial", em.value)
			}

		case <-pingC:
			pingToken++
			now := uint64(time.Now().UnixMicro())
			t.wire.Send(transport.RawEvent{
				Op:   transport.OpPing,
				Data: [5]uint64{0, now, pingToken, 0, 0},
			})

		case <-resizeC:
			r := resizes[0]
			resizes = resizes[1:]

			serial := nextResizeSerial
			nextResizeSerial += 4
			expectedResizeSerial = serial
			lo, hi := protocol.Words64(serial)

			extended := uint64(0)
			if t.config.ExtendedSync {
				extended = 1
			}

			// Sync request first, then the configure carrying the new
			// size, matching the windowing transport's event order.
			t.wire.Send(transport.RawEvent{
				Op:   transport.OpSyncRequest,
				Data: [5]uint64{0, 0, lo, hi, extended},
			})
			t.wire.Send(transport.RawEvent{
				Op:   transport.OpConfigure,
				Data: [5]uint64{uint64(r.Width), uint64(r.Height), 0, 0, 0},
			})

			t.logger.Debug("scripted resize issued",
				"serial", serial,
				"width", r.Width,
				"height", r.Height)

			if len(resizes) > 0 {
				resizeTimer.Reset(time.Until(t.started.Add(resizes[0].After)))
			} else {
				resizeC = nil
			}
		}
	}
}

// scheduleAcks sends the drawn and timing acknowledgments for a completed
// frame serial after the configured composition latency.
func (t *Transport) scheduleAcks(serial uint64) {
	lo, hi := protocol.Words64(serial)
	refresh := uint64(t.config.RefreshInterval.Microseconds())

	send := func() {
		drawn := uint64(time.Now().UnixMicro())
		dlo, dhi := protocol.Words64(drawn)
		t.wire.Send(transport.RawEvent{
			Op:   transport.OpFrameDrawn,
			Data: [5]uint64{lo, hi, dlo, dhi, 0},
		})
		t.wire.Send(transport.RawEvent{
			Op:   transport.OpFrameTimings,
			Data: [5]uint64{lo, hi, 0, refresh, 0},
		})
	}

	if t.config.AckLatency <= 0 {
		send()
		return
	}
	time.AfterFunc(t.config.AckLatency, send)
}
