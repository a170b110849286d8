// Package stream implements the per-subscription publisher fabric: bounded
// single-writer queues with strict sequence numbering, drop-oldest
// backpressure, watermark counters, and throttle signalling. The emulation
// task is the only writer; the transport side drains each queue on its own
// goroutine. Nothing in this package ever blocks the writer.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/atarist-core/emucore/curated"
)

// DefaultCapacity is the queue bound used when a subscription does not ask
// for its own.
const DefaultCapacity = 192

// Event is one queued element: JSON-serialisable metadata plus an optional
// binary payload that the transport must deliver immediately after it.
type Event struct {
	Seq         uint64
	TimestampUs int64
	Tick        uint64
	Cycle       uint64
	Payload     any
	Binary      []byte

	// DroppedSinceLast is filled in at delivery time: the number of
	// events dropped from this queue since the previous delivered event.
	DroppedSinceLast uint64
}

// Stats is a point-in-time copy of a publisher's counters.
type Stats struct {
	EventSeq                 uint64
	Depth                    int
	HighWatermarkDepth       int
	DroppedEvents            uint64
	OverflowEventsTotal      uint64
	ThrottleTransitionsTotal uint64
	ThrottleActive           bool
}

// Publisher is one subscription's bounded queue. Publish never blocks: on
// overflow the oldest queued event is dropped and counted. Sequence
// numbers already assigned are never rewritten.
type Publisher struct {
	name     string
	capacity int

	mu    sync.Mutex
	queue []Event

	seq          uint64
	lastTsUs     int64
	droppedSince uint64

	highWatermark  int64 // atomic
	dropped        uint64
	overflowTotal  uint64
	throttleTotal  uint64
	throttleActive atomic.Bool

	notify chan struct{}
	closed bool
}

// NewPublisher constructs a publisher named for diagnostics, with the
// given queue capacity (DefaultCapacity if zero or negative).
func NewPublisher(name string, capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{
		name:     name,
		capacity: capacity,
		queue:    make([]Event, 0, capacity),
		notify:   make(chan struct{}, 1),
	}
}

func (p *Publisher) Name() string { return p.name }

// Publish enqueues an event, assigning the next sequence number and
// clamping the timestamp to be non-decreasing. The returned sequence
// number is the one assigned.
func (p *Publisher) Publish(tsUs int64, tick, cycle uint64, payload any, binary []byte) uint64 {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return 0
	}

	p.seq++
	if tsUs < p.lastTsUs {
		tsUs = p.lastTsUs
	}
	p.lastTsUs = tsUs

	ev := Event{
		Seq:         p.seq,
		TimestampUs: tsUs,
		Tick:        tick,
		Cycle:       cycle,
		Payload:     payload,
		Binary:      binary,
	}

	if len(p.queue) >= p.capacity {
		// drop_oldest: the dropped event keeps its sequence number; the
		// gap is disclosed to the reader on the next delivery
		p.queue = p.queue[1:]
		p.droppedSince++
		atomic.AddUint64(&p.dropped, 1)
		atomic.AddUint64(&p.overflowTotal, 1)
	}
	p.queue = append(p.queue, ev)

	depth := len(p.queue)
	if int64(depth) > atomic.LoadInt64(&p.highWatermark) {
		atomic.StoreInt64(&p.highWatermark, int64(depth))
	}
	p.updateThrottleLocked(depth)

	seq := p.seq
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return seq
}

// throttle engages at 3/4 of capacity and releases at 1/4, so a slow
// reader does not flap the signal on every event
func (p *Publisher) updateThrottleLocked(depth int) {
	active := p.throttleActive.Load()
	if !active && depth*4 >= p.capacity*3 {
		p.throttleActive.Store(true)
		atomic.AddUint64(&p.throttleTotal, 1)
	} else if active && depth*4 <= p.capacity {
		p.throttleActive.Store(false)
		atomic.AddUint64(&p.throttleTotal, 1)
	}
}

// Next dequeues the oldest event, reporting false when the queue is empty.
// The returned event carries the count of drops since the previous
// delivered event.
func (p *Publisher) Next() (Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return Event{}, false
	}
	ev := p.queue[0]
	p.queue = p.queue[1:]
	ev.DroppedSinceLast = p.droppedSince
	p.droppedSince = 0
	p.updateThrottleLocked(len(p.queue))
	return ev, true
}

// Notify returns a channel that receives a token whenever an event is
// published, so the transport's drain goroutine can sleep between bursts.
func (p *Publisher) Notify() <-chan struct{} { return p.notify }

// Close marks the publisher closed; subsequent Publish calls are ignored.
// Queued events remain drainable.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Stats copies the publisher's counters.
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	depth := len(p.queue)
	seq := p.seq
	p.mu.Unlock()

	return Stats{
		EventSeq:                 seq,
		Depth:                    depth,
		HighWatermarkDepth:       int(atomic.LoadInt64(&p.highWatermark)),
		DroppedEvents:            atomic.LoadUint64(&p.dropped),
		OverflowEventsTotal:      atomic.LoadUint64(&p.overflowTotal),
		ThrottleTransitionsTotal: atomic.LoadUint64(&p.throttleTotal),
		ThrottleActive:           p.throttleActive.Load(),
	}
}

// ThrottleActive reports whether the queue is currently in its throttle
// band.
func (p *Publisher) ThrottleActive() bool { return p.throttleActive.Load() }

func internalStreamError(format string, args ...any) error {
	return curated.New(curated.CategoryInternal, curated.CodeInternalError, false,
		"stream: "+format, args...)
}
