package capture

import "sync"

// DefaultQueueCapacity is the number of raw frames buffered between the
// backend callback and the consumer.
const DefaultQueueCapacity = 32

// OfferResult reports what happened to a frame handed to Offer.
type OfferResult int

const (
	OfferEnqueued OfferResult = iota
	// OfferDropped means the queue was full and the incoming frame was
	// rejected. Queued frames are never evicted.
	OfferDropped
	// OfferDisconnected means the consumer side is gone.
	OfferDisconnected
)

func (r OfferResult) String() string {
	switch r {
	case OfferEnqueued:
		return "enqueued"
	case OfferDropped:
		return "dropped"
	case OfferDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// PendingFrameQueue is the bounded FIFO between frame-arrival callbacks
// (any number of producers) and a single consumer. Neither side ever
// blocks: the mutex only covers non-blocking channel operations.
type PendingFrameQueue struct {
	mu           sync.Mutex
	frames       chan RawFrame
	ready        chan struct{}
	disconnected bool
}

// NewPendingFrameQueue creates a queue holding at most capacity frames.
func NewPendingFrameQueue(capacity int) *PendingFrameQueue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &PendingFrameQueue{
		frames: make(chan RawFrame, capacity),
		ready:  make(chan struct{}, 1),
	}
}

// Offer tries to enqueue f without blocking. On OfferDropped and
// OfferDisconnected ownership of f stays with the caller.
func (q *PendingFrameQueue) Offer(f RawFrame) OfferResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.disconnected {
		return OfferDisconnected
	}
	select {
	case q.frames <- f:
	default:
		return OfferDropped
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return OfferEnqueued
}

// TryRecv pops the oldest frame, if any.
func (q *PendingFrameQueue) TryRecv() (RawFrame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
		return nil, false
	}
}

// Ready receives a value after at least one Offer succeeded since the last
// receive. Consumers must still poll TryRecv; a wake-up may be stale.
func (q *PendingFrameQueue) Ready() <-chan struct{} {
	return q.ready
}

// Len reports the number of queued frames.
func (q *PendingFrameQueue) Len() int {
	return len(q.frames)
}

// Cap reports the queue capacity.
func (q *PendingFrameQueue) Cap() int {
	return cap(q.frames)
}

// Disconnect stops accepting frames and releases everything still queued.
// Later Offers report OfferDisconnected. Idempotent.
func (q *PendingFrameQueue) Disconnect() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.disconnected {
		return
	}
	q.disconnected = true
	for {
		select {
		case f := <-q.frames:
			f.Close()
		default:
			return
		}
	}
}

// Disconnected reports whether Disconnect was called.
func (q *PendingFrameQueue) Disconnected() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.disconnected
}
