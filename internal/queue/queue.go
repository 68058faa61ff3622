package queue

import (
	"sync/atomic"
	"time"

	"github.com/logflux/logflux-go/pkg/types"
)

// Queue is a bounded FIFO buffer of pending entries. Implementations
// are safe for concurrent producers and consumers.
type Queue interface {
	// Offer admits an entry according to the queue's policy and
	// reports whether it was enqueued.
	Offer(e *types.Entry) bool

	// OfferTimeout is Offer bounded by a wait: blocking queues give up
	// after d (returning false without counting a drop), failsafe
	// queues wait up to d for space before dropping. d <= 0 means
	// don't wait.
	OfferTimeout(e *types.Entry, d time.Duration) bool

	// Poll removes and returns the oldest entry, waiting up to d.
	// Returns nil on timeout.
	Poll(d time.Duration) *types.Entry

	// Size is the number of entries currently buffered.
	Size() int

	// Capacity is the fixed maximum number of buffered entries.
	Capacity() int

	// Dropped is the monotonic count of entries discarded because the
	// queue was full. Always 0 for blocking queues.
	Dropped() uint64
}

// New returns a queue with the given capacity: failsafe (dropping)
// when failsafe is true, blocking otherwise.
func New(capacity int, failsafe bool) Queue {
	if failsafe {
		return NewFailsafe(capacity)
	}
	return NewBlocking(capacity)
}

// Blocking is the strict admission policy: producers wait for space
// and no entry is ever discarded by the queue itself.
type Blocking struct {
	ch chan *types.Entry
}

// NewBlocking creates a blocking queue with the given capacity.
func NewBlocking(capacity int) *Blocking {
	return &Blocking{ch: make(chan *types.Entry, capacity)}
}

// Offer blocks until space is available.
func (q *Blocking) Offer(e *types.Entry) bool {
	q.ch <- e
	return true
}

// OfferTimeout waits up to d for space; on timeout the entry is not
// enqueued and the dropped count is unaffected.
func (q *Blocking) OfferTimeout(e *types.Entry, d time.Duration) bool {
	if d <= 0 {
		select {
		case q.ch <- e:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case q.ch <- e:
		return true
	case <-t.C:
		return false
	}
}

func (q *Blocking) Poll(d time.Duration) *types.Entry { return poll(q.ch, d) }
func (q *Blocking) Size() int                         { return len(q.ch) }
func (q *Blocking) Capacity() int                     { return cap(q.ch) }
func (q *Blocking) Dropped() uint64                   { return 0 }

// Failsafe is the lossy admission policy: producers never wait, and
// back-pressure is resolved by dropping the entry being offered.
type Failsafe struct {
	ch      chan *types.Entry
	dropped atomic.Uint64
}

// NewFailsafe creates a failsafe queue with the given capacity.
func NewFailsafe(capacity int) *Failsafe {
	return &Failsafe{ch: make(chan *types.Entry, capacity)}
}

// Offer enqueues without waiting; when full the entry is discarded and
// counted.
func (q *Failsafe) Offer(e *types.Entry) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// OfferTimeout waits up to d for space before dropping.
func (q *Failsafe) OfferTimeout(e *types.Entry, d time.Duration) bool {
	if d <= 0 {
		return q.Offer(e)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case q.ch <- e:
		return true
	case <-t.C:
		q.dropped.Add(1)
		return false
	}
}

func (q *Failsafe) Poll(d time.Duration) *types.Entry { return poll(q.ch, d) }
func (q *Failsafe) Size() int                         { return len(q.ch) }
func (q *Failsafe) Capacity() int                     { return cap(q.ch) }
func (q *Failsafe) Dropped() uint64                   { return q.dropped.Load() }

// poll receives the oldest entry, waiting up to d; nil on timeout.
func poll(ch chan *types.Entry, d time.Duration) *types.Entry {
	if d <= 0 {
		select {
		case e := <-ch:
			return e
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case e := <-ch:
		return e
	case <-t.C:
		return nil
	}
}
