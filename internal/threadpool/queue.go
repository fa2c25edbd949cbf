// Package threadpool provides the resizable worker pool and bounded
// lock-free job queue that execute ready tasks, mirroring depspawn's
// ThreadPool/TaskPool pair but expressed with goroutines parked on a
// sync.Cond and a ring of sequenced slots instead of OS threads.
package threadpool

import (
	"sync/atomic"
)

// Queue is a bounded multi-producer multi-consumer ring buffer sized at
// construction time, following Dmitry Vyukov's sequenced-slot algorithm:
// each slot carries its own turn counter so producers and consumers never
// contend on a single head/tail pair beyond one CAS on their position. It backs the
// scheduler's ready queue, capacity NumThreads*K per depspawn's
// Default_Max_Tasks_Per_Thread.
type Queue[T any] struct {
	mask uint64
	pad  [0]byte
	buf  []slot[T]

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64
}

type slot[T any] struct {
	seq   atomic.Uint64
	value T
}

// NewQueue creates a queue whose capacity is rounded up to the next power
// of two no smaller than capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &Queue[T]{
		mask: uint64(size - 1),
		buf:  make([]slot[T], size),
	}
	for i := range q.buf {
		q.buf[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush attempts a non-blocking enqueue, returning false if the queue is
// at capacity. Callers that hit false are expected to fall back to running
// the job themselves — the submitter-side stealing behavior described for
// the scheduler's back-pressure handling.
func (q *Queue[T]) TryPush(v T) bool {
	pos := q.enqueuePos.Load()
	for {
		s := &q.buf[pos&q.mask]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				s.value = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.enqueuePos.Load()
		case diff < 0:
			return false
		default:
			pos = q.enqueuePos.Load()
		}
	}
}

// TryPop attempts a non-blocking dequeue, returning false if the queue is
// empty.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	pos := q.dequeuePos.Load()
	for {
		s := &q.buf[pos&q.mask]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				v := s.value
				s.value = zero
				s.seq.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.dequeuePos.Load()
		case diff < 0:
			return zero, false
		default:
			pos = q.dequeuePos.Load()
		}
	}
}

// Len returns a point-in-time estimate of the number of queued items.
func (q *Queue[T]) Len() int {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}
