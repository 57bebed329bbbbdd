package core

import (
	"errors"
	"sync"
)

// ErrQueueFull reports that a bounded queue refused a task.
var ErrQueueFull = errors.New("valtron: queue full")

// DefaultGlobalQueueCapacity bounds the cross-worker queue when Options
// leaves it unset.
const DefaultGlobalQueueCapacity = 1024

// globalItem pairs a broadcast task with the observation of its external
// submitter. obs is nil for broadcasts spawned from inside other tasks.
type globalItem[R, P any] struct {
	task  Task[R, P]
	obs   *Observation[R, P]
	label string
}

// globalQueue is the cross-worker injection point of the thread-pool
// engine. Producers are external SubmitBroadcast calls and in-task
// Broadcast actions; consumers are workers whose local queues ran dry.
// Strict FIFO keeps broadcasts from starving behind local work.
type globalQueue[R, P any] struct {
	mu       sync.Mutex
	items    []globalItem[R, P]
	capacity int
	closed   bool

	// signal carries best-effort wakeups to parked workers. It is
	// buffered so producers never block on it.
	signal chan struct{}
}

func newGlobalQueue[R, P any](capacity, workers int) *globalQueue[R, P] {
	if capacity <= 0 {
		capacity = DefaultGlobalQueueCapacity
	}
	if workers < 1 {
		workers = 1
	}
	return &globalQueue[R, P]{
		items:    make([]globalItem[R, P], 0, defaultQueueCap),
		capacity: capacity,
		signal:   make(chan struct{}, workers*2),
	}
}

func (q *globalQueue[R, P]) push(it globalItem[R, P]) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrEngineShuttingDown
	}
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *globalQueue[R, P]) pop() (globalItem[R, P], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return globalItem[R, P]{}, false
	}
	it := q.items[0]
	// Zero out the element in the underlying array to release references
	q.items[0] = globalItem[R, P]{}
	q.items = q.items[1:]
	q.maybeCompactLocked()
	return it, true
}

func (q *globalQueue[R, P]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close refuses further pushes and hands back whatever was still queued so
// the engine can close the attached observations.
func (q *globalQueue[R, P]) close() []globalItem[R, P] {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}

func (q *globalQueue[R, P]) maybeCompactLocked() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.items = make([]globalItem[R, P], 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	newSlice := make([]globalItem[R, P], n, newCap)
	copy(newSlice, q.items)
	q.items = newSlice
}
