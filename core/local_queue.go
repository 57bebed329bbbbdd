package core

import (
	"container/heap"
	"time"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// =============================================================================
// runQueue: worker-local double-ended run queue
// =============================================================================

// runQueue holds the entries a worker will poll next, in order. It is a
// ring buffer owned by a single goroutine and needs no locking: lifts go
// to the front, schedules and re-queues to the back.
type runQueue struct {
	buf   []Entry
	head  int
	count int
}

func newRunQueue() *runQueue {
	return &runQueue{buf: make([]Entry, defaultQueueCap)}
}

func (q *runQueue) Len() int { return q.count }

func (q *runQueue) PushBack(e Entry) {
	q.grow()
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
}

func (q *runQueue) PushFront(e Entry) {
	q.grow()
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = e
	q.count++
}

func (q *runQueue) PopFront() (Entry, bool) {
	if q.count == 0 {
		return Entry{}, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = Entry{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.maybeCompact()
	return e, true
}

func (q *runQueue) grow() {
	if q.count < len(q.buf) {
		return
	}
	buf := make([]Entry, len(q.buf)*2)
	n := copy(buf, q.buf[q.head:])
	copy(buf[n:], q.buf[:q.head])
	q.buf = buf
	q.head = 0
}

func (q *runQueue) maybeCompact() {
	c := len(q.buf)
	if c < compactMinCap || q.count*compactShrinkFactor >= c {
		return
	}
	newCap := max(c/2, defaultQueueCap)
	if newCap < q.count {
		newCap = q.count
	}
	buf := make([]Entry, newCap)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[(q.head+i)%c]
	}
	q.buf = buf
	q.head = 0
}

// =============================================================================
// delayHeap: time-ordered holding area for Delayed statuses
// =============================================================================

type delayedEntry struct {
	entry   Entry
	readyAt time.Time
	seq     uint64 // Ties promote in park order
	index   int
}

type delayItems []*delayedEntry

func (h delayItems) Len() int { return len(h) }

func (h delayItems) Less(i, j int) bool {
	if h[i].readyAt.Equal(h[j].readyAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].readyAt.Before(h[j].readyAt)
}

func (h delayItems) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayItems) Push(x any) {
	item := x.(*delayedEntry)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayItems) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	item.index = -1
	*h = old[:n-1]
	return item
}

// delayHeap parks entries until their deadline passes. Like runQueue it is
// owned by a single goroutine.
type delayHeap struct {
	items delayItems
	seq   uint64
}

func newDelayHeap() *delayHeap {
	return &delayHeap{items: make(delayItems, 0, defaultQueueCap)}
}

func (h *delayHeap) Len() int { return len(h.items) }

func (h *delayHeap) Park(e Entry, readyAt time.Time) {
	h.seq++
	heap.Push(&h.items, &delayedEntry{entry: e, readyAt: readyAt, seq: h.seq})
}

// Due pops every entry whose deadline is at or before now, in deadline
// order.
func (h *delayHeap) Due(now time.Time) []Entry {
	var due []Entry
	for len(h.items) > 0 {
		next := h.items[0]
		if next.readyAt.After(now) {
			break
		}
		heap.Pop(&h.items)
		due = append(due, next.entry)
	}
	return due
}

// NextDeadline reports the earliest pending deadline, ok=false when the
// heap is empty.
func (h *delayHeap) NextDeadline() (time.Time, bool) {
	if len(h.items) == 0 {
		return time.Time{}, false
	}
	return h.items[0].readyAt, true
}
