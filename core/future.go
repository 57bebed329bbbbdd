package core

// nopWake is handed to futures and streams polled from an engine: the
// engine re-polls on its own schedule, so readiness notifications have
// nothing to wake.
var nopWake = func() {}

// Future is a single-value asynchronous source adapted into the poll
// world. PollFuture must not block: it reports (value, true) once the
// value is available and (zero, false) before that. wake may be kept and
// invoked when readiness changes; engine-driven polling ignores it.
type Future[T any] interface {
	PollFuture(wake func()) (T, bool)
}

// Stream is a multi-value asynchronous source. PollStream must not block:
// it reports (item, true, false) when an item is available, (zero, false,
// false) when none is ready yet, and (zero, false, true) once the stream
// is exhausted.
type Stream[T any] interface {
	PollStream(wake func()) (item T, ok bool, done bool)
}

// =============================================================================
// Task adapters
// =============================================================================

// AwaitFuture adapts a future into a task: Pending(marker) until the
// value arrives, then Ready(value) once.
func AwaitFuture[T, P any](f Future[T], marker P) Task[T, P] {
	return &futureTask[T, P]{future: f, marker: marker}
}

type futureTask[T, P any] struct {
	future Future[T]
	marker P
	done   bool
}

func (t *futureTask[T, P]) Poll() (Status[T, P], bool) {
	var zero Status[T, P]
	if t.done || t.future == nil {
		return zero, false
	}
	value, ready := t.future.PollFuture(nopWake)
	if ready {
		t.done = true
		return Ready[T, P](value), true
	}
	return Pending[T, P](t.marker), true
}

// Item is one stream element. OK is false only for the end-of-stream
// marker.
type Item[T any] struct {
	Value T
	OK    bool
}

// AwaitStream adapts a stream into a task that reports Ready(Item) for
// every element and a final Ready with a zero Item as the end-of-stream
// marker. Because it completes once per element it is meant to be polled
// directly or re-submitted per element, not parked as a long-lived root
// task: engines retire a root at its first Ready.
func AwaitStream[T, P any](s Stream[T], marker P) Task[Item[T], P] {
	return &streamTask[T, P]{stream: s, marker: marker}
}

type streamTask[T, P any] struct {
	stream Stream[T]
	marker P
	done   bool
}

func (t *streamTask[T, P]) Poll() (Status[Item[T], P], bool) {
	var zero Status[Item[T], P]
	if t.done || t.stream == nil {
		return zero, false
	}
	item, ok, done := t.stream.PollStream(nopWake)
	if done {
		t.done = true
		return Ready[Item[T], P](Item[T]{}), true
	}
	if ok {
		return Ready[Item[T], P](Item[T]{Value: item, OK: true}), true
	}
	return Pending[Item[T], P](t.marker), true
}

// =============================================================================
// Channel-backed sources
// =============================================================================

// ChannelFuture adapts a receive channel into a Future. The first value
// received resolves the future; a closed channel resolves it with the
// zero value.
func ChannelFuture[T any](ch <-chan T) Future[T] {
	return &channelFuture[T]{ch: ch}
}

type channelFuture[T any] struct {
	ch       <-chan T
	value    T
	resolved bool
}

func (f *channelFuture[T]) PollFuture(func()) (T, bool) {
	if f.resolved {
		return f.value, true
	}
	select {
	case v, ok := <-f.ch:
		if ok {
			f.value = v
		}
		f.resolved = true
		return f.value, true
	default:
		var zero T
		return zero, false
	}
}

// ChannelStream adapts a receive channel into a Stream that ends when the
// channel closes.
func ChannelStream[T any](ch <-chan T) Stream[T] {
	return &channelStream[T]{ch: ch}
}

type channelStream[T any] struct {
	ch    <-chan T
	ended bool
}

func (s *channelStream[T]) PollStream(func()) (T, bool, bool) {
	var zero T
	if s.ended {
		return zero, false, true
	}
	select {
	case v, ok := <-s.ch:
		if !ok {
			s.ended = true
			return zero, false, true
		}
		return v, true, false
	default:
		return zero, false, false
	}
}

// GoFuture runs fn on its own goroutine immediately and resolves with its
// result.
func GoFuture[T any](fn func() T) Future[T] {
	ch := make(chan T, 1)
	go func() { ch <- fn() }()
	return ChannelFuture[T](ch)
}
