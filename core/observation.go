package core

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrCanceled reports that an observed task ended without a terminal
// status: it was canceled or its engine stopped first.
var ErrCanceled = errors.New("valtron: observation ended without terminal status")

// DefaultObservationBuffer is how many intermediate statuses an
// observation buffers before dropping. One extra slot is always reserved
// for the terminal status.
const DefaultObservationBuffer = 8

// Observation is the consumer's view of one submitted root task. Statuses
// stream over a buffered channel. When the consumer lags, intermediate
// statuses are dropped and counted; the terminal status never is, and the
// engine never blocks on a slow consumer. The channel closes exactly once:
// right after the terminal status, or without one when the task was
// canceled or the engine stopped.
type Observation[R, P any] struct {
	id    string
	label string
	ch    chan Status[R, P]

	dropped  atomic.Uint64
	canceled atomic.Bool

	// closed is touched only by the owning worker goroutine.
	closed bool
}

func newObservation[R, P any](label string, buffer int) *Observation[R, P] {
	if buffer <= 0 {
		buffer = DefaultObservationBuffer
	}
	return &Observation[R, P]{
		id:    uuid.NewString(),
		label: label,
		ch:    make(chan Status[R, P], buffer+1),
	}
}

// ID returns the identifier assigned at submission. It keys journal
// records and event payloads.
func (o *Observation[R, P]) ID() string { return o.id }

// Label returns the submitted task's label, "" when it carried none.
func (o *Observation[R, P]) Label() string { return o.label }

// Statuses returns the observed status stream.
func (o *Observation[R, P]) Statuses() <-chan Status[R, P] { return o.ch }

// Dropped reports how many intermediate statuses were discarded because
// the consumer lagged.
func (o *Observation[R, P]) Dropped() uint64 { return o.dropped.Load() }

// Cancel asks the engine to drop the task before it reaches a terminal
// status. It takes effect when the engine next visits the task; the
// status channel then closes without a terminal item. Cancel after the
// terminal status is a no-op.
func (o *Observation[R, P]) Cancel() { o.canceled.Store(true) }

func (o *Observation[R, P]) isCanceled() bool { return o.canceled.Load() }

// Wait consumes statuses until the stream ends and returns the terminal
// status. It returns ErrCanceled when the stream ends without one, or the
// context error if ctx expires first.
func (o *Observation[R, P]) Wait(ctx context.Context) (Status[R, P], error) {
	var last Status[R, P]
	sawTerminal := false
	for {
		select {
		case st, ok := <-o.ch:
			if !ok {
				if sawTerminal {
					return last, nil
				}
				return last, ErrCanceled
			}
			if st.IsTerminal() {
				last = st
				sawTerminal = true
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

// emit publishes an intermediate status. Only the owning worker calls it.
func (o *Observation[R, P]) emit(st Status[R, P]) {
	if o.closed {
		return
	}
	if len(o.ch) >= cap(o.ch)-1 {
		// Buffer full up to the reserved terminal slot; drop.
		o.dropped.Add(1)
		return
	}
	o.ch <- st
}

// finish publishes the terminal status and closes the stream. The reserved
// slot guarantees the send cannot block.
func (o *Observation[R, P]) finish(st Status[R, P]) {
	if o.closed {
		return
	}
	o.closed = true
	o.ch <- st
	close(o.ch)
}

// close ends the stream without a terminal status.
func (o *Observation[R, P]) close() {
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}
