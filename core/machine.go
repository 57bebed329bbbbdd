package core

import "time"

// =============================================================================
// Transition: what one state-machine step decided
// =============================================================================

type transitionKind uint8

const (
	transitionContinue transitionKind = iota
	transitionYield
	transitionComplete
	transitionHalt
	transitionSleep
	transitionDispatch
)

// Transition is the result of one Machine step. Exactly one constructor
// payload is meaningful. S is the machine's state type; R and P follow the
// task contract the machine is adapted into.
type Transition[S, R, P any] struct {
	kind   transitionKind
	next   S
	out    P
	value  R
	err    error
	delay  time.Duration
	action ExecutionAction[R, P]
}

// Continue moves to next without reporting output; the machine's task
// shows plain progress.
func Continue[S, R, P any](next S) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionContinue, next: next}
}

// Yield moves to next and surfaces out as the progress marker.
func Yield[S, R, P any](out P, next S) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionYield, next: next, out: out}
}

// Complete finishes the machine with its final value.
func Complete[S, R, P any](value R) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionComplete, value: value}
}

// Halt finishes the machine with a terminal error.
func Halt[S, R, P any](err error) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionHalt, err: err}
}

// Sleep parks the machine for d, then resumes in next.
func Sleep[S, R, P any](d time.Duration, next S) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionSleep, next: next, delay: d}
}

// Dispatch hands the engine a scheduling action, then resumes in next.
func Dispatch[S, R, P any](action ExecutionAction[R, P], next S) Transition[S, R, P] {
	return Transition[S, R, P]{kind: transitionDispatch, next: next, action: action}
}

// =============================================================================
// Machine: explicit state machine adapted to the Task contract
// =============================================================================

// Machine runs a step function over an explicit state, one step per poll.
// It frees workloads from hand-writing the poll bookkeeping: each step
// returns a Transition and the machine translates it into the matching
// Status. After Complete or Halt the step function is never invoked
// again and the machine reports exhaustion.
type Machine[S, R, P any] struct {
	state S
	step  func(S) Transition[S, R, P]
	done  bool
}

// NewMachine builds a machine starting in initial. step must be non-nil.
func NewMachine[S, R, P any](initial S, step func(S) Transition[S, R, P]) *Machine[S, R, P] {
	return &Machine[S, R, P]{state: initial, step: step}
}

// State returns the machine's current state. Meaningful between polls.
func (m *Machine[S, R, P]) State() S { return m.state }

func (m *Machine[S, R, P]) Poll() (Status[R, P], bool) {
	var zero Status[R, P]
	if m.done || m.step == nil {
		return zero, false
	}

	t := m.step(m.state)
	switch t.kind {
	case transitionComplete:
		m.done = true
		return Ready[R, P](t.value), true
	case transitionHalt:
		m.done = true
		return Failed[R, P](t.err), true
	case transitionYield:
		m.state = t.next
		return Pending[R, P](t.out), true
	case transitionSleep:
		m.state = t.next
		var progress P
		return Delayed[R, P](t.delay, progress), true
	case transitionDispatch:
		m.state = t.next
		var progress P
		return Spawn[R, P](t.action, progress), true
	default: // transitionContinue
		m.state = t.next
		var progress P
		return Pending[R, P](progress), true
	}
}
