package core

import (
	"errors"
	"iter"
)

// ErrNilTask reports a nil task handed to an engine or adapter.
var ErrNilTask = errors.New("valtron: nil task")

// Task is the cooperative unit of work. Poll runs exactly one bounded step
// and reports what happened through a Status.
//
// The boolean result is the liveness flag: (status, true) while the task
// has something to report, (zero, false) once it is exhausted. After a
// terminal status or a false result the task must not be polled again.
//
// A task is never polled concurrently; engines keep each task on a single
// worker for its whole life.
type Task[R, P any] interface {
	Poll() (Status[R, P], bool)
}

// TaskFunc adapts a closure to the Task interface.
type TaskFunc[R, P any] func() (Status[R, P], bool)

func (f TaskFunc[R, P]) Poll() (Status[R, P], bool) { return f() }

// =============================================================================
// Labels
// =============================================================================

// Labeler is implemented by tasks carrying a human-readable label. Engines
// pick the label up for logs, metrics, events and journal records.
type Labeler interface {
	TaskLabel() string
}

// WithLabel attaches a label to a task.
func WithLabel[R, P any](label string, task Task[R, P]) Task[R, P] {
	return &labeledTask[R, P]{label: label, inner: task}
}

type labeledTask[R, P any] struct {
	label string
	inner Task[R, P]
}

func (t *labeledTask[R, P]) Poll() (Status[R, P], bool) { return t.inner.Poll() }

func (t *labeledTask[R, P]) TaskLabel() string { return t.label }

// taskLabel resolves the label of a task, "" when it carries none.
func taskLabel[R, P any](task Task[R, P]) string {
	if lb, ok := any(task).(Labeler); ok {
		return lb.TaskLabel()
	}
	return ""
}

// =============================================================================
// Small task adapters
// =============================================================================

// Completed returns a task that reports Ready(value) on its first poll and
// is exhausted afterwards.
func Completed[R, P any](value R) Task[R, P] {
	return &oneShotTask[R, P]{status: Ready[R, P](value)}
}

// FailedTask returns a task that reports a terminal error on its first
// poll.
func FailedTask[R, P any](err error) Task[R, P] {
	return &oneShotTask[R, P]{status: Failed[R, P](err)}
}

// RunOnce wraps fn as a task that runs it a single time and completes with
// the zero value.
func RunOnce[R, P any](fn func()) Task[R, P] {
	return &runOnceTask[R, P]{fn: fn}
}

// FromStatuses replays a fixed sequence, one status per poll. Replay stops
// early at the first terminal status; items run out means exhaustion.
// Useful for tests and for scripting simple workloads.
func FromStatuses[R, P any](statuses ...Status[R, P]) Task[R, P] {
	return &statusSequence[R, P]{statuses: statuses}
}

// FromSeq drains an iterator, one status per poll. Like FromStatuses it
// stops at the first terminal status; a drained iterator means
// exhaustion. The iterator is released either way.
func FromSeq[R, P any](seq iter.Seq[Status[R, P]]) Task[R, P] {
	next, stop := iter.Pull(seq)
	return &seqTask[R, P]{next: next, stop: stop}
}

type oneShotTask[R, P any] struct {
	status Status[R, P]
	done   bool
}

func (t *oneShotTask[R, P]) Poll() (Status[R, P], bool) {
	if t.done {
		var zero Status[R, P]
		return zero, false
	}
	t.done = true
	return t.status, true
}

type runOnceTask[R, P any] struct {
	fn   func()
	done bool
}

func (t *runOnceTask[R, P]) Poll() (Status[R, P], bool) {
	if t.done {
		var zero Status[R, P]
		return zero, false
	}
	t.done = true
	if t.fn != nil {
		t.fn()
	}
	var value R
	return Ready[R, P](value), true
}

type seqTask[R, P any] struct {
	next func() (Status[R, P], bool)
	stop func()
	done bool
}

func (t *seqTask[R, P]) Poll() (Status[R, P], bool) {
	var zero Status[R, P]
	if t.done {
		return zero, false
	}
	st, ok := t.next()
	if !ok {
		t.done = true
		t.stop()
		return zero, false
	}
	if st.IsTerminal() {
		t.done = true
		t.stop()
	}
	return st, true
}

type statusSequence[R, P any] struct {
	statuses []Status[R, P]
	next     int
	done     bool
}

func (t *statusSequence[R, P]) Poll() (Status[R, P], bool) {
	if t.done || t.next >= len(t.statuses) {
		t.done = true
		var zero Status[R, P]
		return zero, false
	}
	st := t.statuses[t.next]
	t.next++
	if st.IsTerminal() {
		t.done = true
	}
	return st, true
}
