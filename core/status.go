package core

import (
	"fmt"
	"time"
)

// =============================================================================
// StatusKind: the variant tag of a Status value
// =============================================================================

type StatusKind uint8

const (
	// KindPending: the task made progress and wants to be polled again.
	KindPending StatusKind = iota

	// KindReady: the task finished and carries its final value.
	KindReady

	// KindDelayed: the task wants to sleep for at least the given duration
	// before its next poll.
	KindDelayed

	// KindSpawn: the task hands the engine a one-shot scheduling action.
	// The task itself stays live, as if it had reported Pending.
	KindSpawn

	// KindError: the task failed. The error is terminal.
	KindError
)

func (k StatusKind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindReady:
		return "ready"
	case KindDelayed:
		return "delayed"
	case KindSpawn:
		return "spawn"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsTerminal reports whether the kind ends a task's lifecycle.
func (k StatusKind) IsTerminal() bool {
	return k == KindReady || k == KindError
}

// =============================================================================
// Status: what one poll step reported
// =============================================================================

// Status is the result of a single poll. It is a tagged value: exactly one
// variant payload is meaningful, selected by Kind. Statuses never nest; a
// decorator that forwards an inner status hands it on as-is instead of
// wrapping it again.
//
// R is the final value type (Ready), P the progress marker type carried by
// the non-terminal variants.
type Status[R, P any] struct {
	kind     StatusKind
	value    R
	progress P
	delay    time.Duration
	action   ExecutionAction[R, P]
	err      error
}

// Ready reports completion with the task's final value. A task must report
// Ready at most once and must not be polled again afterwards.
func Ready[R, P any](value R) Status[R, P] {
	return Status[R, P]{kind: KindReady, value: value}
}

// Pending reports forward progress. The engine re-queues the task at the
// back of its run queue.
func Pending[R, P any](progress P) Status[R, P] {
	return Status[R, P]{kind: KindPending, progress: progress}
}

// Delayed parks the task for at least d. Negative durations are treated as
// zero, which re-queues the task on the engine's next pass.
func Delayed[R, P any](d time.Duration, progress P) Status[R, P] {
	if d < 0 {
		d = 0
	}
	return Status[R, P]{kind: KindDelayed, delay: d, progress: progress}
}

// Spawn hands the engine a one-shot scheduling action and keeps the
// reporting task live. Observers of the task see it as ordinary progress.
func Spawn[R, P any](action ExecutionAction[R, P], progress P) Status[R, P] {
	return Status[R, P]{kind: KindSpawn, action: action, progress: progress}
}

// Failed reports a terminal failure.
func Failed[R, P any](err error) Status[R, P] {
	return Status[R, P]{kind: KindError, err: err}
}

func (s Status[R, P]) Kind() StatusKind { return s.kind }

// Value returns the final value of a Ready status. It is the zero value
// for every other kind.
func (s Status[R, P]) Value() R { return s.value }

// Progress returns the progress marker of a Pending, Delayed or Spawn
// status.
func (s Status[R, P]) Progress() P { return s.progress }

// Delay returns the requested sleep of a Delayed status.
func (s Status[R, P]) Delay() time.Duration { return s.delay }

// Action returns the scheduling action of a Spawn status, nil otherwise.
func (s Status[R, P]) Action() ExecutionAction[R, P] { return s.action }

// Err returns the terminal error of a failed status, nil otherwise.
func (s Status[R, P]) Err() error { return s.err }

// IsTerminal reports whether the status ends the task's lifecycle.
func (s Status[R, P]) IsTerminal() bool { return s.kind.IsTerminal() }

func (s Status[R, P]) String() string {
	switch s.kind {
	case KindReady:
		return fmt.Sprintf("status(ready %v)", s.value)
	case KindDelayed:
		return fmt.Sprintf("status(delayed %s)", s.delay)
	case KindError:
		return fmt.Sprintf("status(error %v)", s.err)
	default:
		return fmt.Sprintf("status(%s)", s.kind)
	}
}
