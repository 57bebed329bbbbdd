package core

import (
	"errors"
	"fmt"
)

// ErrActionConsumed reports a second Apply on a one-shot action.
var ErrActionConsumed = errors.New("valtron: execution action already consumed")

// Scheduler is the engine-side surface an ExecutionAction schedules
// through. Implementations are worker-local; actions only ever see the
// scheduler of the worker that polled their parent task.
type Scheduler[R, P any] interface {
	// Lift inserts child at the front of the local run queue, ahead of
	// everything already queued, and links it to parent for diagnostics.
	Lift(child Task[R, P], parent Entry) error

	// Schedule appends child at the back of the local run queue.
	Schedule(child Task[R, P]) error

	// Broadcast offers child to all workers through the shared queue.
	// Single-threaded engines degrade this to Schedule.
	Broadcast(child Task[R, P]) error
}

// ExecutionAction is a one-shot scheduling capability produced by a Spawn
// status. Apply moves the payload out; a second Apply fails with
// ErrActionConsumed.
type ExecutionAction[R, P any] interface {
	Apply(parent Entry, sched Scheduler[R, P]) error
}

// =============================================================================
// Concrete actions
// =============================================================================

// LiftAction schedules its task ahead of everything already queued on the
// applying worker and records the spawning task as its parent.
type LiftAction[R, P any] struct {
	task Task[R, P]
}

func NewLift[R, P any](task Task[R, P]) *LiftAction[R, P] {
	return &LiftAction[R, P]{task: task}
}

func (a *LiftAction[R, P]) Apply(parent Entry, sched Scheduler[R, P]) error {
	if a.task == nil {
		return ErrActionConsumed
	}
	task := a.task
	a.task = nil
	return sched.Lift(task, parent)
}

// ScheduleAction appends its task to the back of the applying worker's run
// queue. The spawned task has no parent link.
type ScheduleAction[R, P any] struct {
	task Task[R, P]
}

func NewSchedule[R, P any](task Task[R, P]) *ScheduleAction[R, P] {
	return &ScheduleAction[R, P]{task: task}
}

// NewScheduleFunc wraps a plain closure as a schedule action. The closure
// runs a single time and the spawned task completes with the zero value.
func NewScheduleFunc[R, P any](fn func()) *ScheduleAction[R, P] {
	return &ScheduleAction[R, P]{task: RunOnce[R, P](fn)}
}

func (a *ScheduleAction[R, P]) Apply(_ Entry, sched Scheduler[R, P]) error {
	if a.task == nil {
		return ErrActionConsumed
	}
	task := a.task
	a.task = nil
	return sched.Schedule(task)
}

// BroadcastAction carries a value and callbacks to run on whichever worker
// pops the broadcast from the shared queue. Each callback receives its own
// copy of the value.
type BroadcastAction[R, P any] struct {
	task Task[R, P]
}

func NewBroadcast[V any, R, P any](value V, callbacks ...func(V)) *BroadcastAction[R, P] {
	cbs := append(([]func(V))(nil), callbacks...)
	return &BroadcastAction[R, P]{task: RunOnce[R, P](func() {
		for _, cb := range cbs {
			if cb != nil {
				cb(value)
			}
		}
	})}
}

// NewBroadcastTask wraps an arbitrary task as a broadcast action.
func NewBroadcastTask[R, P any](task Task[R, P]) *BroadcastAction[R, P] {
	return &BroadcastAction[R, P]{task: task}
}

func (a *BroadcastAction[R, P]) Apply(_ Entry, sched Scheduler[R, P]) error {
	if a.task == nil {
		return ErrActionConsumed
	}
	task := a.task
	a.task = nil
	return sched.Broadcast(task)
}

// NoAction is the inert action: Apply schedules nothing and never fails.
type NoAction[R, P any] struct{}

func (NoAction[R, P]) Apply(Entry, Scheduler[R, P]) error { return nil }

// =============================================================================
// Strategy: tagged composite over the concrete actions
// =============================================================================

type strategyKind uint8

const (
	strategyNone strategyKind = iota
	strategyLift
	strategySchedule
	strategyBroadcast
	strategyCustom
)

func (k strategyKind) String() string {
	switch k {
	case strategyLift:
		return "lift"
	case strategySchedule:
		return "schedule"
	case strategyBroadcast:
		return "broadcast"
	case strategyCustom:
		return "custom"
	default:
		return "none"
	}
}

// Strategy selects exactly one scheduling behavior at construction time
// and dispatches Apply to it. The zero Strategy behaves like NoAction.
type Strategy[R, P any] struct {
	kind   strategyKind
	action ExecutionAction[R, P]
}

func LiftStrategy[R, P any](task Task[R, P]) Strategy[R, P] {
	return Strategy[R, P]{kind: strategyLift, action: NewLift(task)}
}

func ScheduleStrategy[R, P any](task Task[R, P]) Strategy[R, P] {
	return Strategy[R, P]{kind: strategySchedule, action: NewSchedule(task)}
}

func BroadcastStrategy[V any, R, P any](value V, callbacks ...func(V)) Strategy[R, P] {
	return Strategy[R, P]{kind: strategyBroadcast, action: NewBroadcast[V, R, P](value, callbacks...)}
}

// CustomStrategy wraps any user action, including another Strategy.
func CustomStrategy[R, P any](action ExecutionAction[R, P]) Strategy[R, P] {
	return Strategy[R, P]{kind: strategyCustom, action: action}
}

func NoStrategy[R, P any]() Strategy[R, P] {
	return Strategy[R, P]{}
}

func (s Strategy[R, P]) Apply(parent Entry, sched Scheduler[R, P]) error {
	if s.action == nil {
		return nil
	}
	return s.action.Apply(parent, sched)
}

func (s Strategy[R, P]) String() string {
	return fmt.Sprintf("strategy(%s)", s.kind)
}
