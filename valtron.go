package valtron

import (
	"context"
	"iter"
	"time"

	"github.com/ewe-studios/go-valtron/core"
)

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the valtron package for most use cases.

// Task is the unit of work. R is the result type, P the progress type.
type Task[R, P any] = core.Task[R, P]

// TaskFunc adapts a plain closure into a Task.
type TaskFunc[R, P any] = core.TaskFunc[R, P]

// Status is the report a single poll returns.
type Status[R, P any] = core.Status[R, P]

// StatusKind discriminates the five status variants.
type StatusKind = core.StatusKind

// Observation is the consumer's view of a submitted task.
type Observation[R, P any] = core.Observation[R, P]

// Engine polls submitted tasks until they retire.
type Engine[R, P any] = core.Engine[R, P]

// SingleThreadEngine runs every task on one worker loop.
type SingleThreadEngine[R, P any] = core.SingleThreadEngine[R, P]

// ThreadPoolEngine distributes tasks across a fixed pool of worker loops.
type ThreadPoolEngine[R, P any] = core.ThreadPoolEngine[R, P]

// Options configures an engine. The zero value is usable.
type Options = core.Options

// EngineStats snapshots engine queue depths and counters.
type EngineStats = core.EngineStats

// WorkerStats snapshots one worker loop.
type WorkerStats = core.WorkerStats

// Entry is a generational handle to a live task slot.
type Entry = core.Entry

// ExecutionAction is the one-shot scheduling request a Spawn status carries.
type ExecutionAction[R, P any] = core.ExecutionAction[R, P]

// Scheduler is the surface an ExecutionAction applies against.
type Scheduler[R, P any] = core.Scheduler[R, P]

// Strategy bundles an optional action for composite scheduling decisions.
type Strategy[R, P any] = core.Strategy[R, P]

// Machine runs a state-transition function as a Task.
type Machine[S, R, P any] = core.Machine[S, R, P]

// Transition is one step decision of a Machine.
type Transition[S, R, P any] = core.Transition[S, R, P]

// Future resolves a single value without blocking the poller.
type Future[T any] = core.Future[T]

// Stream yields a sequence of values without blocking the poller.
type Stream[T any] = core.Stream[T]

// Item is one element drawn from a Stream. OK is false on the end marker.
type Item[T any] = core.Item[T]

// BackoffStrategy computes retry pauses.
type BackoffStrategy = core.BackoffStrategy

// FixedBackoff pauses the same duration between every attempt.
type FixedBackoff = core.FixedBackoff

// ExponentialBackoff multiplies the pause after each attempt.
type ExponentialBackoff = core.ExponentialBackoff

// LinearBackoff grows the pause by a fixed step each attempt.
type LinearBackoff = core.LinearBackoff

// RetryOptions tunes a retrying task.
type RetryOptions[R, P any] = core.RetryOptions[R, P]

// RetryingTask re-runs a task factory until success or budget exhaustion.
type RetryingTask[R, P any] = core.RetryingTask[R, P]

// TimeoutTask fails its inner task once a wall-clock budget elapses.
type TimeoutTask[R, P any] = core.TimeoutTask[R, P]

// PollBudgetTask fails its inner task after a fixed number of polls.
type PollBudgetTask[R, P any] = core.PollBudgetTask[R, P]

// Journal records task submissions and outcomes.
type Journal = core.Journal

// JournalRecord is one journalled task lifecycle.
type JournalRecord = core.JournalRecord

// JournalFilter narrows Journal.List results.
type JournalFilter = core.JournalFilter

// MemoryJournal is the in-process Journal implementation.
type MemoryJournal = core.MemoryJournal

// Logger is the leveled logging surface engines write to.
type Logger = core.Logger

// Field is one structured logging key/value pair.
type Field = core.Field

// Metrics receives engine loop measurements.
type Metrics = core.Metrics

// PanicHandler observes recovered task panics.
type PanicHandler = core.PanicHandler

// RejectedHandler observes refused submissions.
type RejectedHandler = core.RejectedHandler

// PanicError wraps a recovered panic value and its stack.
type PanicError = core.PanicError

// Event is one engine lifecycle notification.
type Event = core.Event

// EventKind names the engine lifecycle notifications.
type EventKind = core.EventKind

// EventSink receives engine lifecycle events.
type EventSink = core.EventSink

// Labeler lets a task carry a human-readable name.
type Labeler = core.Labeler

// Status kind constants.
const (
	KindPending StatusKind = core.KindPending
	KindReady   StatusKind = core.KindReady
	KindDelayed StatusKind = core.KindDelayed
	KindSpawn   StatusKind = core.KindSpawn
	KindError   StatusKind = core.KindError
)

// Terminal outcome labels shared by journal records, events and metrics.
const (
	OutcomeReady     = core.OutcomeReady
	OutcomeError     = core.OutcomeError
	OutcomeCanceled  = core.OutcomeCanceled
	OutcomeExhausted = core.OutcomeExhausted

	// LiveOutcome is the JournalFilter value matching unfinished records.
	LiveOutcome = core.LiveOutcome
)

// Event kind constants.
const (
	EventSubmitted EventKind = core.EventSubmitted
	EventSpawned   EventKind = core.EventSpawned
	EventRetired   EventKind = core.EventRetired
	EventPanicked  EventKind = core.EventPanicked
	EventRejected  EventKind = core.EventRejected
)

// Engine name labels, as reported by EngineStats and journal records.
const (
	EngineSingleThread = core.EngineSingleThread
	EngineThreadPool   = core.EngineThreadPool
)

// Sentinel errors.
var (
	ErrNilTask            = core.ErrNilTask
	ErrActionConsumed     = core.ErrActionConsumed
	ErrCanceled           = core.ErrCanceled
	ErrQueueFull          = core.ErrQueueFull
	ErrEngineShuttingDown = core.ErrEngineShuttingDown
	ErrEngineNotRunning   = core.ErrEngineNotRunning
	ErrEngineStopped      = core.ErrEngineStopped
	ErrShutdownTimeout    = core.ErrShutdownTimeout
	ErrTimedOut           = core.ErrTimedOut
	ErrPollBudgetExceeded = core.ErrPollBudgetExceeded
)

// Non-generic constructors re-exported as values.
var (
	F                = core.F
	NewDefaultLogger = core.NewDefaultLogger
	NewNoOpLogger    = core.NewNoOpLogger
	NewMemoryJournal = core.NewMemoryJournal
)

// Ready reports a finished task carrying its final value.
func Ready[R, P any](value R) Status[R, P] { return core.Ready[R, P](value) }

// Pending reports progress and asks to be polled again.
func Pending[R, P any](progress P) Status[R, P] { return core.Pending[R, P](progress) }

// Delayed asks to sleep at least d before the next poll.
func Delayed[R, P any](d time.Duration, progress P) Status[R, P] {
	return core.Delayed[R, P](d, progress)
}

// Spawn hands the engine a one-shot scheduling action; the reporting task
// stays live.
func Spawn[R, P any](action ExecutionAction[R, P], progress P) Status[R, P] {
	return core.Spawn(action, progress)
}

// Failed reports a terminal failure.
func Failed[R, P any](err error) Status[R, P] { return core.Failed[R, P](err) }

// Completed builds a task that is immediately Ready with value.
func Completed[R, P any](value R) Task[R, P] { return core.Completed[R, P](value) }

// FailedTask builds a task that immediately fails with err.
func FailedTask[R, P any](err error) Task[R, P] { return core.FailedTask[R, P](err) }

// RunOnce builds a task that runs fn on its first poll and completes.
func RunOnce[R, P any](fn func()) Task[R, P] { return core.RunOnce[R, P](fn) }

// FromStatuses builds a task that replays the given statuses in order.
func FromStatuses[R, P any](statuses ...Status[R, P]) Task[R, P] {
	return core.FromStatuses(statuses...)
}

// FromSeq builds a task that drains an iterator, one status per poll.
func FromSeq[R, P any](seq iter.Seq[Status[R, P]]) Task[R, P] {
	return core.FromSeq(seq)
}

// WithLabel attaches a human-readable name to a task for journals and logs.
func WithLabel[R, P any](label string, task Task[R, P]) Task[R, P] {
	return core.WithLabel(label, task)
}

// NewLift builds an action placing task at the front of the current run
// queue, linked to the spawning task as its parent.
func NewLift[R, P any](task Task[R, P]) ExecutionAction[R, P] { return core.NewLift(task) }

// NewSchedule builds an action appending task at the back of the current
// run queue.
func NewSchedule[R, P any](task Task[R, P]) ExecutionAction[R, P] { return core.NewSchedule(task) }

// NewScheduleFunc builds a schedule action from a plain closure.
func NewScheduleFunc[R, P any](fn func()) ExecutionAction[R, P] {
	return core.NewScheduleFunc[R, P](fn)
}

// NewBroadcast builds an action delivering value to each callback on a
// globally scheduled follow-up task.
func NewBroadcast[V any, R, P any](value V, callbacks ...func(V)) ExecutionAction[R, P] {
	return core.NewBroadcast[V, R, P](value, callbacks...)
}

// NewBroadcastTask builds an action offering task to every worker through
// the global queue.
func NewBroadcastTask[R, P any](task Task[R, P]) ExecutionAction[R, P] {
	return core.NewBroadcastTask(task)
}

// Strategy constructors for composite scheduling decisions.
func LiftStrategy[R, P any](task Task[R, P]) Strategy[R, P] { return core.LiftStrategy(task) }

func ScheduleStrategy[R, P any](task Task[R, P]) Strategy[R, P] {
	return core.ScheduleStrategy(task)
}

func BroadcastStrategy[V any, R, P any](value V, callbacks ...func(V)) Strategy[R, P] {
	return core.BroadcastStrategy[V, R, P](value, callbacks...)
}

func CustomStrategy[R, P any](action ExecutionAction[R, P]) Strategy[R, P] {
	return core.CustomStrategy(action)
}

func NoStrategy[R, P any]() Strategy[R, P] { return core.NoStrategy[R, P]() }

// NewSingleThreadEngine builds the caller-drivable single-worker engine.
func NewSingleThreadEngine[R, P any](opts Options) *SingleThreadEngine[R, P] {
	return core.NewSingleThreadEngine[R, P](opts)
}

// NewThreadPoolEngine builds the multi-worker engine.
func NewThreadPoolEngine[R, P any](opts Options) *ThreadPoolEngine[R, P] {
	return core.NewThreadPoolEngine[R, P](opts)
}

// NewMachine runs step as a state machine task starting from initial.
func NewMachine[S, R, P any](initial S, step func(S) Transition[S, R, P]) *Machine[S, R, P] {
	return core.NewMachine(initial, step)
}

// Continue moves a machine to the next state without reporting progress.
func Continue[S, R, P any](next S) Transition[S, R, P] { return core.Continue[S, R, P](next) }

// Yield reports progress out and moves the machine to next.
func Yield[S, R, P any](out P, next S) Transition[S, R, P] { return core.Yield[S, R, P](out, next) }

// Complete finishes the machine with value.
func Complete[S, R, P any](value R) Transition[S, R, P] { return core.Complete[S, R, P](value) }

// Halt fails the machine with err.
func Halt[S, R, P any](err error) Transition[S, R, P] { return core.Halt[S, R, P](err) }

// Sleep pauses the machine at least d before entering next.
func Sleep[S, R, P any](d time.Duration, next S) Transition[S, R, P] {
	return core.Sleep[S, R, P](d, next)
}

// Dispatch hands the engine action and moves the machine to next.
func Dispatch[S, R, P any](action ExecutionAction[R, P], next S) Transition[S, R, P] {
	return core.Dispatch[S, R, P](action, next)
}

// AwaitFuture polls f to resolution, reporting marker as progress while
// the value is not ready yet.
func AwaitFuture[T, P any](f Future[T], marker P) Task[T, P] {
	return core.AwaitFuture(f, marker)
}

// AwaitStream surfaces each stream element as a Ready item, ending with a
// zero Item whose OK is false.
func AwaitStream[T, P any](s Stream[T], marker P) Task[Item[T], P] {
	return core.AwaitStream(s, marker)
}

// ChannelFuture resolves with the first value received from ch, or the
// zero value once ch closes.
func ChannelFuture[T any](ch <-chan T) Future[T] { return core.ChannelFuture(ch) }

// ChannelStream yields every value received from ch until it closes.
func ChannelStream[T any](ch <-chan T) Stream[T] { return core.ChannelStream(ch) }

// GoFuture runs fn on its own goroutine and resolves with its result.
func GoFuture[T any](fn func() T) Future[T] { return core.GoFuture(fn) }

// NewRetrying re-runs tasks built by factory until one succeeds or the
// retry budget is spent.
func NewRetrying[R, P any](factory func() Task[R, P], opts RetryOptions[R, P]) *RetryingTask[R, P] {
	return core.NewRetrying(factory, opts)
}

// NewTimeout fails task with ErrTimedOut once limit elapses after the
// first poll. limit <= 0 disables the budget.
func NewTimeout[R, P any](task Task[R, P], limit time.Duration) *TimeoutTask[R, P] {
	return core.NewTimeout(task, limit)
}

// NewPollBudget fails task with ErrPollBudgetExceeded after budget polls.
func NewPollBudget[R, P any](task Task[R, P], budget int) *PollBudgetTask[R, P] {
	return core.NewPollBudget(task, budget)
}

// Execute submits task to eng and waits for its terminal status.
func Execute[R, P any](ctx context.Context, eng Engine[R, P], task Task[R, P]) (Status[R, P], error) {
	obs, err := eng.SubmitSchedule(task)
	if err != nil {
		return Status[R, P]{}, err
	}
	return obs.Wait(ctx)
}
