package core

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// Engine names used in stats, logs, metrics labels and journal records.
const (
	EngineSingleThread = "single-thread"
	EngineThreadPool   = "thread-pool"
)

var (
	// ErrEngineShuttingDown reports a submission after shutdown began.
	ErrEngineShuttingDown = errors.New("valtron: engine shutting down")

	// ErrEngineNotRunning reports an operation on a stopped engine.
	ErrEngineNotRunning = errors.New("valtron: engine not running")

	// ErrEngineStopped reports a Start on an engine that already ran.
	// Engines are single-use; build a fresh one instead.
	ErrEngineStopped = errors.New("valtron: engine already stopped")

	// ErrShutdownTimeout reports that StopGraceful gave up draining.
	ErrShutdownTimeout = errors.New("valtron: graceful shutdown timed out")
)

// Engine runs pollable tasks to completion. Submissions are safe from any
// goroutine and may happen before Start; consumers follow their task
// through the returned Observation.
type Engine[R, P any] interface {
	// Start launches the engine's workers. It is idempotent while the
	// engine runs and fails with ErrEngineStopped afterwards.
	Start(ctx context.Context) error

	// SubmitSchedule appends the task at the back of a run queue. This is
	// the ordinary way in.
	SubmitSchedule(task Task[R, P]) (*Observation[R, P], error)

	// SubmitLift inserts the task at the front of a run queue, ahead of
	// everything already waiting there.
	SubmitLift(task Task[R, P]) (*Observation[R, P], error)

	// SubmitBroadcast offers the task to all workers through the global
	// queue; whichever goes idle first takes it. Single-threaded engines
	// degrade this to SubmitSchedule.
	SubmitBroadcast(task Task[R, P]) (*Observation[R, P], error)

	// Stop halts immediately. Live tasks are dropped and their
	// observations close without a terminal status.
	Stop()

	// StopGraceful refuses new submissions, drains queued and delayed
	// work, then stops. timeout <= 0 waits without limit.
	StopGraceful(timeout time.Duration) error

	// Stats snapshots queue depths and counters.
	Stats() EngineStats
}

// engine lifecycle states
const (
	engineNew int32 = iota
	engineRunning
	engineStopped
)

// DefaultIntakeCapacity bounds pending external submissions per worker
// when Options leaves it unset.
const DefaultIntakeCapacity = 256

// Options configures an engine. The zero value is usable; every field has
// a working default.
type Options struct {
	// Workers is the pool size of the thread-pool engine. Single-threaded
	// engines ignore it. Defaults to runtime.NumCPU().
	Workers int

	// GlobalQueueCapacity bounds the cross-worker broadcast queue.
	GlobalQueueCapacity int

	// ObservationBuffer bounds buffered intermediate statuses per
	// observation.
	ObservationBuffer int

	// IntakeCapacity bounds pending external submissions per worker.
	// A full intake rejects with ErrQueueFull instead of blocking.
	IntakeCapacity int

	// Logger defaults to DefaultLogger. Metrics, Panic, Rejected, Journal
	// and Events default to their quiet no-op implementations.
	Logger   Logger
	Metrics  Metrics
	Panic    PanicHandler
	Rejected RejectedHandler
	Journal  Journal
	Events   EventSink
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.GlobalQueueCapacity <= 0 {
		o.GlobalQueueCapacity = DefaultGlobalQueueCapacity
	}
	if o.ObservationBuffer <= 0 {
		o.ObservationBuffer = DefaultObservationBuffer
	}
	if o.IntakeCapacity <= 0 {
		o.IntakeCapacity = DefaultIntakeCapacity
	}
	if o.Logger == nil {
		o.Logger = NewDefaultLogger()
	}
	if o.Metrics == nil {
		o.Metrics = NilMetrics{}
	}
	if o.Panic == nil {
		o.Panic = &DefaultPanicHandler{Logger: o.Logger}
	}
	if o.Rejected == nil {
		o.Rejected = &DefaultRejectedHandler{Logger: o.Logger}
	}
	if o.Journal == nil {
		o.Journal = NopJournal{}
	}
	if o.Events == nil {
		o.Events = NopEventSink{}
	}
	return o
}

// submission travels from a Submit* call to the owning worker loop.
type submission[R, P any] struct {
	task  Task[R, P]
	obs   *Observation[R, P]
	label string
	front bool // lift
}

// recordSubmission journals and publishes a successful submission.
func recordSubmission(opts Options, engine, id, label, strategy string) {
	now := time.Now()
	err := opts.Journal.RecordSubmitted(context.Background(), JournalRecord{
		ID:          id,
		Label:       label,
		Engine:      engine,
		Strategy:    strategy,
		SubmittedAt: now,
	})
	if err != nil {
		opts.Logger.Warn("journal submit failed", F("id", id), F("err", err))
	}
	opts.Events.Publish(Event{
		Kind:        EventSubmitted,
		Engine:      engine,
		Observation: id,
		Label:       label,
		Strategy:    strategy,
		At:          now,
	})
}

// recordRejection reports a submission the engine could not accept.
func recordRejection(opts Options, engine, label, strategy string, reason error) {
	opts.Metrics.RecordRejected(engine, strategy)
	opts.Rejected.HandleRejected(engine, strategy, label, reason)
	opts.Events.Publish(Event{
		Kind:     EventRejected,
		Engine:   engine,
		Label:    label,
		Strategy: strategy,
		Error:    reason.Error(),
		At:       time.Now(),
	})
}

// stopTimer halts t and drains a fired-but-unread tick.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
