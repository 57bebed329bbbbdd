package core

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// pollLoop is the per-worker scheduling core shared by both engines: an
// arena of task slots, a double-ended run queue and a deadline heap. It is
// owned by exactly one goroutine. Cross-thread work never touches these
// structures directly; it arrives through the engine's intake channel or
// the global queue and is admitted here by the owner.
//
// pollLoop implements Scheduler, so Spawn actions apply straight onto the
// worker that polled them.
type pollLoop[R, P any] struct {
	engine string
	worker int
	opts   Options

	arena  arena[R, P]
	run    *runQueue
	delays *delayHeap

	// broadcast routes a Broadcast action: onto the global queue in the
	// thread pool, back onto the local queue single-threaded.
	broadcast func(task Task[R, P], label string) error

	// Snapshot counters. Written by the owner, read by Stats.
	queuedLen  atomic.Int64
	delayedLen atomic.Int64
	liveLen    atomic.Int64
	polls      atomic.Uint64
	steals     atomic.Uint64
	retired    atomic.Uint64
	panicked   atomic.Uint64
}

func newPollLoop[R, P any](engine string, worker int, opts Options, broadcast func(Task[R, P], string) error) *pollLoop[R, P] {
	return &pollLoop[R, P]{
		engine:    engine,
		worker:    worker,
		opts:      opts,
		run:       newRunQueue(),
		delays:    newDelayHeap(),
		broadcast: broadcast,
	}
}

// admit places a task into the arena and its starting queue position.
// parent is the zero Entry for roots; obs is nil for spawned children.
// A task canceled before admission is dropped on the spot.
func (l *pollLoop[R, P]) admit(task Task[R, P], parent Entry, obs *Observation[R, P], label string, front bool) Entry {
	if obs != nil && obs.isCanceled() {
		obs.close()
		return Entry{}
	}
	e := l.arena.insert(task, parent, obs, label)
	if front {
		l.run.PushFront(e)
	} else {
		l.run.PushBack(e)
	}
	l.syncCounters()
	return e
}

// promoteDue moves every expired delay back to the run queue and reports
// how many moved.
func (l *pollLoop[R, P]) promoteDue(now time.Time) int {
	due := l.delays.Due(now)
	for _, e := range due {
		if s := l.arena.get(e); s != nil {
			s.state = slotQueued
			l.run.PushBack(e)
		}
	}
	if len(due) > 0 {
		l.syncCounters()
	}
	return len(due)
}

// step pops and polls one task, routing the resulting status. It reports
// false when the run queue is empty.
func (l *pollLoop[R, P]) step(now time.Time) bool {
	e, ok := l.run.PopFront()
	if !ok {
		return false
	}
	s := l.arena.get(e)
	if s == nil {
		// Stale handle; the slot was already retired.
		return true
	}
	if s.obs != nil && s.obs.isCanceled() {
		l.finish(e, s, Status[R, P]{}, OutcomeCanceled)
		return true
	}

	s.state = slotPolling
	s.polls++
	l.polls.Add(1)

	start := time.Now()
	st, alive := l.pollTask(s)
	if !alive {
		l.finish(e, s, Status[R, P]{}, OutcomeExhausted)
		return true
	}
	l.opts.Metrics.RecordPoll(l.engine, s.label, st.Kind(), time.Since(start))

	switch st.Kind() {
	case KindReady:
		l.finish(e, s, st, OutcomeReady)
	case KindError:
		l.reportFailure(e, s, st)
		l.finish(e, s, st, OutcomeError)
	case KindDelayed:
		s.state = slotDelayed
		l.delays.Park(e, now.Add(st.Delay()))
		l.observe(s, st)
	case KindSpawn:
		l.applySpawn(e, s, st)
		s.state = slotQueued
		l.run.PushBack(e)
		// Observers see a spawning task as ordinary progress.
		l.observe(s, Pending[R, P](st.Progress()))
	default: // KindPending
		s.state = slotQueued
		l.run.PushBack(e)
		l.observe(s, st)
	}
	l.syncCounters()
	l.opts.Metrics.RecordQueueDepth(l.engine, l.worker, l.run.Len(), l.delays.Len())
	return true
}

// pollTask runs one poll step, converting a panic into a terminal error
// status so one bad task cannot take the worker down.
func (l *pollLoop[R, P]) pollTask(s *slot[R, P]) (st Status[R, P], alive bool) {
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			l.panicked.Add(1)
			l.opts.Panic.HandlePanic(l.engine, l.worker, s.label, r, perr.Stack)
			l.opts.Metrics.RecordPanic(l.engine, s.label)
			l.publish(Event{Kind: EventPanicked, Label: s.label, Error: perr.Error()})
			st = Failed[R, P](perr)
			alive = true
		}
	}()
	return s.task.Poll()
}

// applySpawn hands the status action its one-shot capability. A scheduling
// failure is reported, not fatal: the spawning task keeps running.
func (l *pollLoop[R, P]) applySpawn(e Entry, s *slot[R, P], st Status[R, P]) {
	action := st.Action()
	if action == nil {
		return
	}
	if err := action.Apply(e, l); err != nil {
		l.opts.Logger.Warn("spawn action failed",
			F("engine", l.engine),
			F("worker", l.worker),
			F("label", s.label),
			F("err", err),
		)
		l.opts.Rejected.HandleRejected(l.engine, "spawn", s.label, err)
		l.opts.Metrics.RecordRejected(l.engine, "spawn")
	}
}

// observe forwards a non-terminal status to the root task's observation.
func (l *pollLoop[R, P]) observe(s *slot[R, P], st Status[R, P]) {
	if s.obs != nil {
		s.obs.emit(st)
	}
}

// finish retires a slot. st is meaningful only for the ready and error
// outcomes; canceled and exhausted close the observation without a
// terminal status.
func (l *pollLoop[R, P]) finish(e Entry, s *slot[R, P], st Status[R, P], outcome string) {
	obs, label, polls := s.obs, s.label, s.polls
	l.arena.retire(e)
	l.retired.Add(1)
	l.opts.Metrics.RecordRetired(l.engine, outcome)

	errText := ""
	if st.Err() != nil {
		errText = st.Err().Error()
	}

	if obs != nil {
		switch outcome {
		case OutcomeReady, OutcomeError:
			obs.finish(st)
		default:
			obs.close()
		}
		err := l.opts.Journal.RecordFinished(context.Background(), obs.ID(), outcome, errText, polls, time.Now())
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			l.opts.Logger.Warn("journal update failed", F("id", obs.ID()), F("err", err))
		}
		l.publish(Event{Kind: EventRetired, Observation: obs.ID(), Label: label, Outcome: outcome, Error: errText})
	} else {
		l.publish(Event{Kind: EventRetired, Label: label, Outcome: outcome, Error: errText})
	}
	l.syncCounters()
}

// reportFailure logs a terminal error, including the lift ancestry when
// the failing task was spawned by another.
func (l *pollLoop[R, P]) reportFailure(e Entry, s *slot[R, P], st Status[R, P]) {
	fields := []Field{
		F("engine", l.engine),
		F("worker", l.worker),
		F("label", s.label),
		F("err", st.Err()),
	}
	if !s.parent.IsZero() {
		fields = append(fields, F("lineage", l.arena.lineage(e)))
	}
	l.opts.Logger.Error("task failed", fields...)
}

// drainAll drops every live slot, closing open observations without a
// terminal status. Called by the owning worker on its way out.
func (l *pollLoop[R, P]) drainAll() {
	n := l.arena.drain()
	if n > 0 {
		l.opts.Logger.Warn("dropped live tasks at stop",
			F("engine", l.engine),
			F("worker", l.worker),
			F("count", n),
		)
	}
	l.run = newRunQueue()
	l.delays = newDelayHeap()
	l.syncCounters()
}

func (l *pollLoop[R, P]) publish(ev Event) {
	ev.Engine = l.engine
	ev.Worker = l.worker
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	l.opts.Events.Publish(ev)
}

func (l *pollLoop[R, P]) syncCounters() {
	l.queuedLen.Store(int64(l.run.Len()))
	l.delayedLen.Store(int64(l.delays.Len()))
	l.liveLen.Store(int64(l.arena.len()))
}

func (l *pollLoop[R, P]) stats() WorkerStats {
	return WorkerStats{
		ID:      l.worker,
		Queued:  int(l.queuedLen.Load()),
		Delayed: int(l.delayedLen.Load()),
		Live:    int(l.liveLen.Load()),
		Polls:   l.polls.Load(),
		Steals:  l.steals.Load(),
	}
}

// =============================================================================
// Scheduler implementation
// =============================================================================

// Lift implements Scheduler: the child runs before anything already queued
// here and remembers parent for diagnostics.
func (l *pollLoop[R, P]) Lift(child Task[R, P], parent Entry) error {
	if child == nil {
		return ErrNilTask
	}
	label := taskLabel(child)
	l.admit(child, parent, nil, label, true)
	l.publish(Event{Kind: EventSpawned, Strategy: "lift", Label: label})
	return nil
}

// Schedule implements Scheduler.
func (l *pollLoop[R, P]) Schedule(child Task[R, P]) error {
	if child == nil {
		return ErrNilTask
	}
	label := taskLabel(child)
	l.admit(child, Entry{}, nil, label, false)
	l.publish(Event{Kind: EventSpawned, Strategy: "schedule", Label: label})
	return nil
}

// Broadcast implements Scheduler.
func (l *pollLoop[R, P]) Broadcast(child Task[R, P]) error {
	if child == nil {
		return ErrNilTask
	}
	label := taskLabel(child)
	if err := l.broadcast(child, label); err != nil {
		return err
	}
	l.publish(Event{Kind: EventSpawned, Strategy: "broadcast", Label: label})
	return nil
}
