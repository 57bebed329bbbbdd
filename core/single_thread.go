package core

import (
	"context"
	"sync/atomic"
	"time"
)

// SingleThreadEngine binds every task to one dedicated pump goroutine.
// Tasks submitted to it are polled strictly sequentially, so workloads
// can share state between tasks without locks.
//
// Submissions from other goroutines funnel through a buffered intake
// channel; the run queue, delay heap and arena are owned by the pump alone
// and need no locking. Broadcast degrades to Schedule: with one worker,
// the local queue is the global queue.
//
// The engine also works without Start: submit tasks and drive them from
// the caller's goroutine with RunUntilIdle. Tests and deterministic
// drivers use that mode.
type SingleThreadEngine[R, P any] struct {
	opts Options
	loop *pollLoop[R, P]

	intake chan submission[R, P]
	wake   chan struct{}

	state        atomic.Int32
	shuttingDown atomic.Bool
	cancel       context.CancelFunc
	done         chan struct{}

	submitted atomic.Uint64
	rejected  atomic.Uint64
}

// NewSingleThreadEngine builds the engine. Start launches the pump;
// alternatively drive it synchronously with RunUntilIdle.
func NewSingleThreadEngine[R, P any](opts Options) *SingleThreadEngine[R, P] {
	o := opts.withDefaults()
	e := &SingleThreadEngine[R, P]{
		opts:   o,
		intake: make(chan submission[R, P], o.IntakeCapacity),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.loop = newPollLoop[R, P](EngineSingleThread, 0, o, e.localBroadcast)
	return e
}

// localBroadcast is the single-threaded degrade of Broadcast: the task
// joins the back of the local run queue, exactly like Schedule.
func (e *SingleThreadEngine[R, P]) localBroadcast(task Task[R, P], label string) error {
	if e.shuttingDown.Load() {
		return ErrEngineShuttingDown
	}
	e.loop.admit(task, Entry{}, nil, label, false)
	return nil
}

func (e *SingleThreadEngine[R, P]) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(engineNew, engineRunning) {
		if e.state.Load() == engineRunning {
			return nil
		}
		return ErrEngineStopped
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, e.cancel = context.WithCancel(ctx)
	go e.pump(ctx)
	e.opts.Logger.Info("engine started", F("engine", EngineSingleThread))
	return nil
}

// pump is the dedicated scheduling goroutine: admit intake, promote due
// delays, poll one task, park when idle.
func (e *SingleThreadEngine[R, P]) pump(ctx context.Context) {
	defer close(e.done)
	defer e.loop.drainAll()

	idleTimer := time.NewTimer(time.Hour)
	stopTimer(idleTimer)
	defer idleTimer.Stop()

	for {
		e.drainIntake()
		now := time.Now()
		e.loop.promoteDue(now)

		if e.loop.step(now) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		// Nothing pollable right now.
		if ctx.Err() != nil {
			return
		}
		if e.shuttingDown.Load() && e.idle() {
			return
		}

		if deadline, ok := e.loop.delays.NextDeadline(); ok {
			wait := time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			idleTimer.Reset(wait)
			select {
			case <-ctx.Done():
				stopTimer(idleTimer)
				return
			case <-idleTimer.C:
			case sub := <-e.intake:
				stopTimer(idleTimer)
				e.accept(sub)
			case <-e.wake:
				stopTimer(idleTimer)
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case sub := <-e.intake:
				e.accept(sub)
			case <-e.wake:
			}
		}
	}
}

// drainIntake admits every pending external submission without blocking.
func (e *SingleThreadEngine[R, P]) drainIntake() {
	for {
		select {
		case sub := <-e.intake:
			e.accept(sub)
		default:
			return
		}
	}
}

func (e *SingleThreadEngine[R, P]) accept(sub submission[R, P]) {
	e.loop.admit(sub.task, Entry{}, sub.obs, sub.label, sub.front)
}

func (e *SingleThreadEngine[R, P]) idle() bool {
	return len(e.intake) == 0 && e.loop.run.Len() == 0 && e.loop.delays.Len() == 0
}

func (e *SingleThreadEngine[R, P]) submit(task Task[R, P], strategy string, front bool) (*Observation[R, P], error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if e.state.Load() == engineStopped {
		return nil, ErrEngineNotRunning
	}
	if e.shuttingDown.Load() {
		return nil, ErrEngineShuttingDown
	}

	label := taskLabel(task)
	obs := newObservation[R, P](label, e.opts.ObservationBuffer)
	select {
	case e.intake <- submission[R, P]{task: task, obs: obs, label: label, front: front}:
	default:
		e.rejected.Add(1)
		recordRejection(e.opts, EngineSingleThread, label, strategy, ErrQueueFull)
		return nil, ErrQueueFull
	}
	e.submitted.Add(1)
	recordSubmission(e.opts, EngineSingleThread, obs.ID(), label, strategy)
	return obs, nil
}

func (e *SingleThreadEngine[R, P]) SubmitSchedule(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "schedule", false)
}

func (e *SingleThreadEngine[R, P]) SubmitLift(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "lift", true)
}

// SubmitBroadcast degrades to SubmitSchedule on this engine; the journal
// and events still record the broadcast intent.
func (e *SingleThreadEngine[R, P]) SubmitBroadcast(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "broadcast", false)
}

// Stop halts the engine without draining. Safe to call more than once.
func (e *SingleThreadEngine[R, P]) Stop() {
	if e.state.CompareAndSwap(engineNew, engineStopped) {
		// Never started; refuse further submissions and release any
		// that were buffered for RunUntilIdle.
		e.shuttingDown.Store(true)
		e.closeIntakeLeftovers()
		return
	}
	if !e.state.CompareAndSwap(engineRunning, engineStopped) {
		return
	}
	e.shuttingDown.Store(true)
	e.cancel()
	<-e.done
	e.closeIntakeLeftovers()
	e.opts.Logger.Info("engine stopped", F("engine", EngineSingleThread))
}

// closeIntakeLeftovers closes the observations of submissions that raced
// into the intake after the pump exited.
func (e *SingleThreadEngine[R, P]) closeIntakeLeftovers() {
	for {
		select {
		case sub := <-e.intake:
			if sub.obs != nil {
				sub.obs.close()
			}
		default:
			return
		}
	}
}

// StopGraceful refuses new submissions and waits for queued and delayed
// work to finish. timeout <= 0 waits without limit.
func (e *SingleThreadEngine[R, P]) StopGraceful(timeout time.Duration) error {
	if e.state.Load() != engineRunning {
		return ErrEngineNotRunning
	}
	e.shuttingDown.Store(true)
	e.nudge()

	if timeout > 0 {
		select {
		case <-e.done:
		case <-time.After(timeout):
			e.opts.Logger.Warn("graceful shutdown timed out",
				F("engine", EngineSingleThread),
				F("timeout", timeout),
			)
			e.Stop()
			return ErrShutdownTimeout
		}
	} else {
		<-e.done
	}

	e.state.Store(engineStopped)
	e.cancel()
	e.closeIntakeLeftovers()
	e.opts.Logger.Info("engine stopped gracefully", F("engine", EngineSingleThread))
	return nil
}

// nudge wakes a parked pump so it re-checks the shutdown flag.
func (e *SingleThreadEngine[R, P]) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// RunUntilIdle drives the engine on the caller's goroutine until the
// intake, run queue and delay heap are all empty, then reports how many
// polls it performed. Pending delays are waited out. It must not be mixed
// with Start; on a started engine it returns 0 immediately.
func (e *SingleThreadEngine[R, P]) RunUntilIdle() int {
	if e.state.Load() == engineRunning {
		return 0
	}
	polls := 0
	for {
		e.drainIntake()
		now := time.Now()
		e.loop.promoteDue(now)
		if e.loop.step(now) {
			polls++
			continue
		}
		if deadline, ok := e.loop.delays.NextDeadline(); ok {
			if wait := time.Until(deadline); wait > 0 {
				time.Sleep(wait)
			}
			continue
		}
		if len(e.intake) == 0 {
			return polls
		}
	}
}

func (e *SingleThreadEngine[R, P]) Stats() EngineStats {
	return EngineStats{
		Engine:    EngineSingleThread,
		Running:   e.state.Load() == engineRunning,
		Workers:   []WorkerStats{e.loop.stats()},
		Submitted: e.submitted.Load(),
		Retired:   e.loop.retired.Load(),
		Rejected:  e.rejected.Load(),
		Panics:    e.loop.panicked.Load(),
	}
}
