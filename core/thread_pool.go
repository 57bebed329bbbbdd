package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadPoolEngine distributes tasks over a fixed pool of worker
// goroutines. Each worker owns its own pollLoop, so a task never migrates
// once admitted: external submissions are routed round-robin to worker
// intake channels, broadcasts go through the shared global queue and are
// taken by whichever worker runs out of local work first.
type ThreadPoolEngine[R, P any] struct {
	opts    Options
	workers []*poolWorker[R, P]
	global  *globalQueue[R, P]

	state        atomic.Int32
	shuttingDown atomic.Bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	next         atomic.Uint32 // round-robin cursor

	submitted atomic.Uint64
	rejected  atomic.Uint64
}

type poolWorker[R, P any] struct {
	id     int
	loop   *pollLoop[R, P]
	intake chan submission[R, P]
	wake   chan struct{}
}

// NewThreadPoolEngine builds the engine with opts.Workers workers. Start
// launches them.
func NewThreadPoolEngine[R, P any](opts Options) *ThreadPoolEngine[R, P] {
	o := opts.withDefaults()
	e := &ThreadPoolEngine[R, P]{opts: o}
	e.global = newGlobalQueue[R, P](o.GlobalQueueCapacity, o.Workers)
	e.workers = make([]*poolWorker[R, P], o.Workers)
	for i := range e.workers {
		w := &poolWorker[R, P]{
			id:     i,
			intake: make(chan submission[R, P], o.IntakeCapacity),
			wake:   make(chan struct{}, 1),
		}
		w.loop = newPollLoop[R, P](EngineThreadPool, i, o, e.pushBroadcast)
		e.workers[i] = w
	}
	return e
}

// pushBroadcast routes an in-task Broadcast action onto the global queue.
func (e *ThreadPoolEngine[R, P]) pushBroadcast(task Task[R, P], label string) error {
	if e.shuttingDown.Load() {
		return ErrEngineShuttingDown
	}
	return e.global.push(globalItem[R, P]{task: task, label: label})
}

func (e *ThreadPoolEngine[R, P]) Start(ctx context.Context) error {
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
	for _, w := range e.workers {
		e.wg.Add(1)
		go e.run(ctx, w)
	}
	e.opts.Logger.Info("engine started",
		F("engine", EngineThreadPool),
		F("workers", len(e.workers)),
	)
	return nil
}

// run is one worker's loop: admit intake, promote due delays, poll local
// work, steal a broadcast when idle, park otherwise.
func (e *ThreadPoolEngine[R, P]) run(ctx context.Context, w *poolWorker[R, P]) {
	defer e.wg.Done()
	defer w.loop.drainAll()

	idleTimer := time.NewTimer(time.Hour)
	stopTimer(idleTimer)
	defer idleTimer.Stop()

	for {
		e.drainIntake(w)
		now := time.Now()
		w.loop.promoteDue(now)

		if w.loop.step(now) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		// Local run queue is empty; look for a stranded broadcast.
		if it, ok := e.global.pop(); ok {
			w.loop.steals.Add(1)
			e.opts.Metrics.RecordSteal(EngineThreadPool, w.id)
			w.loop.admit(it.task, Entry{}, it.obs, it.label, false)
			continue
		}

		if ctx.Err() != nil {
			return
		}
		if e.shuttingDown.Load() && e.workerIdle(w) {
			return
		}

		if deadline, ok := w.loop.delays.NextDeadline(); ok {
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
			case sub := <-w.intake:
				stopTimer(idleTimer)
				e.accept(w, sub)
			case <-e.global.signal:
				stopTimer(idleTimer)
			case <-w.wake:
				stopTimer(idleTimer)
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case sub := <-w.intake:
				e.accept(w, sub)
			case <-e.global.signal:
			case <-w.wake:
			}
		}
	}
}

func (e *ThreadPoolEngine[R, P]) drainIntake(w *poolWorker[R, P]) {
	for {
		select {
		case sub := <-w.intake:
			e.accept(w, sub)
		default:
			return
		}
	}
}

func (e *ThreadPoolEngine[R, P]) accept(w *poolWorker[R, P], sub submission[R, P]) {
	w.loop.admit(sub.task, Entry{}, sub.obs, sub.label, sub.front)
}

// workerIdle reports whether w has nothing left to do. The global queue
// must be empty too, or a parked broadcast would be stranded.
func (e *ThreadPoolEngine[R, P]) workerIdle(w *poolWorker[R, P]) bool {
	return len(w.intake) == 0 &&
		w.loop.run.Len() == 0 &&
		w.loop.delays.Len() == 0 &&
		e.global.len() == 0
}

func (e *ThreadPoolEngine[R, P]) submit(task Task[R, P], strategy string, front bool) (*Observation[R, P], error) {
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

	var err error
	if strategy == "broadcast" {
		err = e.global.push(globalItem[R, P]{task: task, obs: obs, label: label})
	} else {
		idx := int(e.next.Add(1)-1) % len(e.workers)
		w := e.workers[idx]
		select {
		case w.intake <- submission[R, P]{task: task, obs: obs, label: label, front: front}:
		default:
			err = ErrQueueFull
		}
	}
	if err != nil {
		e.rejected.Add(1)
		recordRejection(e.opts, EngineThreadPool, label, strategy, err)
		return nil, err
	}
	e.submitted.Add(1)
	recordSubmission(e.opts, EngineThreadPool, obs.ID(), label, strategy)
	return obs, nil
}

func (e *ThreadPoolEngine[R, P]) SubmitSchedule(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "schedule", false)
}

func (e *ThreadPoolEngine[R, P]) SubmitLift(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "lift", true)
}

func (e *ThreadPoolEngine[R, P]) SubmitBroadcast(task Task[R, P]) (*Observation[R, P], error) {
	return e.submit(task, "broadcast", false)
}

// Stop halts all workers without draining. Safe to call more than once.
func (e *ThreadPoolEngine[R, P]) Stop() {
	if e.state.CompareAndSwap(engineNew, engineStopped) {
		e.shuttingDown.Store(true)
		e.closeLeftovers()
		return
	}
	if !e.state.CompareAndSwap(engineRunning, engineStopped) {
		return
	}
	e.shuttingDown.Store(true)
	e.cancel()
	e.wg.Wait()
	e.closeLeftovers()
	e.opts.Logger.Info("engine stopped", F("engine", EngineThreadPool))
}

// StopGraceful refuses new submissions and broadcasts, waits for every
// worker to drain its local work and the global queue, then stops.
// timeout <= 0 waits without limit.
func (e *ThreadPoolEngine[R, P]) StopGraceful(timeout time.Duration) error {
	if e.state.Load() != engineRunning {
		return ErrEngineNotRunning
	}
	e.shuttingDown.Store(true)
	for _, w := range e.workers {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()

	if timeout > 0 {
		select {
		case <-drained:
		case <-time.After(timeout):
			e.opts.Logger.Warn("graceful shutdown timed out",
				F("engine", EngineThreadPool),
				F("timeout", timeout),
			)
			e.Stop()
			return ErrShutdownTimeout
		}
	} else {
		<-drained
	}

	e.state.Store(engineStopped)
	e.cancel()
	e.closeLeftovers()
	e.opts.Logger.Info("engine stopped gracefully", F("engine", EngineThreadPool))
	return nil
}

// closeLeftovers closes the observations of submissions that never
// reached a worker: broadcasts still on the global queue and submissions
// that raced into an intake channel after its worker exited.
func (e *ThreadPoolEngine[R, P]) closeLeftovers() {
	for _, it := range e.global.close() {
		if it.obs != nil {
			it.obs.close()
		}
	}
	for _, w := range e.workers {
	drain:
		for {
			select {
			case sub := <-w.intake:
				if sub.obs != nil {
					sub.obs.close()
				}
			default:
				break drain
			}
		}
	}
}

func (e *ThreadPoolEngine[R, P]) Stats() EngineStats {
	ws := make([]WorkerStats, len(e.workers))
	var retired, panics uint64
	for i, w := range e.workers {
		ws[i] = w.loop.stats()
		retired += w.loop.retired.Load()
		panics += w.loop.panicked.Load()
	}
	return EngineStats{
		Engine:       EngineThreadPool,
		Running:      e.state.Load() == engineRunning,
		Workers:      ws,
		GlobalQueued: e.global.len(),
		Submitted:    e.submitted.Load(),
		Retired:      retired,
		Rejected:     e.rejected.Load(),
		Panics:       panics,
	}
}
