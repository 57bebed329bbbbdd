package core

import (
	"errors"
	"time"
)

// ErrTimedOut is the terminal error of a task that outlived its wall-clock
// budget.
var ErrTimedOut = errors.New("valtron: task timed out")

// ErrPollBudgetExceeded is the terminal error of a task that outlived its
// poll-count budget.
var ErrPollBudgetExceeded = errors.New("valtron: poll budget exceeded")

// TimeoutTask fails its inner task once a wall-clock budget elapses. The
// clock starts at the first poll. On expiry the inner task is not polled
// again; the timeout wins even if the task could have finished. Inner
// statuses are forwarded verbatim, Spawn actions included, so the
// decorator never changes what the engine or an observer sees.
type TimeoutTask[R, P any] struct {
	inner Task[R, P]
	limit time.Duration
	start time.Time
	done  bool

	now func() time.Time
}

// NewTimeout wraps task with a wall-clock budget. limit <= 0 disables the
// budget and forwards everything.
func NewTimeout[R, P any](task Task[R, P], limit time.Duration) *TimeoutTask[R, P] {
	return &TimeoutTask[R, P]{inner: task, limit: limit, now: time.Now}
}

func (t *TimeoutTask[R, P]) Poll() (Status[R, P], bool) {
	var zero Status[R, P]
	if t.done || t.inner == nil {
		return zero, false
	}
	if t.start.IsZero() {
		t.start = t.now()
	}
	if t.limit > 0 && t.now().Sub(t.start) >= t.limit {
		t.done = true
		return Failed[R, P](ErrTimedOut), true
	}

	st, alive := t.inner.Poll()
	if !alive {
		t.done = true
		return zero, false
	}
	if st.IsTerminal() {
		t.done = true
	}
	return st, true
}

// PollBudgetTask fails its inner task after a fixed number of polls. It is
// the deterministic sibling of TimeoutTask: useful where wall-clock time
// is the wrong measure, such as replayed or simulated schedules.
type PollBudgetTask[R, P any] struct {
	inner  Task[R, P]
	budget int
	used   int
	done   bool
}

// NewPollBudget wraps task with a poll-count budget. budget <= 0 disables
// the budget.
func NewPollBudget[R, P any](task Task[R, P], budget int) *PollBudgetTask[R, P] {
	return &PollBudgetTask[R, P]{inner: task, budget: budget}
}

func (t *PollBudgetTask[R, P]) Poll() (Status[R, P], bool) {
	var zero Status[R, P]
	if t.done || t.inner == nil {
		return zero, false
	}
	if t.budget > 0 && t.used >= t.budget {
		t.done = true
		return Failed[R, P](ErrPollBudgetExceeded), true
	}
	t.used++

	st, alive := t.inner.Poll()
	if !alive {
		t.done = true
		return zero, false
	}
	if st.IsTerminal() {
		t.done = true
	}
	return st, true
}
