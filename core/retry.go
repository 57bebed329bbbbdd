package core

import (
	"math"
	"time"
)

// =============================================================================
// Backoff strategies
// =============================================================================

// BackoffStrategy computes the pause before a retry. attempt is 1-based,
// current is the previous pause (zero before the first retry) and max
// clamps the result; max <= 0 means no clamp. Implementations never
// return a negative duration.
type BackoffStrategy interface {
	NextDelay(attempt int, current, max time.Duration) time.Duration
}

// FixedBackoff pauses the same duration before every retry.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) NextDelay(_ int, _, max time.Duration) time.Duration {
	return clampDelay(b.Delay, max)
}

// ExponentialBackoff grows the pause geometrically: Base, Base*Multiplier,
// Base*Multiplier^2 and so on. A Multiplier below 1 is treated as 2.
type ExponentialBackoff struct {
	Base       time.Duration
	Multiplier float64
}

func (b ExponentialBackoff) NextDelay(attempt int, _, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	m := b.Multiplier
	if m < 1 {
		m = 2
	}
	d := float64(b.Base) * math.Pow(m, float64(attempt-1))
	if d >= float64(math.MaxInt64) {
		return clampDelay(time.Duration(math.MaxInt64), max)
	}
	return clampDelay(time.Duration(d), max)
}

// LinearBackoff grows the pause by a fixed increment: Base, Base+Increment,
// Base+2*Increment and so on.
type LinearBackoff struct {
	Base      time.Duration
	Increment time.Duration
}

func (b LinearBackoff) NextDelay(attempt int, _, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return clampDelay(b.Base+time.Duration(attempt-1)*b.Increment, max)
}

func clampDelay(d, max time.Duration) time.Duration {
	if d < 0 {
		d = 0
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// =============================================================================
// RetryingTask
// =============================================================================

// RetryOptions configures NewRetrying.
type RetryOptions[R, P any] struct {
	// MaxRetries bounds re-runs after the first attempt: 3 means four
	// runs in total.
	MaxRetries int

	// Backoff computes the pause between attempts. Defaults to
	// ExponentialBackoff{Base: 10ms, Multiplier: 2}.
	Backoff BackoffStrategy

	// MaxDelay clamps each pause. Zero means no clamp.
	MaxDelay time.Duration

	// RetryOn decides whether a terminal status should be retried.
	// Defaults to retrying errors only, so Ready always passes through.
	RetryOn func(Status[R, P]) bool
}

// RetryingTask re-runs a task built by a factory until a terminal status
// passes its predicate or the retry budget is spent. Between attempts it
// reports Delayed, so the engine parks it instead of spinning. Every
// status of the live attempt is forwarded as-is, never re-wrapped; only a
// retryable terminal status is swallowed and replaced by the pause.
type RetryingTask[R, P any] struct {
	factory func() Task[R, P]
	opts    RetryOptions[R, P]

	inner   Task[R, P]
	retries int
	last    time.Duration
	done    bool
}

// NewRetrying builds a retrying task. factory is invoked once per attempt
// and must return a fresh task each time.
func NewRetrying[R, P any](factory func() Task[R, P], opts RetryOptions[R, P]) *RetryingTask[R, P] {
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff{Base: 10 * time.Millisecond, Multiplier: 2}
	}
	if opts.RetryOn == nil {
		opts.RetryOn = func(st Status[R, P]) bool { return st.Kind() == KindError }
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &RetryingTask[R, P]{factory: factory, opts: opts}
}

// Retries reports how many re-runs have been started so far.
func (r *RetryingTask[R, P]) Retries() int { return r.retries }

func (r *RetryingTask[R, P]) Poll() (Status[R, P], bool) {
	var zero Status[R, P]
	if r.done || r.factory == nil {
		return zero, false
	}
	if r.inner == nil {
		r.inner = r.factory()
		if r.inner == nil {
			r.done = true
			return Failed[R, P](ErrNilTask), true
		}
	}

	st, alive := r.inner.Poll()
	if !alive {
		// The attempt ended without a terminal status; forward the
		// exhaustion rather than inventing an outcome.
		r.done = true
		return zero, false
	}
	if !st.IsTerminal() {
		return st, true
	}
	if !r.opts.RetryOn(st) || r.retries >= r.opts.MaxRetries {
		r.done = true
		return st, true
	}

	r.retries++
	r.inner = nil
	delay := r.opts.Backoff.NextDelay(r.retries, r.last, r.opts.MaxDelay)
	r.last = delay
	var progress P
	return Delayed[R, P](delay, progress), true
}
