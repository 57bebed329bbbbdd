package core

import (
	"fmt"
	"time"
)

// Terminal outcome labels shared by journal records, events and metrics.
const (
	OutcomeReady     = "ready"
	OutcomeError     = "error"
	OutcomeCanceled  = "canceled"
	OutcomeExhausted = "exhausted"
)

// =============================================================================
// PanicError: terminal error of a poll that panicked
// =============================================================================

// PanicError is the terminal error recorded when a poll step panics. The
// engine recovers the panic, retires only the offending task with
// Failed(PanicError) and keeps its worker running.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("valtron: task panicked: %v", e.Value)
}

// =============================================================================
// PanicHandler: notified after a poll panic has been recovered
// =============================================================================

// PanicHandler is called when a task panics during a poll.
// Implementations must be thread-safe; workers call them concurrently.
type PanicHandler interface {
	// HandlePanic receives the engine name, the worker that recovered the
	// panic, the task label, the recovered value and the stack trace.
	HandlePanic(engine string, worker int, label string, value any, stack []byte)
}

// DefaultPanicHandler logs the panic and its stack through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

func (h *DefaultPanicHandler) HandlePanic(engine string, worker int, label string, value any, stack []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("engine", engine),
		F("worker", worker),
		F("label", label),
		F("panic", value),
		F("stack", string(stack)),
	)
}

// =============================================================================
// Metrics: observability hook
// =============================================================================

// Metrics receives engine measurements. Methods run on the worker loops
// and must be fast and non-blocking.
type Metrics interface {
	// RecordPoll records the duration of one poll step and the status
	// kind it produced.
	RecordPoll(engine, label string, kind StatusKind, duration time.Duration)

	// RecordQueueDepth records the run queue and delay heap depth of one
	// worker after a scheduling step.
	RecordQueueDepth(engine string, worker, ready, delayed int)

	// RecordRetired records a task leaving its arena with the given
	// outcome label.
	RecordRetired(engine, outcome string)

	// RecordSteal records a worker taking a task from the global queue.
	RecordSteal(engine string, worker int)

	// RecordRejected records a submission the engine could not accept.
	RecordRejected(engine, strategy string)

	// RecordPanic records a recovered poll panic.
	RecordPanic(engine, label string)
}

// NilMetrics is the no-op metrics implementation used when no metrics
// interface is provided.
type NilMetrics struct{}

func (NilMetrics) RecordPoll(string, string, StatusKind, time.Duration) {}
func (NilMetrics) RecordQueueDepth(string, int, int, int)               {}
func (NilMetrics) RecordRetired(string, string)                         {}
func (NilMetrics) RecordSteal(string, int)                              {}
func (NilMetrics) RecordRejected(string, string)                        {}
func (NilMetrics) RecordPanic(string, string)                           {}

// =============================================================================
// RejectedHandler: notified when a submission cannot be accepted
// =============================================================================

// RejectedHandler is called when a submission or in-task spawn is refused:
// the engine is shutting down, an intake channel is saturated or the
// global queue hit its capacity.
//
// Implementations must be thread-safe.
type RejectedHandler interface {
	HandleRejected(engine, strategy, label string, reason error)
}

// DefaultRejectedHandler logs rejections at warn level.
type DefaultRejectedHandler struct {
	Logger Logger
}

func (h *DefaultRejectedHandler) HandleRejected(engine, strategy, label string, reason error) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected",
		F("engine", engine),
		F("strategy", strategy),
		F("label", label),
		F("reason", reason),
	)
}
