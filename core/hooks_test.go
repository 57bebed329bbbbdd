package core

import (
	"errors"
	"strings"
	"testing"
)

// TestPanicError_Message verifies the terminal panic rendering
// Given: A PanicError wrapping a recovered value
// When: Error is called
// Then: The message names the recovered value
func TestPanicError_Message(t *testing.T) {
	// Arrange
	perr := &PanicError{Value: "index out of range", Stack: []byte("stack")}

	// Act and Assert
	if got := perr.Error(); !strings.Contains(got, "index out of range") {
		t.Fatalf("Error() = %q, want the recovered value embedded", got)
	}
}

// TestDefaultPanicHandler_Logs verifies panics reach the logger
// Given: A panic handler wired to a capturing logger
// When: HandlePanic runs
// Then: An error line carries the engine, label and recovered value
func TestDefaultPanicHandler_Logs(t *testing.T) {
	// Arrange
	logger := &memLogger{}
	h := &DefaultPanicHandler{Logger: logger}

	// Act
	h.HandlePanic(EngineThreadPool, 2, "imports.batch", "nil map write", []byte("trace"))

	// Assert
	if !logger.contains("task panicked") {
		t.Fatalf("logger lines = %v, want a task panicked entry", logger.lines)
	}
	if !logger.contains("imports.batch") || !logger.contains("nil map write") {
		t.Fatalf("logger lines = %v, want label and panic value", logger.lines)
	}
}

// TestDefaultRejectedHandler_Logs verifies rejections reach the logger
// Given: A rejected handler wired to a capturing logger
// When: HandleRejected runs with a queue full reason
// Then: A warn line carries the strategy and reason
func TestDefaultRejectedHandler_Logs(t *testing.T) {
	// Arrange
	logger := &memLogger{}
	h := &DefaultRejectedHandler{Logger: logger}

	// Act
	h.HandleRejected(EngineSingleThread, "broadcast", "metrics.flush", ErrQueueFull)

	// Assert
	if !logger.contains("task rejected") || !logger.contains("broadcast") {
		t.Fatalf("logger lines = %v, want a rejection entry with its strategy", logger.lines)
	}
}

// TestEngineStats_Totals verifies the cross-worker sums
// Given: Stats for two workers with queued, delayed and live work
// When: The total helpers run
// Then: Each helper sums its column
func TestEngineStats_Totals(t *testing.T) {
	// Arrange
	stats := EngineStats{
		Workers: []WorkerStats{
			{ID: 0, Queued: 2, Delayed: 1, Live: 4},
			{ID: 1, Queued: 3, Delayed: 2, Live: 5},
		},
	}

	// Act and Assert
	if got := stats.QueuedTotal(); got != 5 {
		t.Fatalf("QueuedTotal() = %d, want 5", got)
	}
	if got := stats.DelayedTotal(); got != 3 {
		t.Fatalf("DelayedTotal() = %d, want 3", got)
	}
	if got := stats.LiveTotal(); got != 9 {
		t.Fatalf("LiveTotal() = %d, want 9", got)
	}
}

// TestMetricsHookReceivesLoopSignals verifies the loop feeds metrics
// Given: An engine wired with recording metrics
// When: A task with one pending poll completes
// Then: Poll, depth and retirement measurements all arrive
func TestMetricsHookReceivesLoopSignals(t *testing.T) {
	// Arrange
	metrics := newRecordingMetrics()
	opts := quietOptions()
	opts.Metrics = metrics
	eng := NewSingleThreadEngine[int, int](opts)

	// Act
	eng.SubmitSchedule(FromStatuses(
		Pending[int, int](0),
		Ready[int, int](1),
	))
	eng.RunUntilIdle()

	// Assert
	if got := metrics.count("poll"); got != 2 {
		t.Fatalf("poll recordings = %d, want 2", got)
	}
	if metrics.count("depth") == 0 {
		t.Fatal("no queue depth recordings")
	}
	if got := metrics.count("retired:" + OutcomeReady); got != 1 {
		t.Fatalf("ready retirements = %d, want 1", got)
	}
}

// TestMetricsHookCountsRejections verifies rejection measurements
// Given: An engine with a single slot intake and recording metrics
// When: A second submission is refused
// Then: A rejected measurement arrives labeled with the strategy
func TestMetricsHookCountsRejections(t *testing.T) {
	// Arrange
	metrics := newRecordingMetrics()
	opts := quietOptions()
	opts.Metrics = metrics
	opts.IntakeCapacity = 1
	eng := NewSingleThreadEngine[int, int](opts)

	// Act
	eng.SubmitSchedule(Completed[int, int](1))
	_, err := eng.SubmitSchedule(Completed[int, int](2))

	// Assert
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second submit = %v, want ErrQueueFull", err)
	}
	if got := metrics.count("rejected:schedule"); got != 1 {
		t.Fatalf("rejected recordings = %d, want 1", got)
	}
}
