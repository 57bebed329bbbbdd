// Package valtron provides a cooperative task engine built around explicit polling.
//
// This library implements an execution model where tasks are polled rather than
// run to completion: each call to Poll performs one slice of work and reports a
// Status saying what should happen next. Workers never block inside a task; a
// task that waits on something records where it left off and returns.
//
// # Quick Start
//
// Build an engine, start it, and submit work:
//
//	eng := valtron.New[string, int](valtron.Options{})
//	eng.Start(context.Background())
//	defer eng.Stop()
//
//	steps := 0
//	obs, _ := eng.SubmitSchedule(valtron.TaskFunc[string, int](func() (valtron.Status[string, int], bool) {
//		steps++
//		if steps < 3 {
//			return valtron.Pending[string, int](steps), true
//		}
//		return valtron.Ready[string, int]("done"), true
//	}))
//
//	final, err := obs.Wait(context.Background())
//
// # Key Concepts
//
// Task: the unit of work. Anything with Poll() (Status, bool) is a Task; the
// bool turns false once the task is exhausted and must not be polled again.
// TaskFunc adapts a closure, and Completed, FailedTask, RunOnce and
// FromStatuses build the common shapes.
//
// Status: the report a poll returns. Pending and Delayed carry a progress
// value, Ready carries the final result, Spawn carries a one-shot
// ExecutionAction the engine applies exactly once, Error carries the failure.
//
// Engine: polls submitted tasks until they retire. New returns the engine
// selected at build time (single-threaded by default, the thread pool under
// the valtron_mt build tag); NewSingleThreadEngine and NewThreadPoolEngine
// pick one explicitly. The single-threaded engine can also be driven without
// its pump goroutine through RunUntilIdle.
//
// Observation: the consumer's view of a submitted task. Statuses streams
// intermediate reports and drops the oldest when the consumer lags, Wait
// blocks until the terminal status, Cancel asks the engine to drop the task.
//
// # Thread Safety
//
// Engine and Observation methods are safe for concurrent use from any
// goroutine. A task itself is polled by one worker at a time, so task state
// needs no locking of its own.
//
// # Example
//
//	import (
//		"context"
//		"fmt"
//		"time"
//
//		valtron "github.com/ewe-studios/go-valtron"
//	)
//
//	func main() {
//		eng := valtron.New[int, string](valtron.Options{Workers: 4})
//		eng.Start(context.Background())
//		defer eng.StopGraceful(5 * time.Second)
//
//		// Retry a flaky fetch with exponential pauses between attempts.
//		fetch := valtron.NewRetrying(newFetchTask, valtron.RetryOptions[int, string]{
//			MaxRetries: 3,
//			Backoff:    valtron.ExponentialBackoff{Base: 100 * time.Millisecond},
//			MaxDelay:   time.Second,
//		})
//
//		obs, err := eng.SubmitSchedule(fetch)
//		if err != nil {
//			panic(err)
//		}
//
//		final, err := obs.Wait(context.Background())
//		if err != nil {
//			panic(err)
//		}
//		fmt.Println(final.Value())
//	}
//
// For more details, see https://github.com/ewe-studios/go-valtron
package valtron
