package main

import (
	"fmt"
	"sync/atomic"
	"time"

	valtron "github.com/ewe-studios/go-valtron"
)

// The demo workloads cover the three task shapes the engine is built
// around: a state machine yielding progress, a parent that spawns and
// joins children, and a flaky task wrapped in retries.

type workload struct {
	name  string
	label string
	build func() valtron.Task[string, int]
}

func allWorkloads() []workload {
	return []workload{
		{name: "pipeline", label: "demo.pipeline", build: pipelineTask},
		{name: "fanout", label: "demo.fanout", build: func() valtron.Task[string, int] { return fanoutTask(4) }},
		{name: "flaky", label: "demo.flaky", build: flakyTask},
	}
}

func workloadByName(name string) (workload, bool) {
	for _, w := range allWorkloads() {
		if w.name == name {
			return w, true
		}
	}
	return workload{}, false
}

func workloadNames() []string {
	all := allWorkloads()
	names := make([]string, len(all))
	for i, w := range all {
		names[i] = w.name
	}
	return names
}

// pipelineTask walks extract -> transform -> load as a state machine,
// reporting the stage count as progress and parking briefly before the
// final stage.
func pipelineTask() valtron.Task[string, int] {
	stage := 0
	m := valtron.NewMachine("extract", func(s string) valtron.Transition[string, string, int] {
		stage++
		switch s {
		case "extract":
			return valtron.Yield[string, string, int](stage, "transform")
		case "transform":
			return valtron.Sleep[string, string, int](20*time.Millisecond, "load")
		case "load":
			return valtron.Complete[string, string, int](fmt.Sprintf("processed %d stages", stage))
		default:
			return valtron.Halt[string, string, int](fmt.Errorf("unknown stage %q", s))
		}
	})
	return valtron.WithLabel[string, int]("demo.pipeline", m)
}

// fanoutTask spawns n children one per poll, then reports the join count
// in short delays until every child has finished. The counter is atomic
// because stolen children may finish on another worker.
func fanoutTask(n int) valtron.Task[string, int] {
	var done atomic.Int32
	spawned := 0
	task := valtron.TaskFunc[string, int](func() (valtron.Status[string, int], bool) {
		if spawned < n {
			child := valtron.RunOnce[string, int](func() { done.Add(1) })
			spawned++
			return valtron.Spawn(valtron.NewSchedule(child), spawned), true
		}
		if finished := int(done.Load()); finished < n {
			return valtron.Delayed[string, int](time.Millisecond, finished), true
		}
		return valtron.Ready[string, int](fmt.Sprintf("joined %d children", n)), true
	})
	return valtron.WithLabel[string, int]("demo.fanout", task)
}

// flakyTask fails twice with a transient error before succeeding, which
// makes the retry pauses visible in the elapsed column.
func flakyTask() valtron.Task[string, int] {
	attempts := 0
	factory := func() valtron.Task[string, int] {
		attempts++
		n := attempts
		return valtron.TaskFunc[string, int](func() (valtron.Status[string, int], bool) {
			if n < 3 {
				return valtron.Failed[string, int](fmt.Errorf("transient fetch error on attempt %d", n)), true
			}
			return valtron.Ready[string, int](fmt.Sprintf("succeeded on attempt %d", n)), true
		})
	}
	task := valtron.NewRetrying(factory, valtron.RetryOptions[string, int]{
		MaxRetries: 3,
		Backoff:    valtron.ExponentialBackoff{Base: 25 * time.Millisecond, Multiplier: 2},
		MaxDelay:   200 * time.Millisecond,
	})
	return valtron.WithLabel[string, int]("demo.flaky", task)
}
