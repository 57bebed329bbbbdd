package core

// WorkerStats is a point-in-time snapshot of one worker loop.
type WorkerStats struct {
	ID      int
	Queued  int
	Delayed int
	Live    int
	Polls   uint64
	Steals  uint64
}

// EngineStats is a point-in-time snapshot of an engine. Counters are
// monotonic over the engine's lifetime; depths are instantaneous.
type EngineStats struct {
	Engine       string
	Running      bool
	Workers      []WorkerStats
	GlobalQueued int
	Submitted    uint64
	Retired      uint64
	Rejected     uint64
	Panics       uint64
}

// QueuedTotal sums run queue depth across workers.
func (s EngineStats) QueuedTotal() int {
	total := 0
	for _, w := range s.Workers {
		total += w.Queued
	}
	return total
}

// DelayedTotal sums delay heap depth across workers.
func (s EngineStats) DelayedTotal() int {
	total := 0
	for _, w := range s.Workers {
		total += w.Delayed
	}
	return total
}

// LiveTotal sums live arena slots across workers.
func (s EngineStats) LiveTotal() int {
	total := 0
	for _, w := range s.Workers {
		total += w.Live
	}
	return total
}
