package core

import "fmt"

// Entry is a weak, copyable handle into a worker's task arena. The zero
// Entry refers to nothing. A stale Entry, one whose slot was retired and
// possibly reused, resolves to nil instead of the new occupant: slots
// carry a generation counter that is bumped on every retirement.
type Entry struct {
	index uint32
	gen   uint32
}

// IsZero reports whether e is the null handle.
func (e Entry) IsZero() bool { return e.gen == 0 }

func (e Entry) String() string {
	if e.IsZero() {
		return "entry(nil)"
	}
	return fmt.Sprintf("entry(%d#%d)", e.index, e.gen)
}

// =============================================================================
// arena: slab of task slots, one per live task
// =============================================================================

type slotState uint8

const (
	slotVacant slotState = iota
	slotQueued
	slotDelayed
	slotPolling
)

type slot[R, P any] struct {
	gen    uint32
	state  slotState
	task   Task[R, P]
	parent Entry
	obs    *Observation[R, P] // non-nil on root tasks only
	label  string
	polls  int
}

// arena owns the slots of a single worker. It is not safe for concurrent
// use; cross-thread work reaches the owning worker through the engine's
// intake channel first.
type arena[R, P any] struct {
	slots []slot[R, P]
	free  []uint32
	live  int
}

// insert claims a slot for task and returns its handle. parent is the zero
// Entry for roots and externally scheduled children; obs is nil for
// spawned children.
func (a *arena[R, P]) insert(task Task[R, P], parent Entry, obs *Observation[R, P], label string) Entry {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[R, P]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	if s.gen == 0 {
		// Generation zero is reserved for the null handle.
		s.gen = 1
	}
	s.state = slotQueued
	s.task = task
	s.parent = parent
	s.obs = obs
	s.label = label
	s.polls = 0
	a.live++
	return Entry{index: idx, gen: s.gen}
}

// get resolves e, returning nil for zero, stale or vacant handles.
func (a *arena[R, P]) get(e Entry) *slot[R, P] {
	if e.IsZero() || int(e.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[e.index]
	if s.gen != e.gen || s.state == slotVacant {
		return nil
	}
	return s
}

// retire vacates e's slot and invalidates every outstanding handle to it.
func (a *arena[R, P]) retire(e Entry) {
	s := a.get(e)
	if s == nil {
		return
	}
	s.gen++
	s.state = slotVacant
	s.task = nil
	s.obs = nil
	s.parent = Entry{}
	s.label = ""
	s.polls = 0
	a.live--
	a.free = append(a.free, e.index)
}

func (a *arena[R, P]) len() int { return a.live }

// lineage walks parent links upward from e, starting at e itself. The walk
// is capped so a corrupted link cannot loop forever.
func (a *arena[R, P]) lineage(e Entry) []Entry {
	const maxDepth = 32
	var chain []Entry
	for !e.IsZero() && len(chain) < maxDepth {
		chain = append(chain, e)
		s := a.get(e)
		if s == nil {
			break
		}
		e = s.parent
	}
	return chain
}

// drain vacates every live slot, closing root observations without a
// terminal status, and reports how many tasks were dropped.
func (a *arena[R, P]) drain() int {
	dropped := 0
	for i := range a.slots {
		s := &a.slots[i]
		if s.state == slotVacant {
			continue
		}
		if s.obs != nil {
			s.obs.close()
		}
		s.gen++
		s.state = slotVacant
		s.task = nil
		s.obs = nil
		s.parent = Entry{}
		s.label = ""
		s.polls = 0
		a.free = append(a.free, uint32(i))
		dropped++
	}
	a.live = 0
	return dropped
}
