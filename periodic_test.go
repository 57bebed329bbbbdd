package valtron

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestPeriodicSubmitter_RegisterValidation verifies entry management.
// Given: a submitter with some registered entries.
// When: entries are registered, duplicated, and unregistered.
// Then: invalid specs and duplicate or unknown names are refused.
func TestPeriodicSubmitter_RegisterValidation(t *testing.T) {
	// Arrange
	eng := NewSingleThreadEngine[int, int](quietOptions())
	ps := NewPeriodicSubmitter[int, int](eng, NewNoOpLogger())
	factory := func() Task[int, int] { return Completed[int, int](1) }

	// Act and Assert
	if err := ps.Register("bad", "not a cron spec", factory); err == nil {
		t.Fatal("Register() accepted an invalid cron spec")
	}
	if err := ps.Register("beta", "* * * * * *", factory); err != nil {
		t.Fatalf("Register(beta) = %v, want nil", err)
	}
	if err := ps.Register("alpha", "@every 1s", factory); err != nil {
		t.Fatalf("Register(alpha) = %v, want nil", err)
	}
	if err := ps.Register("beta", "* * * * * *", factory); !errors.Is(err, ErrPeriodicExists) {
		t.Fatalf("Register(duplicate) = %v, want %v", err, ErrPeriodicExists)
	}

	if got := ps.Entries(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("Entries() = %v, want [alpha beta]", got)
	}

	if err := ps.Unregister("ghost"); !errors.Is(err, ErrPeriodicUnknown) {
		t.Fatalf("Unregister(ghost) = %v, want %v", err, ErrPeriodicUnknown)
	}
	if err := ps.Unregister("alpha"); err != nil {
		t.Fatalf("Unregister(alpha) = %v, want nil", err)
	}
	if got := ps.Entries(); len(got) != 1 || got[0] != "beta" {
		t.Fatalf("Entries() = %v, want [beta]", got)
	}
}

// TestPeriodicSubmitter_SubmitsOnSchedule verifies cron-driven submission.
// Given: a running engine and an every-second entry.
// When: the submitter runs for a couple of ticks.
// Then: labeled tasks land on the engine and in its journal.
func TestPeriodicSubmitter_SubmitsOnSchedule(t *testing.T) {
	// Arrange
	journal := NewMemoryJournal()
	eng := NewSingleThreadEngine[int, int](Options{Logger: NewNoOpLogger(), Journal: journal})
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	defer eng.Stop()

	ps := NewPeriodicSubmitter[int, int](eng, NewNoOpLogger())
	if err := ps.Register("tick.every-second", "* * * * * *", func() Task[int, int] {
		return Completed[int, int](1)
	}); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}

	// Act
	ps.Start()
	defer ps.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for eng.Stats().Submitted < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	// Assert
	if got := eng.Stats().Submitted; got < 2 {
		t.Fatalf("Stats().Submitted = %d, want at least 2", got)
	}
	recs, err := journal.List(context.Background(), JournalFilter{})
	if err != nil {
		t.Fatalf("List() = %v, want nil", err)
	}
	if len(recs) < 2 {
		t.Fatalf("len(recs) = %d, want at least 2", len(recs))
	}
	if recs[0].Label != "tick.every-second" {
		t.Fatalf("Label = %q, want %q", recs[0].Label, "tick.every-second")
	}
}

// TestPeriodicSubmitter_UnregisterStopsSubmissions verifies tick removal.
// Given: a firing every-second entry.
// When: the entry is unregistered.
// Then: no further submissions reach the engine.
func TestPeriodicSubmitter_UnregisterStopsSubmissions(t *testing.T) {
	// Arrange
	eng := NewSingleThreadEngine[int, int](quietOptions())
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	defer eng.Stop()

	ps := NewPeriodicSubmitter[int, int](eng, NewNoOpLogger())
	if err := ps.Register("tick", "* * * * * *", func() Task[int, int] {
		return Completed[int, int](1)
	}); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	ps.Start()
	defer ps.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for eng.Stats().Submitted == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if eng.Stats().Submitted == 0 {
		t.Fatal("no periodic submission arrived before the deadline")
	}

	// Act
	if err := ps.Unregister("tick"); err != nil {
		t.Fatalf("Unregister() = %v, want nil", err)
	}
	time.Sleep(100 * time.Millisecond) // let an in-flight tick finish
	before := eng.Stats().Submitted
	time.Sleep(1200 * time.Millisecond)

	// Assert
	if got := eng.Stats().Submitted; got != before {
		t.Fatalf("Stats().Submitted = %d, want %d after unregister", got, before)
	}
}
