package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestMemoryJournal_SubmitAndFinish verifies the record lifecycle
// Given: An empty journal
// When: A submission is recorded and later finished
// Then: Get returns the merged record with outcome, polls and finish time
func TestMemoryJournal_SubmitAndFinish(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()
	ctx := context.Background()
	submitted := time.Now()

	// Act
	err := j.RecordSubmitted(ctx, JournalRecord{
		ID:          "obs-1",
		Label:       "ingest",
		Engine:      EngineSingleThread,
		Strategy:    "schedule",
		SubmittedAt: submitted,
	})
	if err != nil {
		t.Fatalf("RecordSubmitted() = %v, want nil", err)
	}
	finished := submitted.Add(50 * time.Millisecond)
	if err := j.RecordFinished(ctx, "obs-1", OutcomeReady, "", 4, finished); err != nil {
		t.Fatalf("RecordFinished() = %v, want nil", err)
	}
	rec, err := j.Get(ctx, "obs-1")

	// Assert
	if err != nil {
		t.Fatalf("Get() = %v, want nil", err)
	}
	if rec.Outcome != OutcomeReady || rec.Polls != 4 {
		t.Fatalf("record = (outcome=%q, polls=%d), want (ready, 4)", rec.Outcome, rec.Polls)
	}
	if !rec.FinishedAt.Equal(finished) || !rec.SubmittedAt.Equal(submitted) {
		t.Fatalf("timestamps = (%v, %v), want the recorded ones", rec.SubmittedAt, rec.FinishedAt)
	}
	if rec.Label != "ingest" || rec.Strategy != "schedule" {
		t.Fatalf("identity = (%q, %q), want (ingest, schedule)", rec.Label, rec.Strategy)
	}
}

// TestMemoryJournal_DuplicateSubmitRejected verifies ID uniqueness
// Given: A journal already holding an ID
// When: The same ID is submitted again
// Then: ErrRecordExists comes back and the count stays at one
func TestMemoryJournal_DuplicateSubmitRejected(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()
	ctx := context.Background()
	j.RecordSubmitted(ctx, JournalRecord{ID: "dup"})

	// Act
	err := j.RecordSubmitted(ctx, JournalRecord{ID: "dup"})

	// Assert
	if !errors.Is(err, ErrRecordExists) {
		t.Fatalf("RecordSubmitted() = %v, want ErrRecordExists", err)
	}
	if j.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", j.Count())
	}
}

// TestMemoryJournal_UnknownLookups verifies missing IDs fail cleanly
// Given: An empty journal
// When: Get and RecordFinished run against an unknown ID
// Then: Both fail with ErrRecordNotFound
func TestMemoryJournal_UnknownLookups(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()
	ctx := context.Background()

	// Act and Assert
	if _, err := j.Get(ctx, "ghost"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Get() = %v, want ErrRecordNotFound", err)
	}
	err := j.RecordFinished(ctx, "ghost", OutcomeReady, "", 1, time.Now())
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("RecordFinished() = %v, want ErrRecordNotFound", err)
	}
}

// TestMemoryJournal_EmptyIDRejected verifies IDs are mandatory
// Given: An empty journal
// When: A record without an ID is submitted
// Then: The submission fails
func TestMemoryJournal_EmptyIDRejected(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()

	// Act and Assert
	if err := j.RecordSubmitted(context.Background(), JournalRecord{}); err == nil {
		t.Fatal("RecordSubmitted() with empty ID = nil, want error")
	}
}

// TestMemoryJournal_ListFiltersAndOrders verifies newest-first listing
// Given: Three records where only the middle one finished
// When: List runs unfiltered, by outcome, by liveness and with a limit
// Then: Results are newest first and each filter narrows correctly
func TestMemoryJournal_ListFiltersAndOrders(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()
	ctx := context.Background()
	for _, id := range []string{"first", "second", "third"} {
		j.RecordSubmitted(ctx, JournalRecord{ID: id})
	}
	j.RecordFinished(ctx, "second", OutcomeError, "boom", 2, time.Now())

	// Act
	all, _ := j.List(ctx, JournalFilter{})
	failed, _ := j.List(ctx, JournalFilter{Outcome: OutcomeError})
	live, _ := j.List(ctx, JournalFilter{Outcome: LiveOutcome})
	limited, _ := j.List(ctx, JournalFilter{Limit: 1})

	// Assert
	if len(all) != 3 || all[0].ID != "third" || all[2].ID != "first" {
		t.Fatalf("List() = %v, want newest first [third second first]", all)
	}
	if len(failed) != 1 || failed[0].ID != "second" || failed[0].Error != "boom" {
		t.Fatalf("List(error) = %v, want just the failed record", failed)
	}
	if len(live) != 2 || live[0].ID != "third" || live[1].ID != "first" {
		t.Fatalf("List(live) = %v, want the two unfinished records", live)
	}
	if len(limited) != 1 || limited[0].ID != "third" {
		t.Fatalf("List(limit 1) = %v, want only the newest", limited)
	}
}

// TestMemoryJournal_Clear verifies the reset used between test runs
// Given: A journal holding records
// When: Clear runs
// Then: The journal is empty and old IDs are resubmittable
func TestMemoryJournal_Clear(t *testing.T) {
	// Arrange
	j := NewMemoryJournal()
	ctx := context.Background()
	j.RecordSubmitted(ctx, JournalRecord{ID: "x"})

	// Act
	j.Clear()

	// Assert
	if j.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", j.Count())
	}
	if err := j.RecordSubmitted(ctx, JournalRecord{ID: "x"}); err != nil {
		t.Fatalf("RecordSubmitted() after Clear = %v, want nil", err)
	}
}
