package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// Journal Data Model
// =============================================================================

// JournalRecord is the durable trace of one root task submission.
type JournalRecord struct {
	ID          string // observation ID
	Label       string
	Engine      string
	Strategy    string // "lift", "schedule" or "broadcast"
	Outcome     string // "" while live, then one of the Outcome* labels
	Error       string
	Polls       int
	SubmittedAt time.Time
	FinishedAt  time.Time // zero until the task retires
}

// JournalFilter narrows List results.
type JournalFilter struct {
	Outcome string // Empty means all; "live" matches unfinished records
	Limit   int    // 0 means no limit
}

// LiveOutcome is the JournalFilter.Outcome value matching records of tasks
// that have not retired yet.
const LiveOutcome = "live"

// =============================================================================
// Journal Interface
// =============================================================================

// ErrRecordNotFound reports a journal lookup for an unknown ID.
var ErrRecordNotFound = errors.New("valtron: journal record not found")

// ErrRecordExists reports a submission recorded twice under one ID.
var ErrRecordExists = errors.New("valtron: journal record already exists")

// Journal records the lifecycle of root tasks. Engines call it from
// submitter goroutines and worker loops; implementations must be
// thread-safe and should return quickly or buffer internally.
type Journal interface {
	// RecordSubmitted stores the trace of a freshly accepted root task.
	RecordSubmitted(ctx context.Context, rec JournalRecord) error

	// RecordFinished marks a record with its terminal outcome.
	RecordFinished(ctx context.Context, id, outcome, errText string, polls int, finishedAt time.Time) error

	// Get retrieves one record by observation ID.
	Get(ctx context.Context, id string) (JournalRecord, error)

	// List returns records matching the filter, most recent submission
	// first.
	List(ctx context.Context, filter JournalFilter) ([]JournalRecord, error)
}

// NopJournal keeps nothing.
type NopJournal struct{}

func (NopJournal) RecordSubmitted(context.Context, JournalRecord) error { return nil }
func (NopJournal) RecordFinished(context.Context, string, string, string, int, time.Time) error {
	return nil
}
func (NopJournal) Get(context.Context, string) (JournalRecord, error) {
	return JournalRecord{}, ErrRecordNotFound
}
func (NopJournal) List(context.Context, JournalFilter) ([]JournalRecord, error) { return nil, nil }

// =============================================================================
// MemoryJournal Implementation
// =============================================================================

// MemoryJournal is the in-process Journal used by tests and short-lived
// engines. Records are kept in submission order.
type MemoryJournal struct {
	mu    sync.RWMutex
	byID  map[string]int
	order []JournalRecord
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{byID: make(map[string]int)}
}

func (j *MemoryJournal) RecordSubmitted(_ context.Context, rec JournalRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("valtron: journal record ID cannot be empty")
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.byID[rec.ID]; ok {
		return ErrRecordExists
	}
	j.byID[rec.ID] = len(j.order)
	j.order = append(j.order, rec)
	return nil
}

func (j *MemoryJournal) RecordFinished(_ context.Context, id, outcome, errText string, polls int, finishedAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx, ok := j.byID[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec := &j.order[idx]
	rec.Outcome = outcome
	rec.Error = errText
	rec.Polls = polls
	rec.FinishedAt = finishedAt
	return nil
}

func (j *MemoryJournal) Get(_ context.Context, id string) (JournalRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	idx, ok := j.byID[id]
	if !ok {
		return JournalRecord{}, ErrRecordNotFound
	}
	return j.order[idx], nil
}

func (j *MemoryJournal) List(_ context.Context, filter JournalFilter) ([]JournalRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []JournalRecord
	for i := len(j.order) - 1; i >= 0; i-- {
		rec := j.order[i]
		switch filter.Outcome {
		case "":
		case LiveOutcome:
			if rec.Outcome != "" {
				continue
			}
		default:
			if rec.Outcome != filter.Outcome {
				continue
			}
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the total number of records. Useful for tests.
func (j *MemoryJournal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.order)
}

// Clear removes all records.
func (j *MemoryJournal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.byID = make(map[string]int)
	j.order = nil
}
