package core

import (
	"errors"
	"testing"
	"time"
)

// TestTimeoutTask_ExpiryWinsWithoutPollingInner verifies the budget check
// runs before the inner poll
// Given: A timeout task whose clock is driven by a fake now function
// When: The clock jumps past the limit between polls
// Then: The next poll fails with ErrTimedOut and the inner task is not
// polled again, even though it would have completed
func TestTimeoutTask_ExpiryWinsWithoutPollingInner(t *testing.T) {
	// Arrange
	innerPolls := 0
	inner := TaskFunc[int, int](func() (Status[int, int], bool) {
		innerPolls++
		if innerPolls == 1 {
			return Pending[int, int](0), true
		}
		return Ready[int, int](1), true
	})
	task := NewTimeout[int, int](inner, 100*time.Millisecond)
	clock := time.Now()
	task.now = func() time.Time { return clock }

	// Act - first poll starts the clock and forwards pending
	st, alive := task.Poll()
	if !alive || st.Kind() != KindPending {
		t.Fatalf("poll 1 = (%v, alive=%v), want (pending, true)", st.Kind(), alive)
	}

	// Act - jump past the limit
	clock = clock.Add(150 * time.Millisecond)
	st, alive = task.Poll()

	// Assert
	if !alive || st.Kind() != KindError || !errors.Is(st.Err(), ErrTimedOut) {
		t.Fatalf("poll 2 = (%v, %v, alive=%v), want (error, ErrTimedOut, true)", st.Kind(), st.Err(), alive)
	}
	if innerPolls != 1 {
		t.Fatalf("inner polled %d times, want 1", innerPolls)
	}
	if _, alive = task.Poll(); alive {
		t.Fatal("poll after timeout alive = true, want false")
	}
}

// TestTimeoutTask_ForwardsVerbatimUnderBudget verifies transparency
// Given: An inner task cycling through pending, delayed and ready
// When: The timeout task is polled well within its budget
// Then: Every status passes through with kind and payload untouched
func TestTimeoutTask_ForwardsVerbatimUnderBudget(t *testing.T) {
	// Arrange
	task := NewTimeout[int, int](FromStatuses(
		Pending[int, int](1),
		Delayed[int, int](5*time.Millisecond, 2),
		Ready[int, int](3),
	), time.Hour)

	// Act
	first, _ := task.Poll()
	second, _ := task.Poll()
	third, _ := task.Poll()

	// Assert
	if first.Kind() != KindPending || first.Progress() != 1 {
		t.Fatalf("first = (%v, %d), want (pending, 1)", first.Kind(), first.Progress())
	}
	if second.Kind() != KindDelayed || second.Delay() != 5*time.Millisecond || second.Progress() != 2 {
		t.Fatalf("second = (%v, %v, %d), want (delayed, 5ms, 2)", second.Kind(), second.Delay(), second.Progress())
	}
	if third.Kind() != KindReady || third.Value() != 3 {
		t.Fatalf("third = (%v, %d), want (ready, 3)", third.Kind(), third.Value())
	}
	if _, alive := task.Poll(); alive {
		t.Fatal("poll after terminal alive = true, want false")
	}
}

// TestTimeoutTask_ZeroLimitDisables verifies a non-positive limit is off
// Given: A timeout task with limit zero and a fake clock jumped far ahead
// When: Polled
// Then: The inner status passes through instead of a timeout
func TestTimeoutTask_ZeroLimitDisables(t *testing.T) {
	// Arrange
	task := NewTimeout[int, int](Completed[int, int](6), 0)
	clock := time.Now()
	task.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	// Act
	st, alive := task.Poll()

	// Assert
	if !alive || st.Kind() != KindReady || st.Value() != 6 {
		t.Fatalf("Poll() = (%v, %d, alive=%v), want (ready, 6, true)", st.Kind(), st.Value(), alive)
	}
}

// TestPollBudgetTask_FailsAfterBudget verifies the deterministic budget
// Given: An endlessly pending inner task with a budget of three polls
// When: Polled four times
// Then: Three pendings pass through and the fourth poll is the budget
// error
func TestPollBudgetTask_FailsAfterBudget(t *testing.T) {
	// Arrange
	inner := TaskFunc[int, int](func() (Status[int, int], bool) {
		return Pending[int, int](0), true
	})
	task := NewPollBudget[int, int](inner, 3)

	// Act and Assert
	for i := 0; i < 3; i++ {
		st, alive := task.Poll()
		if !alive || st.Kind() != KindPending {
			t.Fatalf("poll %d = (%v, alive=%v), want (pending, true)", i+1, st.Kind(), alive)
		}
	}
	st, alive := task.Poll()
	if !alive || st.Kind() != KindError || !errors.Is(st.Err(), ErrPollBudgetExceeded) {
		t.Fatalf("poll 4 = (%v, %v, alive=%v), want (error, ErrPollBudgetExceeded, true)", st.Kind(), st.Err(), alive)
	}
	if _, alive := task.Poll(); alive {
		t.Fatal("poll after budget alive = true, want false")
	}
}

// TestPollBudgetTask_CompletionUnderBudget verifies finishes pass through
// Given: A task that completes on its second poll under a budget of five
// When: Polled to completion
// Then: The ready status passes through and no budget error appears
func TestPollBudgetTask_CompletionUnderBudget(t *testing.T) {
	// Arrange
	task := NewPollBudget[int, int](FromStatuses(
		Pending[int, int](0),
		Ready[int, int](2),
	), 5)

	// Act
	first, _ := task.Poll()
	second, _ := task.Poll()

	// Assert
	if first.Kind() != KindPending {
		t.Fatalf("first = %v, want pending", first.Kind())
	}
	if second.Kind() != KindReady || second.Value() != 2 {
		t.Fatalf("second = (%v, %d), want (ready, 2)", second.Kind(), second.Value())
	}
}

// TestTimeoutTask_OnEngine verifies timeouts retire tasks on an engine
// Given: An engine running a never finishing task under a 25ms budget
// When: The engine drains
// Then: The observation ends with the ErrTimedOut terminal status
func TestTimeoutTask_OnEngine(t *testing.T) {
	// Arrange
	eng := NewSingleThreadEngine[int, int](quietOptions())
	stuck := TaskFunc[int, int](func() (Status[int, int], bool) {
		return Delayed[int, int](5*time.Millisecond, 0), true
	})
	obs, err := eng.SubmitSchedule(NewTimeout[int, int](stuck, 25*time.Millisecond))
	if err != nil {
		t.Fatalf("SubmitSchedule() = %v, want nil", err)
	}

	// Act
	eng.RunUntilIdle()
	statuses := collect(obs)

	// Assert
	last := statuses[len(statuses)-1]
	if last.Kind() != KindError || !errors.Is(last.Err(), ErrTimedOut) {
		t.Fatalf("terminal = (%v, %v), want (error, ErrTimedOut)", last.Kind(), last.Err())
	}
}
