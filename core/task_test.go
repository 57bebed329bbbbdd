package core

import (
	"errors"
	"testing"
)

// TestTaskFunc_Poll verifies a plain function satisfies the Task contract
// Given: A TaskFunc returning a fixed status
// When: Poll is called
// Then: The function result is forwarded unchanged
func TestTaskFunc_Poll(t *testing.T) {
	// Arrange
	task := TaskFunc[int, int](func() (Status[int, int], bool) {
		return Ready[int, int](7), true
	})

	// Act
	st, alive := task.Poll()

	// Assert
	if !alive {
		t.Fatal("Poll() alive = false, want true")
	}
	if st.Kind() != KindReady || st.Value() != 7 {
		t.Fatalf("Poll() = (%v, %v), want (ready, 7)", st.Kind(), st.Value())
	}
}

// TestCompleted_OneShot verifies pre-resolved tasks finish on the first poll
// Given: A Completed task carrying a value
// When: Poll is called twice
// Then: The first poll is Ready and the second reports exhaustion
func TestCompleted_OneShot(t *testing.T) {
	// Arrange
	task := Completed[string, int]("done")

	// Act
	first, alive := task.Poll()

	// Assert
	if !alive || first.Kind() != KindReady || first.Value() != "done" {
		t.Fatalf("first Poll() = (%v, alive=%v), want (ready, true)", first.Kind(), alive)
	}

	// Act - poll past the terminal status
	_, alive = task.Poll()

	// Assert
	if alive {
		t.Fatal("second Poll() alive = true, want false")
	}
}

// TestFailedTask_OneShot verifies pre-failed tasks surface their error once
// Given: A FailedTask wrapping an error
// When: Poll is called twice
// Then: The first poll is Error carrying the cause and the second is exhausted
func TestFailedTask_OneShot(t *testing.T) {
	// Arrange
	boom := errors.New("boom")
	task := FailedTask[int, int](boom)

	// Act
	st, alive := task.Poll()

	// Assert
	if !alive || st.Kind() != KindError || !errors.Is(st.Err(), boom) {
		t.Fatalf("first Poll() = (%v, %v, alive=%v), want (error, boom, true)", st.Kind(), st.Err(), alive)
	}

	// Act and Assert
	if _, alive = task.Poll(); alive {
		t.Fatal("second Poll() alive = true, want false")
	}
}

// TestRunOnce verifies side effect tasks run exactly once
// Given: A RunOnce task wrapping a counter increment
// When: Poll is called repeatedly
// Then: The function runs once, yields Ready and then exhausts
func TestRunOnce(t *testing.T) {
	// Arrange
	calls := 0
	task := RunOnce[int, int](func() { calls++ })

	// Act
	st, alive := task.Poll()
	_, second := task.Poll()

	// Assert
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !alive || st.Kind() != KindReady {
		t.Fatalf("first Poll() = (%v, alive=%v), want (ready, true)", st.Kind(), alive)
	}
	if second {
		t.Fatal("second Poll() alive = true, want false")
	}
}

// TestFromStatuses_ReplaysSequence verifies scripted tasks emit in order
// Given: A FromStatuses task with two pendings and a ready
// When: Poll is called until exhaustion
// Then: Statuses replay in order, stop at the terminal and then exhaust
func TestFromStatuses_ReplaysSequence(t *testing.T) {
	// Arrange
	task := FromStatuses(
		Pending[int, int](0),
		Pending[int, int](1),
		Ready[int, int](42),
		Pending[int, int](99),
	)

	// Act
	var kinds []StatusKind
	for {
		st, alive := task.Poll()
		if !alive {
			break
		}
		kinds = append(kinds, st.Kind())
		if st.IsTerminal() {
			if st.Value() != 42 {
				t.Fatalf("terminal Value() = %d, want 42", st.Value())
			}
		}
	}

	// Assert - the trailing pending after the terminal is never reached
	want := []StatusKind{KindPending, KindPending, KindReady}
	if len(kinds) != len(want) {
		t.Fatalf("observed %d statuses, want %d", len(kinds), len(want))
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("kinds[%d] = %v, want %v", i, kinds[i], k)
		}
	}
}

// TestFromStatuses_EmptyExhaustsImmediately verifies empty scripts are inert
// Given: A FromStatuses task with no statuses
// When: Poll is called
// Then: It reports exhaustion straight away
func TestFromStatuses_EmptyExhaustsImmediately(t *testing.T) {
	// Arrange
	task := FromStatuses[int, int]()

	// Act and Assert
	if _, alive := task.Poll(); alive {
		t.Fatal("Poll() alive = true, want false")
	}
}

// TestFromSeq_DrainsIterator verifies iterator-backed tasks emit lazily
// Given: A FromSeq task over an iterator yielding two pendings and a ready
// When: Poll is called until exhaustion
// Then: Each poll pulls one status, stopping at the terminal
func TestFromSeq_DrainsIterator(t *testing.T) {
	// Arrange
	pulled := 0
	task := FromSeq(func(yield func(Status[int, int]) bool) {
		for i := 0; i < 2; i++ {
			pulled++
			if !yield(Pending[int, int](i)) {
				return
			}
		}
		pulled++
		yield(Ready[int, int](9))
	})

	// Act
	first, _ := task.Poll()

	// Assert - pulls are lazy, one per poll
	if pulled != 1 {
		t.Fatalf("after one poll pulled = %d, want 1", pulled)
	}
	if first.Kind() != KindPending {
		t.Fatalf("first Kind() = %v, want pending", first.Kind())
	}

	// Act - drain the rest
	var last Status[int, int]
	for {
		st, alive := task.Poll()
		if !alive {
			break
		}
		last = st
	}

	// Assert
	if last.Kind() != KindReady || last.Value() != 9 {
		t.Fatalf("terminal = (%v, %d), want (ready, 9)", last.Kind(), last.Value())
	}
}

// TestFromSeq_StopsAtTerminal verifies trailing items are never pulled
// Given: An iterator with a ready status followed by a pending
// When: The task is polled past the terminal
// Then: The task exhausts without pulling the trailing item
func TestFromSeq_StopsAtTerminal(t *testing.T) {
	// Arrange
	trailing := false
	task := FromSeq(func(yield func(Status[int, int]) bool) {
		if !yield(Ready[int, int](1)) {
			return
		}
		trailing = true
		yield(Pending[int, int](0))
	})

	// Act
	st, alive := task.Poll()
	_, second := task.Poll()

	// Assert
	if !alive || st.Kind() != KindReady {
		t.Fatalf("first Poll() = (%v, alive=%v), want (ready, true)", st.Kind(), alive)
	}
	if second {
		t.Fatal("second Poll() alive = true, want false")
	}
	if trailing {
		t.Fatal("iterator advanced past the terminal status")
	}
}

// TestWithLabel verifies labels attach without disturbing poll behavior
// Given: A Completed task wrapped with WithLabel
// When: The label is read and the task polled
// Then: The label round trips and polling still resolves the inner task
func TestWithLabel(t *testing.T) {
	// Arrange
	task := WithLabel[int, int]("billing.sync", Completed[int, int](3))

	// Act
	label := taskLabel(task)
	st, alive := task.Poll()

	// Assert
	if label != "billing.sync" {
		t.Fatalf("taskLabel = %q, want %q", label, "billing.sync")
	}
	if !alive || st.Kind() != KindReady || st.Value() != 3 {
		t.Fatalf("Poll() = (%v, %v, alive=%v), want (ready, 3, true)", st.Kind(), st.Value(), alive)
	}
}

// TestTaskLabel_Unlabeled verifies unlabeled tasks report an empty label
// Given: A task that does not implement Labeler
// When: taskLabel inspects it
// Then: The empty string comes back
func TestTaskLabel_Unlabeled(t *testing.T) {
	// Arrange
	task := Completed[int, int](1)

	// Act and Assert
	if got := taskLabel(task); got != "" {
		t.Fatalf("taskLabel = %q, want empty", got)
	}
}
