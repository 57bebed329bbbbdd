package core

import (
	"testing"
	"time"
)

// TestAwaitFuture_PendingUntilResolved verifies the future adapter
// Given: A channel backed future with no value yet
// When: The task is polled before and after the value arrives
// Then: Polls report Pending with the marker until the value is ready,
// then a single Ready, then exhaustion
func TestAwaitFuture_PendingUntilResolved(t *testing.T) {
	// Arrange
	ch := make(chan int, 1)
	task := AwaitFuture[int, string](ChannelFuture[int](ch), "awaiting")

	// Act and Assert - nothing available yet
	st, alive := task.Poll()
	if !alive || st.Kind() != KindPending || st.Progress() != "awaiting" {
		t.Fatalf("Poll() = (%v, %q, alive=%v), want (pending, awaiting, true)", st.Kind(), st.Progress(), alive)
	}

	// Act and Assert - the value lands
	ch <- 11
	st, alive = task.Poll()
	if !alive || st.Kind() != KindReady || st.Value() != 11 {
		t.Fatalf("Poll() = (%v, %d, alive=%v), want (ready, 11, true)", st.Kind(), st.Value(), alive)
	}

	// Act and Assert - done
	if _, alive = task.Poll(); alive {
		t.Fatal("Poll() after resolution alive = true, want false")
	}
}

// TestChannelFuture_ClosedResolvesZero verifies closed channels resolve
// Given: A channel future whose channel closes without a value
// When: The future is polled
// Then: It resolves with the zero value
func TestChannelFuture_ClosedResolvesZero(t *testing.T) {
	// Arrange
	ch := make(chan int)
	close(ch)
	f := ChannelFuture[int](ch)

	// Act
	value, ready := f.PollFuture(nopWake)

	// Assert
	if !ready || value != 0 {
		t.Fatalf("PollFuture() = (%d, %v), want (0, true)", value, ready)
	}
}

// TestAwaitStream_EmitsItemsThenEndMarker verifies the stream adapter
// Given: A channel backed stream carrying two values before closing
// When: The task is polled through both values and the close
// Then: Each value arrives as Ready(Item{OK: true}) and the close becomes
// a final Ready with the zero Item
func TestAwaitStream_EmitsItemsThenEndMarker(t *testing.T) {
	// Arrange
	ch := make(chan string, 2)
	ch <- "alpha"
	ch <- "beta"
	task := AwaitStream[string, int](ChannelStream[string](ch), 0)

	// Act and Assert - first element
	st, alive := task.Poll()
	if !alive || st.Kind() != KindReady {
		t.Fatalf("poll 1 = (%v, alive=%v), want (ready, true)", st.Kind(), alive)
	}
	if it := st.Value(); !it.OK || it.Value != "alpha" {
		t.Fatalf("item 1 = %+v, want {alpha true}", it)
	}

	// Act and Assert - second element
	st, _ = task.Poll()
	if it := st.Value(); !it.OK || it.Value != "beta" {
		t.Fatalf("item 2 = %+v, want {beta true}", it)
	}

	// Act and Assert - exhausted channel reports pending, not end
	st, alive = task.Poll()
	if !alive || st.Kind() != KindPending {
		t.Fatalf("poll 3 = (%v, alive=%v), want (pending, true)", st.Kind(), alive)
	}

	// Act and Assert - close ends the stream with the zero item
	close(ch)
	st, alive = task.Poll()
	if !alive || st.Kind() != KindReady {
		t.Fatalf("poll 4 = (%v, alive=%v), want (ready, true)", st.Kind(), alive)
	}
	if it := st.Value(); it.OK {
		t.Fatalf("end marker = %+v, want OK=false", it)
	}
	if _, alive = task.Poll(); alive {
		t.Fatal("poll after end marker alive = true, want false")
	}
}

// TestGoFuture_ResolvesOnEngine verifies goroutine futures complete tasks
// Given: A GoFuture running a short computation, awaited on an engine
// When: The engine drains
// Then: The observation ends with the computed value
func TestGoFuture_ResolvesOnEngine(t *testing.T) {
	// Arrange
	eng := NewSingleThreadEngine[int, int](quietOptions())
	future := GoFuture(func() int {
		time.Sleep(10 * time.Millisecond)
		return 21
	})

	// Act - the engine spins pending polls until the future resolves
	obs, err := eng.SubmitSchedule(AwaitFuture[int, int](future, 0))
	if err != nil {
		t.Fatalf("SubmitSchedule() = %v, want nil", err)
	}
	eng.RunUntilIdle()
	statuses := collect(obs)

	// Assert
	if len(statuses) == 0 {
		t.Fatal("observation stream closed empty")
	}
	last := statuses[len(statuses)-1]
	if last.Kind() != KindReady || last.Value() != 21 {
		t.Fatalf("terminal = (%v, %d), want (ready, 21)", last.Kind(), last.Value())
	}
}
