package timeline

import (
	"sync"
	"testing"
	"time"
)

// viewStub is a mutable window source standing in for the controller.
type viewStub struct {
	mu  sync.Mutex
	win Window
}

func (v *viewStub) set(win Window) {
	v.mu.Lock()
	v.win = win
	v.mu.Unlock()
}

func (v *viewStub) get() Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.win
}

func TestCommitterCoalescesRapidInteraction(t *testing.T) {
	view := &viewStub{}
	settle := 300 * time.Millisecond
	c := NewCommitter(settle, view.get)
	defer c.Stop()

	var (
		hookMu   sync.Mutex
		commits  int
		got      Window
		commitAt time.Time
	)
	c.SetCommitHook(func(win Window) {
		hookMu.Lock()
		commits++
		got = win
		commitAt = time.Now()
		hookMu.Unlock()
	})

	// A drag: 20 view updates 10ms apart, each arming the settle timer.
	base := Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)}
	var lastNote time.Time
	for i := 0; i < 20; i++ {
		view.set(base.Shift(time.Duration(i) * 24 * time.Hour))
		c.NoteInteraction()
		lastNote = time.Now()
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hookMu.Lock()
		n := commits
		hookMu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Give a second commit every chance to show up, then assert there was
	// exactly one, carrying the final window.
	time.Sleep(2 * settle)

	hookMu.Lock()
	defer hookMu.Unlock()
	if commits != 1 {
		t.Fatalf("got %d commits for one drag, want 1", commits)
	}
	want := base.Shift(19 * 24 * time.Hour).SnapToDays()
	if !got.Equal(want) {
		t.Errorf("committed %v - %v, want %v - %v",
			got.Start.Format("2006-01-02"), got.End.Format("2006-01-02"),
			want.Start.Format("2006-01-02"), want.End.Format("2006-01-02"))
	}
	if elapsed := commitAt.Sub(lastNote); elapsed < settle-50*time.Millisecond {
		t.Errorf("commit fired %v after the last interaction, want about %v", elapsed, settle)
	}
	if !c.Committed().Equal(got) {
		t.Errorf("Committed() = %v, want %v", c.Committed(), got)
	}
}

func TestCommitterFlushIsImmediateAndIdempotent(t *testing.T) {
	view := &viewStub{win: Window{Start: date(2025, 3, 1), End: date(2025, 4, 1)}}
	c := NewCommitter(time.Hour, view.get)
	defer c.Stop()

	commits := 0
	c.SetCommitHook(func(Window) { commits++ })

	c.NoteInteraction()
	if !c.Pending() {
		t.Fatal("timer should be armed after NoteInteraction")
	}

	c.Flush()
	if commits != 1 {
		t.Fatalf("got %d commits after flush, want 1", commits)
	}
	if c.Pending() {
		t.Error("timer still armed after flush")
	}

	c.Flush()
	c.Flush()
	if commits != 1 {
		t.Errorf("repeated flushes committed again: %d commits", commits)
	}

	want := Window{Start: date(2025, 3, 1), End: date(2025, 4, 1)}.SnapToDays()
	if !c.Committed().Equal(want) {
		t.Errorf("Committed() = %v, want %v", c.Committed(), want)
	}
}

func TestCommitterSameDayMoveCommitsNothing(t *testing.T) {
	base := Window{Start: date(2025, 4, 1), End: date(2025, 6, 30)}
	view := &viewStub{}
	c := NewCommitter(time.Hour, view.get)
	defer c.Stop()
	c.Seed(base)

	commits, settles := 0, 0
	c.SetCommitHook(func(Window) { commits++ })
	c.SetSettledHook(func() { settles++ })

	// Wiggle within the same days: a few hours of movement snaps back to
	// the identical whole-day range.
	view.set(base.Shift(2 * time.Hour))
	c.NoteInteraction()
	c.Flush()

	if commits != 0 {
		t.Errorf("same-day move committed: %d commits", commits)
	}
	if settles != 1 {
		t.Errorf("settle hook fired %d times, want 1", settles)
	}
	if !c.Committed().Equal(base.SnapToDays()) {
		t.Errorf("Committed() drifted to %v", c.Committed())
	}
}

func TestCommitterSeedSuppressesFirstCommit(t *testing.T) {
	win := Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)}
	view := &viewStub{win: win}
	c := NewCommitter(50*time.Millisecond, view.get)
	defer c.Stop()
	c.Seed(win)

	var (
		mu      sync.Mutex
		commits int
		settles int
	)
	c.SetCommitHook(func(Window) { mu.Lock(); commits++; mu.Unlock() })
	c.SetSettledHook(func() { mu.Lock(); settles++; mu.Unlock() })

	c.NoteInteraction()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := settles
		mu.Unlock()
		if n >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if settles != 1 {
		t.Fatalf("settle hook fired %d times, want 1", settles)
	}
	if commits != 0 {
		t.Errorf("unchanged view committed: %d commits", commits)
	}
}

func TestCommitterStopCancelsPending(t *testing.T) {
	view := &viewStub{win: Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)}}
	c := NewCommitter(50*time.Millisecond, view.get)

	var (
		mu      sync.Mutex
		commits int
	)
	c.SetCommitHook(func(Window) { mu.Lock(); commits++; mu.Unlock() })

	c.NoteInteraction()
	c.Stop()

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if commits != 0 {
		t.Errorf("stopped committer still committed: %d commits", commits)
	}
	if c.Pending() {
		t.Error("stopped committer reports a pending commit")
	}

	c.NoteInteraction()
	if c.Pending() {
		t.Error("NoteInteraction armed a stopped committer")
	}
}

func TestCommitterIgnoresZeroWindow(t *testing.T) {
	view := &viewStub{}
	c := NewCommitter(time.Hour, view.get)
	defer c.Stop()

	commits, settles := 0, 0
	c.SetCommitHook(func(Window) { commits++ })
	c.SetSettledHook(func() { settles++ })

	c.NoteInteraction()
	c.Flush()

	if commits != 0 {
		t.Errorf("zero window committed: %d commits", commits)
	}
	if settles != 1 {
		t.Errorf("settle hook fired %d times, want 1", settles)
	}
}
