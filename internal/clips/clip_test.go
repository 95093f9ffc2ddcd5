package clips

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestInitialState(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)

	if !r.Locked() || r.Selected() != "" || r.Editable() {
		t.Fatal("registry should start locked with no selection")
	}
	slots := r.Slots()
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, s := range slots {
		if s.Name != SlotNames[i] || s.Start != 0 || s.End != 0 {
			t.Errorf("unexpected slot %+v", s)
		}
	}
	if slots[1].Label != "Clip 2" {
		t.Errorf("expected label Clip 2, got %q", slots[1].Label)
	}
}

func TestSelectIsDeferred(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(20*time.Millisecond, func(string) { calls.Add(1) })

	if err := r.Select("clip2"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if r.Selected() != "" {
		t.Error("selection should not apply before the debounce tick")
	}

	waitFor(t, func() bool { return r.Selected() == "clip2" })
	if r.Locked() || !r.Editable() {
		t.Error("selecting should unlock the timeline")
	}
	if calls.Load() != 1 {
		t.Errorf("expected one callback, got %d", calls.Load())
	}
}

func TestSelectDebouncesDoubleFire(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Value
	r := NewRegistry(20*time.Millisecond, func(name string) {
		calls.Add(1)
		last.Store(name)
	})

	r.Select("clip1")
	r.Select("clip3")

	waitFor(t, func() bool { return r.Selected() != "" })
	time.Sleep(40 * time.Millisecond)

	if r.Selected() != "clip3" {
		t.Errorf("expected the later selection to win, got %q", r.Selected())
	}
	if calls.Load() != 1 || last.Load() != "clip3" {
		t.Errorf("expected a single callback for clip3, got %d (%v)", calls.Load(), last.Load())
	}
}

func TestSelectUnknownSlot(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	if err := r.Select("clip9"); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestCommitWithoutSelection(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	if _, err := r.Commit(1, 2); !errors.Is(err, ErrNoSelection) {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}
}

func TestCommitTouchesOnlySelectedSlot(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	r.ResetAll(300)
	r.Select("clip2")
	waitFor(t, func() bool { return r.Selected() == "clip2" })

	got, err := r.Commit(12.9, 150.4)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if got.Start != 12 || got.End != 150 {
		t.Errorf("expected truncated 12..150, got %v..%v", got.Start, got.End)
	}
	if got.EndLabel() != "End: 2:30" {
		t.Errorf("unexpected label %q", got.EndLabel())
	}

	for _, name := range []string{"clip1", "clip3"} {
		s, _ := r.Slot(name)
		if s.Start != 0 || s.End != 300 {
			t.Errorf("%s should be untouched, got %+v", name, s)
		}
	}
}

func TestResetAll(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	r.Select("clip1")
	waitFor(t, func() bool { return r.Selected() == "clip1" })
	r.Commit(5, 9)

	r.ResetAll(300)

	if !r.Locked() || r.Selected() != "" {
		t.Error("reset should lock and clear the selection")
	}
	for _, s := range r.Slots() {
		if s.Start != 0 || s.End != 300 {
			t.Errorf("slot %s not reset: %+v", s.Name, s)
		}
		if s.StartLabel() != "Start: 0:00" || s.EndLabel() != "End: 5:00" {
			t.Errorf("unexpected labels %q %q", s.StartLabel(), s.EndLabel())
		}
	}
}

func TestResetCancelsPendingSelect(t *testing.T) {
	r := NewRegistry(30*time.Millisecond, nil)
	r.Select("clip1")
	r.ResetAll(10)

	time.Sleep(60 * time.Millisecond)
	if r.Selected() != "" || !r.Locked() {
		t.Error("a select pending across a reset must not apply")
	}
}

func TestRanges(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	r.ResetAll(200)
	r.Select("clip2")
	waitFor(t, func() bool { return r.Selected() == "clip2" })
	r.Commit(50, 50)

	ranges := r.Ranges()
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges (clip2 is empty), got %d", len(ranges))
	}
	if ranges[0].Name != "clip1" || ranges[1].Name != "clip3" {
		t.Errorf("unexpected range order %+v", ranges)
	}
	if ranges[0].Offset != 0 || ranges[0].Duration != 200*time.Second {
		t.Errorf("unexpected range %+v", ranges[0])
	}
}

func TestCommitOneSide(t *testing.T) {
	r := NewRegistry(time.Millisecond, nil)
	r.ResetAll(300)
	if _, err := r.CommitEnd(10); !errors.Is(err, ErrNoSelection) {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}

	r.Select("clip3")
	waitFor(t, func() bool { return r.Selected() == "clip3" })

	r.CommitStart(42.7)
	s, _ := r.Slot("clip3")
	if s.Start != 42 || s.End != 300 {
		t.Errorf("CommitStart should keep the end, got %+v", s)
	}

	r.CommitEnd(99.99)
	s, _ = r.Slot("clip3")
	if s.Start != 42 || s.End != 99 {
		t.Errorf("CommitEnd should keep the start, got %+v", s)
	}
}
