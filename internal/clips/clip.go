package clips

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kikiluvv/clipcutter/pkg/util"
)

var (
	ErrUnknownSlot = errors.New("clips: unknown slot")
	ErrNoSelection = errors.New("clips: no slot selected")
	ErrLocked      = errors.New("clips: timeline locked")
)

// SlotNames are the three fixed clip slots in display order.
var SlotNames = []string{"clip1", "clip2", "clip3"}

// Slot is one named clip selection, in whole seconds.
type Slot struct {
	Name  string
	Label string
	Start float64
	End   float64
}

// Duration returns End - Start, never negative.
func (s Slot) Duration() float64 {
	return math.Max(0, s.End-s.Start)
}

// StartLabel and EndLabel are the strings shown on a slot card.
func (s Slot) StartLabel() string { return "Start: " + util.FormatClock(s.Start) }
func (s Slot) EndLabel() string { return "End: " + util.FormatClock(s.End) }

// Range is an export segment cut from the source video.
type Range struct {
	Name     string
	Offset   time.Duration
	Duration time.Duration
}

// Registry holds the clip slots together with the timeline lock and the
// currently selected slot. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	slots    map[string]*Slot
	selected string
	locked   bool

	debounce time.Duration
	pending  *time.Timer
	gen      uint64
	onSelect func(name string)
}

// NewRegistry creates the three slots at {0,0} with the timeline locked.
// Selections are applied after debounce; onSelect, if set, runs after a
// selection has been applied.
func NewRegistry(debounce time.Duration, onSelect func(name string)) *Registry {
	r := &Registry{
		slots:    make(map[string]*Slot, len(SlotNames)),
		locked:   true,
		debounce: debounce,
		onSelect: onSelect,
	}
	for i, name := range SlotNames {
		r.slots[name] = &Slot{Name: name, Label: fmt.Sprintf("Clip %d", i+1)}
	}
	return r
}

// Select schedules name to become the selected slot after the debounce tick.
// A newer Select inside the window replaces the pending one.
func (r *Registry) Select(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}

	r.cancelPending()
	gen := r.gen
	r.pending = time.AfterFunc(r.debounce, func() { r.apply(name, gen) })
	return nil
}

func (r *Registry) apply(name string, gen uint64) {
	r.mu.Lock()
	if r.pending == nil || r.gen != gen {
		// superseded or cancelled by a reset
		r.mu.Unlock()
		return
	}
	r.pending = nil
	r.selected = name
	r.locked = false
	cb := r.onSelect
	r.mu.Unlock()

	if cb != nil {
		cb(name)
	}
}

func (r *Registry) cancelPending() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.gen++
}

// Commit stores start and end, truncated to whole seconds, in the selected slot.
func (r *Registry) Commit(start, end float64) (Slot, error) {
	return r.update(func(s *Slot) {
		s.Start = math.Trunc(start)
		s.End = math.Trunc(end)
	})
}

// CommitStart and CommitEnd store one side of the selected slot.
func (r *Registry) CommitStart(start float64) (Slot, error) {
	return r.update(func(s *Slot) { s.Start = math.Trunc(start) })
}

func (r *Registry) CommitEnd(end float64) (Slot, error) {
	return r.update(func(s *Slot) { s.End = math.Trunc(end) })
}

func (r *Registry) update(fn func(*Slot)) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected == "" {
		return Slot{}, ErrNoSelection
	}
	s := r.slots[r.selected]
	fn(s)
	return *s, nil
}

// ResetAll gives every slot the range {0, duration}, locks the timeline and
// drops the selection, including one still waiting on the debounce tick.
func (r *Registry) ResetAll(duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelPending()
	for _, s := range r.slots {
		s.Start = 0
		s.End = duration
	}
	r.selected = ""
	r.locked = true
}

// Editable reports whether handle drags may change the selected slot.
func (r *Registry) Editable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.locked && r.selected != ""
}

func (r *Registry) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

func (r *Registry) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Slot returns a copy of the named slot.
func (r *Registry) Slot(name string) (Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[name]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}

// Slots returns copies of all slots in display order.
func (r *Registry) Slots() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Slot, 0, len(SlotNames))
	for _, name := range SlotNames {
		out = append(out, *r.slots[name])
	}
	return out
}

// Ranges converts every slot with a positive duration into an export range.
func (r *Registry) Ranges() []Range {
	var ranges []Range
	for _, s := range r.Slots() {
		if s.Duration() <= 0 {
			continue
		}
		ranges = append(ranges, Range{
			Name:     s.Name,
			Offset:   util.Seconds(s.Start),
			Duration: util.Seconds(s.Duration()),
		})
	}
	return ranges
}
