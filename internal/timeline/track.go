// Package timeline maps handle positions on a fixed-width track to playback
// time and keeps the two handles ordered.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrRangeViolation is returned by the reject policy when a move would leave
// the track or cross the other handle.
var ErrRangeViolation = errors.New("timeline: handle move out of range")

// Policy decides what happens to out-of-range handle moves.
type Policy string

const (
	Clamp  Policy = "clamp"
	Reject Policy = "reject"
)

// Handle is the pixel extent of one marker on the track.
type Handle struct {
	Left  int
	Right int
}

// Move describes an accepted handle move.
type Move struct {
	Pixel   int
	Time    float64
	Clamped bool
}

// Track holds the handle pair for a track of fixed pixel width. The start
// handle is addressed by its left edge and the end handle by its right edge.
// A Track is not safe for concurrent use.
type Track struct {
	width       int
	handleWidth int
	policy      Policy

	startLeft int
	endRight  int
	duration  float64
}

// New returns a track with both handles at the extremes and zero duration.
func New(width, handleWidth int, policy Policy) *Track {
	if policy != Reject {
		policy = Clamp
	}
	return &Track{
		width:       width,
		handleWidth: handleWidth,
		policy:      policy,
		startLeft:   0,
		endRight:    width,
	}
}

func (t *Track) Width() int { return t.width }
func (t *Track) HandleWidth() int { return t.handleWidth }
func (t *Track) Policy() Policy { return t.policy }
func (t *Track) Duration() float64 { return t.duration }
func (t *Track) StartTime() float64 { return t.PixelToTime(float64(t.startLeft)) }
func (t *Track) EndTime() float64 { return t.PixelToTime(float64(t.endRight)) }

// Start returns the start handle extent.
func (t *Track) Start() Handle {
	return Handle{Left: t.startLeft, Right: t.startLeft + t.handleWidth}
}

// End returns the end handle extent.
func (t *Track) End() Handle {
	return Handle{Left: t.endRight - t.handleWidth, Right: t.endRight}
}

// Reset sets a new duration and moves the handles back to the extremes.
func (t *Track) Reset(duration float64) {
	if duration < 0 || math.IsNaN(duration) {
		duration = 0
	}
	t.duration = duration
	t.startLeft = 0
	t.endRight = t.width
}

// PixelToTime converts a pixel offset into seconds.
func (t *Track) PixelToTime(x float64) float64 {
	if t.width <= 0 {
		return 0
	}
	return x / float64(t.width) * t.duration
}

// TimeToPixel converts seconds into the nearest pixel offset on the track.
func (t *Track) TimeToPixel(seconds float64) int {
	if t.duration <= 0 {
		return 0
	}
	px := int(math.Round(seconds / t.duration * float64(t.width)))
	return clamp(px, 0, t.width)
}

// MoveStart places the start handle's left edge at x. The valid range is
// [0, end.Left - handleWidth].
func (t *Track) MoveStart(x int) (Move, error) {
	lo, hi := 0, t.End().Left-t.handleWidth
	px, clamped, err := t.fit(x, lo, hi)
	if err != nil {
		return Move{}, fmt.Errorf("start handle to %d (valid %d..%d): %w", x, lo, hi, err)
	}
	t.startLeft = px
	return Move{Pixel: px, Time: t.StartTime(), Clamped: clamped}, nil
}

// MoveEnd places the end handle's right edge at x. The valid range is
// [start.Right + handleWidth, width].
func (t *Track) MoveEnd(x int) (Move, error) {
	lo, hi := t.Start().Right+t.handleWidth, t.width
	px, clamped, err := t.fit(x, lo, hi)
	if err != nil {
		return Move{}, fmt.Errorf("end handle to %d (valid %d..%d): %w", x, lo, hi, err)
	}
	t.endRight = px
	return Move{Pixel: px, Time: t.EndTime(), Clamped: clamped}, nil
}

// Place positions both handles for a stored start/end time pair. The result
// is pulled back inside the track and apart from each other when needed.
func (t *Track) Place(start, end float64) {
	s := clamp(t.TimeToPixel(start), 0, t.width-2*t.handleWidth)
	e := clamp(t.TimeToPixel(end), s+2*t.handleWidth, t.width)
	t.startLeft = s
	t.endRight = e
}

func (t *Track) fit(x, lo, hi int) (int, bool, error) {
	if x >= lo && x <= hi {
		return x, false, nil
	}
	if t.policy == Reject {
		return 0, false, ErrRangeViolation
	}
	return clamp(x, lo, hi), true, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
