// Package videotest provides an in-memory decoder for exercising playback
// without OpenCV.
package videotest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kikiluvv/clipcutter/internal/video"
)

// Decoder hands out Sources over a synthetic clip. Paths listed in Fail
// refuse to open.
type Decoder struct {
	Frames int
	FPS    float64
	Width  int
	Height int

	mu     sync.Mutex
	fail   map[string]bool
	opened []*Source

	// Reads counts frames decoded across every source.
	Reads atomic.Int64
}

// New returns a decoder for a frames-long clip at fps with 4x2 frames.
func New(frames int, fps float64) *Decoder {
	return &Decoder{Frames: frames, FPS: fps, Width: 4, Height: 2, fail: map[string]bool{}}
}

// Fail makes future opens of path fail.
func (d *Decoder) Fail(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[path] = true
}

func (d *Decoder) Open(path string) (video.Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail[path] {
		return nil, fmt.Errorf("%w %s", video.ErrOpen, path)
	}
	s := &Source{dec: d, path: path}
	d.opened = append(d.opened, s)
	return s, nil
}

// Opened returns every source handed out so far.
func (d *Decoder) Opened() []*Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Source(nil), d.opened...)
}

// Live returns how many sources are currently not closed.
func (d *Decoder) Live() int {
	n := 0
	for _, s := range d.Opened() {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Source is a synthetic decode resource. It records reads after Close.
type Source struct {
	dec  *Decoder
	path string

	mu          sync.Mutex
	cursor      int
	closed      bool
	readsClosed int
	positions   []int
}

func (s *Source) FrameCount() int { return s.dec.Frames }
func (s *Source) FPS() float64 { return s.dec.FPS }

func (s *Source) SetPosition(frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = frame
	s.positions = append(s.positions, frame)
	return nil
}

func (s *Source) Read() (video.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.readsClosed++
		return video.Frame{}, false
	}
	if s.cursor >= s.dec.Frames {
		return video.Frame{}, false
	}
	s.dec.Reads.Add(1)

	w, h := s.dec.Width, s.dec.Height
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = byte(s.cursor)
	}
	f := video.Frame{Index: s.cursor, Width: w, Height: h, Data: data}
	s.cursor++
	return f, true
}

func (s *Source) Grab() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cursor >= s.dec.Frames {
		return false
	}
	s.cursor++
	return true
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) Path() string { return s.path }

func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReadsAfterClose counts Read calls made on the source after Close.
func (s *Source) ReadsAfterClose() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readsClosed
}

// Positions lists every SetPosition target in call order.
func (s *Source) Positions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.positions...)
}
