// Package video defines the frame decoding port used by playback. The
// OpenCV implementation lives in video/opencv.
package video

import "errors"

// ErrOpen is returned when a decode resource cannot be opened.
var ErrOpen = errors.New("video: cannot open source")

// Frame is one decoded picture in packed BGR24 order, row-major.
type Frame struct {
	Index  int
	Width  int
	Height int
	Data   []byte
}

// Valid reports whether Data matches the frame dimensions.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*3
}

// Decoder opens decode resources for a file path.
type Decoder interface {
	Open(path string) (Source, error)
}

// Source is an open, forward-reading decode resource. Implementations do not
// need to be safe for concurrent use; callers serialize access.
type Source interface {
	FrameCount() int
	FPS() float64
	// SetPosition moves the read cursor to a frame index.
	SetPosition(frame int) error
	// Read decodes the next frame. ok is false at end of stream or on a
	// failed read.
	Read() (f Frame, ok bool)
	// Grab advances one frame without decoding it.
	Grab() bool
	Close() error
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(path string) (Source, error)

func (f DecoderFunc) Open(path string) (Source, error) { return f(path) }
