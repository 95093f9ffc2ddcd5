// Package opencv implements the video decoding port on top of gocv. It is
// the only package that links OpenCV.
package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/kikiluvv/clipcutter/internal/video"
)

// Decoder opens files through OpenCV's VideoCapture.
type Decoder struct{}

func (Decoder) Open(path string) (video.Source, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", video.ErrOpen, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w %s", video.ErrOpen, path)
	}

	return &gocvSource{
		capture: capture,
		mat:     gocv.NewMat(),
		frames:  int(capture.Get(gocv.VideoCaptureFrameCount)),
		fps:     capture.Get(gocv.VideoCaptureFPS),
	}, nil
}

type gocvSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	frames  int
	fps     float64
	cursor  int
}

func (s *gocvSource) FrameCount() int { return s.frames }
func (s *gocvSource) FPS() float64 { return s.fps }

func (s *gocvSource) SetPosition(frame int) error {
	if frame < 0 {
		return fmt.Errorf("negative frame index %d", frame)
	}
	s.capture.Set(gocv.VideoCapturePosFrames, float64(frame))
	s.cursor = frame
	return nil
}

func (s *gocvSource) Read() (video.Frame, bool) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return video.Frame{}, false
	}
	if s.mat.Channels() != 3 {
		return video.Frame{}, false
	}

	f := video.Frame{
		Index:  s.cursor,
		Width:  s.mat.Cols(),
		Height: s.mat.Rows(),
		Data:   s.mat.ToBytes(),
	}
	s.cursor++
	return f, true
}

func (s *gocvSource) Grab() bool {
	s.capture.Grab(1)
	s.cursor++
	return true
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
