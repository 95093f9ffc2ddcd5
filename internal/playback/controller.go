// Package playback owns the decode resource for the loaded video and runs the
// cancellable loop that feeds frames to the preview.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/logging"
	"github.com/kikiluvv/clipcutter/internal/video"
)

var (
	ErrResourceOpen = errors.New("playback: cannot open decode resource")
	ErrNotLoaded    = errors.New("playback: no video loaded")
)

const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

type State int

const (
	Idle State = iota
	Loaded
	Playing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StopReason tells an OnStop hook why the loop ended.
type StopReason int

const (
	StopRequested StopReason = iota
	EndOfStream
	ResourceClosed
)

func (r StopReason) String() string {
	switch r {
	case StopRequested:
		return "stop requested"
	case EndOfStream:
		return "end of stream"
	case ResourceClosed:
		return "resource closed"
	}
	return "unknown"
}

// Info describes the loaded video.
type Info struct {
	Path       string
	FrameCount int
	FPS        float64
	Duration   float64
}

// Options configures a Controller.
type Options struct {
	// FallbackFPS is used when the source reports no frame rate.
	FallbackFPS float64
	Speed       float64
	// OnFrame receives every displayed frame, including the first frame
	// after a load. It runs on the loader or loop goroutine.
	OnFrame func(video.Frame)
	// OnStop runs after the loop has exited and released the resource lock.
	OnStop func(StopReason)
}

// Controller owns a single decode resource and at most one playback loop.
//
// Control operations (Load, SeekAndPlay, Stop, Close) are serialized and
// always wait for a running loop to exit before touching the resource.
// Seeking closes and reopens the source because the decoders only read
// forward efficiently.
type Controller struct {
	logger  zerolog.Logger
	decoder video.Decoder
	opts    Options

	opMu sync.Mutex

	resMu  sync.Mutex
	source video.Source
	info   Info
	state  State

	running   atomic.Bool
	speedBits atomic.Uint64

	// owned by opMu
	stopCh   chan struct{}
	loopDone chan struct{}
}

func New(logger zerolog.Logger, decoder video.Decoder, opts Options) *Controller {
	if opts.FallbackFPS <= 0 {
		opts.FallbackFPS = 30
	}
	if opts.Speed == 0 {
		opts.Speed = 1
	}

	c := &Controller{
		logger:  logging.Component(logger, "playback"),
		decoder: decoder,
		opts:    opts,
	}
	c.SetSpeed(opts.Speed)
	return c
}

// Load stops playback, releases the current source and opens path. On
// success the first frame is emitted and the cursor rewound to frame 0.
func (c *Controller) Load(path string) (Info, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.resMu.Lock()
	c.releaseSource()

	src, err := c.decoder.Open(path)
	if err != nil {
		c.state = Idle
		c.info = Info{}
		c.resMu.Unlock()
		c.logger.Error().Err(err).Str("path", path).Msg("failed to open video")
		return Info{}, fmt.Errorf("%w: %v", ErrResourceOpen, err)
	}

	fps := src.FPS()
	if fps <= 0 || math.IsNaN(fps) {
		fps = c.opts.FallbackFPS
	}
	frames := src.FrameCount()
	if frames < 0 {
		frames = 0
	}

	c.source = src
	c.info = Info{
		Path:       path,
		FrameCount: frames,
		FPS:        fps,
		Duration:   float64(frames) / fps,
	}
	c.state = Loaded

	var first video.Frame
	var ok bool
	if err := src.SetPosition(0); err == nil {
		first, ok = src.Read()
		_ = src.SetPosition(0)
	}
	info := c.info
	c.resMu.Unlock()

	c.logger.Info().
		Str("path", path).
		Int("frames", info.FrameCount).
		Float64("fps", info.FPS).
		Float64("duration", info.Duration).
		Msg("video loaded")

	if ok && c.opts.OnFrame != nil {
		c.opts.OnFrame(first)
	}
	return info, nil
}

// SeekAndPlay reopens the current video at frame and starts the loop.
func (c *Controller) SeekAndPlay(frame int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.resMu.Lock()
	defer c.resMu.Unlock()

	path := c.info.Path
	if path == "" {
		return ErrNotLoaded
	}

	c.releaseSource()

	src, err := c.decoder.Open(path)
	if err != nil {
		c.state = Idle
		c.info = Info{}
		c.logger.Error().Err(err).Str("path", path).Msg("failed to reopen video for seek")
		return fmt.Errorf("%w: %v", ErrResourceOpen, err)
	}

	if last := c.info.FrameCount - 1; frame > last {
		frame = last
	}
	if frame < 0 {
		frame = 0
	}
	if err := src.SetPosition(frame); err != nil {
		src.Close()
		c.state = Idle
		c.info = Info{}
		return fmt.Errorf("%w: set position %d: %v", ErrResourceOpen, frame, err)
	}

	c.source = src
	c.state = Playing
	c.running.Store(true)
	c.stopCh = make(chan struct{})
	c.loopDone = make(chan struct{})

	c.logger.Info().Int("frame", frame).Float64("speed", c.Speed()).Msg("playback started")
	go c.loop(src, c.info.FPS, c.stopCh, c.loopDone)
	return nil
}

// SeekTime is SeekAndPlay at the frame for seconds.
func (c *Controller) SeekTime(seconds float64) error {
	info := c.Info()
	if info.Path == "" {
		return ErrNotLoaded
	}
	return c.SeekAndPlay(int(seconds * info.FPS))
}

// Stop ends playback and returns once the loop no longer touches the source.
func (c *Controller) Stop() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLoop()
}

// Close stops playback and releases the source.
func (c *Controller) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.resMu.Lock()
	defer c.resMu.Unlock()
	err := c.releaseSource()
	c.state = Idle
	c.info = Info{}
	return err
}

// SetSpeed clamps factor to [MinSpeed, MaxSpeed] and returns the stored value.
// A running loop picks it up on its next frame.
func (c *Controller) SetSpeed(factor float64) float64 {
	if math.IsNaN(factor) || factor < MinSpeed {
		factor = MinSpeed
	}
	if factor > MaxSpeed {
		factor = MaxSpeed
	}
	c.speedBits.Store(math.Float64bits(factor))
	return factor
}

func (c *Controller) Speed() float64 {
	return math.Float64frombits(c.speedBits.Load())
}

// FramesToSkip is how many frames each loop iteration advances.
func (c *Controller) FramesToSkip() int {
	return FramesToSkip(c.Speed())
}

// FramesToSkip returns max(1, round(speed)).
func FramesToSkip(speed float64) int {
	n := int(math.Round(speed))
	if n < 1 {
		return 1
	}
	return n
}

func (c *Controller) State() State {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	return c.state
}

func (c *Controller) Info() Info {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	return c.info
}

// Running reports whether the loop is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// stopLoop must be called with opMu held and resMu released.
func (c *Controller) stopLoop() {
	if c.loopDone == nil {
		return
	}

	c.running.Store(false)
	close(c.stopCh)
	<-c.loopDone
	c.stopCh = nil
	c.loopDone = nil

	c.resMu.Lock()
	if c.state == Playing {
		c.state = Stopped
	}
	c.resMu.Unlock()
	c.logger.Debug().Msg("playback loop joined")
}

// releaseSource must be called with resMu held.
func (c *Controller) releaseSource() error {
	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to release video source")
	}
	return err
}

func (c *Controller) loop(src video.Source, fps float64, stop <-chan struct{}, done chan<- struct{}) {
	reason := StopRequested
	frames := 0
	defer func() {
		close(done)
		c.logger.Debug().Stringer("reason", reason).Int("frames", frames).Msg("playback loop exited")
		if c.opts.OnStop != nil {
			c.opts.OnStop(reason)
		}
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	for c.running.Load() {
		c.resMu.Lock()
		if c.source != src {
			c.resMu.Unlock()
			reason = ResourceClosed
			return
		}

		f, ok := src.Read()
		if !ok {
			c.running.Store(false)
			c.state = Stopped
			c.resMu.Unlock()
			reason = EndOfStream
			return
		}
		for i := 1; i < c.FramesToSkip(); i++ {
			if !src.Grab() {
				break
			}
		}
		c.resMu.Unlock()

		frames++
		if c.opts.OnFrame != nil {
			c.opts.OnFrame(f)
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}
