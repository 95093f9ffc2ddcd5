// Package session ties one loaded video to its playback controller, clip
// slots and timeline handles, and pushes every change to a View.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/clips"
	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/logging"
	"github.com/kikiluvv/clipcutter/internal/pipeline"
	"github.com/kikiluvv/clipcutter/internal/playback"
	"github.com/kikiluvv/clipcutter/internal/preview"
	"github.com/kikiluvv/clipcutter/internal/tasks"
	"github.com/kikiluvv/clipcutter/internal/timeline"
	"github.com/kikiluvv/clipcutter/internal/video"
	"github.com/kikiluvv/clipcutter/pkg/util"
)

var (
	ErrInvalidInputFile  = errors.New("session: unsupported input file")
	ErrNoVideo           = errors.New("session: no video loaded")
	ErrExportUnavailable = errors.New("session: export unavailable")
)

// View receives display updates. Calls arrive from worker goroutines, so an
// implementation must hand them to its UI thread.
type View interface {
	ShowFrame(img image.Image)
	ShowVideo(info playback.Info)
	ShowSlots(slots []clips.Slot, selected string)
	ShowHandles(start, end timeline.Handle)
	ShowError(err error)
}

// Exporter runs an export job.
type Exporter interface {
	Export(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Session is the state of one editor window.
type Session struct {
	ID string

	logger   zerolog.Logger
	cfg      *config.Config
	view     View
	player   *playback.Controller
	registry *clips.Registry
	tasks    *tasks.Runner
	exporter Exporter
	preview  preview.Options

	// loadMu serializes loads and seeks so session state is applied in the
	// same order the controller opened files.
	loadMu sync.Mutex

	// mu guards the track and the loaded path. It is taken before the
	// registry's lock so a reset and a drag never interleave.
	mu    sync.Mutex
	track *timeline.Track
	path  string
}

// New builds a session. exporter may be nil when ffmpeg is not installed;
// Export then fails with ErrExportUnavailable.
func New(logger zerolog.Logger, cfg *config.Config, decoder video.Decoder, exporter Exporter, view View) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:       id,
		logger:   logging.Component(logger, "session").With().Str("session", id).Logger(),
		cfg:      cfg,
		view:     view,
		tasks:    tasks.NewRunner(logger),
		exporter: exporter,
		preview: preview.Options{
			Width:     cfg.Preview.Width,
			Height:    cfg.Preview.Height,
			Rotate180: cfg.Preview.Rotate180,
		},
		track: timeline.New(cfg.Timeline.TrackWidth, cfg.Timeline.HandleWidth, timeline.Policy(cfg.Timeline.BoundPolicy)),
	}

	s.registry = clips.NewRegistry(cfg.UI.SelectDebounce, s.slotSelected)
	s.player = playback.New(logger, decoder, playback.Options{
		FallbackFPS: cfg.Playback.FallbackFPS,
		Speed:       cfg.Playback.DefaultSpeed,
		OnFrame:     s.showFrame,
		OnStop: func(r playback.StopReason) {
			s.logger.Debug().Stringer("reason", r).Msg("playback stopped")
		},
	})

	return s
}

// Load checks the extension and loads path in the background. The returned
// task finishes once the video is open and the view has been reset.
func (s *Session) Load(path string) (*tasks.Task, error) {
	path = util.CleanDropPath(path)
	if !util.HasExtension(path, s.cfg.UI.Extensions) {
		s.logger.Warn().Str("path", path).Msg("rejected input file")
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrInvalidInputFile, filepath.Base(path), strings.Join(s.cfg.UI.Extensions, ", "))
	}

	return s.tasks.Go("load", func() error { return s.load(path) }), nil
}

func (s *Session) load(path string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	info, err := s.player.Load(path)
	if err != nil {
		s.unload(err)
		return err
	}

	s.reset(path, info.Duration)

	s.logger.Info().
		Str("path", path).
		Float64("duration", info.Duration).
		Msg("session reset for new video")

	s.view.ShowVideo(info)
	s.refresh()
	return nil
}

// reset points the session at path and puts the handles and every slot at
// {0, duration} in one step.
func (s *Session) reset(path string, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.track.Reset(duration)
	s.registry.ResetAll(duration)
}

// unload clears the session after the controller lost its video.
func (s *Session) unload(err error) {
	s.reset("", 0)
	s.view.ShowError(err)
	s.refresh()
}

// SelectSlot makes name the active slot after the registry's debounce tick.
func (s *Session) SelectSlot(name string) error {
	return s.registry.Select(name)
}

// slotSelected runs once a selection has been applied and moves the handles
// to the slot's stored range.
func (s *Session) slotSelected(name string) {
	slot, _ := s.registry.Slot(name)

	s.mu.Lock()
	// a load may have reset the registry since the selection was applied
	if s.registry.Selected() == name && s.track.Duration() > 0 {
		s.track.Place(slot.Start, slot.End)
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("slot", name).
		Float64("start", slot.Start).
		Float64("end", slot.End).
		Msg("slot selected")
	s.refresh()
}

// DragStart moves the start handle to x and stores the new start time in
// the selected slot.
func (s *Session) DragStart(x int) (timeline.Move, error) {
	return s.drag("start", x, (*timeline.Track).MoveStart, s.registry.CommitStart)
}

// DragEnd moves the end handle to x and stores the new end time in the
// selected slot.
func (s *Session) DragEnd(x int) (timeline.Move, error) {
	return s.drag("end", x, (*timeline.Track).MoveEnd, s.registry.CommitEnd)
}

func (s *Session) drag(handle string, x int,
	move func(*timeline.Track, int) (timeline.Move, error),
	commit func(float64) (clips.Slot, error),
) (timeline.Move, error) {
	mv, err := s.moveAndCommit(x, move, commit)
	switch {
	case errors.Is(err, clips.ErrLocked):
		s.logger.Debug().Str("handle", handle).Int("x", x).Msg("drag ignored, timeline locked")
		return timeline.Move{}, err
	case err != nil:
		s.logger.Debug().Err(err).Str("handle", handle).Msg("drag rejected")
		return mv, err
	}
	if mv.Clamped {
		s.logger.Debug().Str("handle", handle).Int("x", x).Int("clamped", mv.Pixel).Msg("drag clamped")
	}

	s.refresh()
	return mv, nil
}

// moveAndCommit checks the lock, moves the handle and stores the time under
// one hold of mu, so a concurrent reset sees either none or all of it.
func (s *Session) moveAndCommit(x int,
	move func(*timeline.Track, int) (timeline.Move, error),
	commit func(float64) (clips.Slot, error),
) (timeline.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Editable() {
		return timeline.Move{}, clips.ErrLocked
	}
	mv, err := move(s.track, x)
	if err != nil {
		return timeline.Move{}, err
	}
	if _, err := commit(mv.Time); err != nil {
		return mv, err
	}
	return mv, nil
}

// ReleaseStart seeks to the start handle and plays from there.
func (s *Session) ReleaseStart() (*tasks.Task, error) {
	return s.release((*timeline.Track).StartTime)
}

// ReleaseEnd seeks to the end handle and plays from there.
func (s *Session) ReleaseEnd() (*tasks.Task, error) {
	return s.release((*timeline.Track).EndTime)
}

func (s *Session) release(at func(*timeline.Track) float64) (*tasks.Task, error) {
	if !s.registry.Editable() {
		return nil, clips.ErrLocked
	}

	s.mu.Lock()
	loaded := s.path != ""
	seconds := at(s.track)
	s.mu.Unlock()
	if !loaded {
		return nil, ErrNoVideo
	}

	return s.tasks.Go("seek", func() error {
		s.loadMu.Lock()
		defer s.loadMu.Unlock()

		if err := s.player.SeekTime(seconds); err != nil {
			// a failed reopen leaves the controller idle
			s.logger.Error().Err(err).Float64("at", seconds).Msg("seek failed, video unloaded")
			s.unload(err)
			return err
		}
		return nil
	}), nil
}

// SetSpeed clamps and applies a playback speed factor.
func (s *Session) SetSpeed(factor float64) float64 {
	applied := s.player.SetSpeed(factor)
	s.logger.Debug().Float64("speed", applied).Int("skip", s.player.FramesToSkip()).Msg("speed changed")
	return applied
}

// Export cuts every non-empty slot out of the loaded video and joins them.
// outDir and finalPath fall back to the export config when empty.
func (s *Session) Export(ctx context.Context, outDir, finalPath string, progress func(pipeline.Step)) (*pipeline.Result, error) {
	if s.exporter == nil {
		return nil, ErrExportUnavailable
	}

	s.mu.Lock()
	path := s.path
	s.mu.Unlock()
	if path == "" {
		return nil, ErrNoVideo
	}

	if outDir == "" {
		outDir = s.cfg.Export.OutputDir
	}

	return s.exporter.Export(ctx, pipeline.Request{
		Input:     path,
		OutputDir: outDir,
		FinalPath: finalPath,
		Ranges:    s.registry.Ranges(),
		Progress:  progress,
	})
}

// Go runs fn on the session's task runner so Close waits for it.
func (s *Session) Go(name string, fn func() error) *tasks.Task {
	return s.tasks.Go(name, fn)
}

func (s *Session) Slots() []clips.Slot { return s.registry.Slots() }
func (s *Session) Selected() string { return s.registry.Selected() }
func (s *Session) Editable() bool { return s.registry.Editable() }
func (s *Session) Info() playback.Info { return s.player.Info() }
func (s *Session) Speed() float64 { return s.player.Speed() }

// Handles returns the current pixel extent of both handles.
func (s *Session) Handles() (start, end timeline.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track.Start(), s.track.End()
}

// Track returns the track and handle widths in pixels.
func (s *Session) Track() (width, handleWidth int) {
	return s.cfg.Timeline.TrackWidth, s.cfg.Timeline.HandleWidth
}

// Close waits for pending tasks, then stops playback and releases the video.
func (s *Session) Close() error {
	s.tasks.Wait()
	err := s.player.Close()
	s.logger.Debug().Msg("session closed")
	return err
}

func (s *Session) showFrame(f video.Frame) {
	img, err := preview.Render(f, s.preview)
	if err != nil {
		s.logger.Debug().Err(err).Int("frame", f.Index).Msg("skipping frame")
		return
	}
	s.view.ShowFrame(img)
}

func (s *Session) refresh() {
	start, end := s.Handles()
	s.view.ShowHandles(start, end)
	s.view.ShowSlots(s.registry.Slots(), s.registry.Selected())
}
