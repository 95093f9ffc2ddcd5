package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipcutter/internal/clips"
	"github.com/kikiluvv/clipcutter/internal/config"
	"github.com/kikiluvv/clipcutter/internal/logging"
	"github.com/kikiluvv/clipcutter/internal/pipeline"
	"github.com/kikiluvv/clipcutter/internal/playback"
	"github.com/kikiluvv/clipcutter/internal/session"
	"github.com/kikiluvv/clipcutter/internal/timeline"
	"github.com/kikiluvv/clipcutter/internal/video"
	"github.com/kikiluvv/clipcutter/pkg/util"
)

const appID = "io.github.kikiluvv.clipcutter"

// Options wires the editor to its collaborators.
type Options struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Decoder  video.Decoder
	Exporter session.Exporter
	// Initial is loaded right after the window opens, if set.
	Initial string
}

// editor is the main window. It implements session.View; every View call
// is handed to the fyne event loop with fyne.Do.
type editor struct {
	win     fyne.Window
	cfg     *config.Config
	logger  zerolog.Logger
	session *session.Session

	title      *widget.Label
	status     *widget.Label
	preview    *canvas.Image
	timeline   *timelineWidget
	slots      *slotList
	speed      *widget.Slider
	speedLabel *widget.Label
	progress   *widget.ProgressBar
	exportBtn  *widget.Button
}

// Run opens the editor window and blocks until it is closed.
func Run(opts Options) error {
	a := app.NewWithID(appID)
	w := a.NewWindow("clipcutter")
	w.Resize(fyne.NewSize(opts.Config.UI.WindowWidth, opts.Config.UI.WindowHeight))

	e := newEditor(w, opts)
	w.SetContent(e.layout())

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) == 0 {
			return
		}
		e.load(uris[0].Path())
	})
	w.SetOnClosed(func() {
		if err := e.session.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("session close")
		}
	})

	if opts.Initial != "" {
		e.load(opts.Initial)
	}

	e.logger.Info().Str("session", e.session.ID).Msg("editor ready")
	w.ShowAndRun()
	return nil
}

func newEditor(w fyne.Window, opts Options) *editor {
	e := &editor{
		win:    w,
		cfg:    opts.Config,
		logger: logging.Component(opts.Logger, "gui"),
	}
	e.session = session.New(opts.Logger, opts.Config, opts.Decoder, opts.Exporter, e)

	e.title = widget.NewLabel("No video loaded")
	e.title.TextStyle = fyne.TextStyle{Bold: true}
	e.status = widget.NewLabel("Drop a video here or use Load Video")

	e.preview = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	e.preview.FillMode = canvas.ImageFillContain
	e.preview.SetMinSize(fyne.NewSize(float32(e.cfg.Preview.Width), float32(e.cfg.Preview.Height)))

	width, handleWidth := e.session.Track()
	e.timeline = newTimeline(width, handleWidth, e.onDrag, e.onRelease)
	e.slots = newSlotList(e.session.Slots(), e.onSelect)

	e.speedLabel = widget.NewLabel("")
	e.speed = widget.NewSlider(playback.MinSpeed, playback.MaxSpeed)
	e.speed.Step = 0.1
	e.speed.SetValue(e.session.Speed())
	e.setSpeedLabel(e.session.Speed())
	e.speed.OnChanged = func(v float64) {
		e.setSpeedLabel(e.session.SetSpeed(v))
	}

	e.progress = widget.NewProgressBar()
	e.progress.Hide()
	e.exportBtn = widget.NewButton("Export Clips", e.export)

	return e
}

func (e *editor) layout() fyne.CanvasObject {
	loadBtn := widget.NewButton("Load Video", e.openDialog)
	speedRow := container.NewBorder(nil, nil, e.speedLabel, nil, e.speed)

	return container.NewVBox(
		e.title,
		e.preview,
		container.NewCenter(e.timeline),
		e.slots.content,
		speedRow,
		container.NewHBox(loadBtn, e.exportBtn),
		e.progress,
		e.status,
	)
}

func (e *editor) openDialog() {
	fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.win)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		e.load(path)
	}, e.win)
	fd.SetFilter(storage.NewExtensionFileFilter(e.cfg.UI.Extensions))
	fd.Show()
}

func (e *editor) load(path string) {
	if _, err := e.session.Load(path); err != nil {
		dialog.ShowError(err, e.win)
		return
	}
	e.status.SetText("Loading " + filepath.Base(util.CleanDropPath(path)) + "...")
}

func (e *editor) onSelect(name string) {
	if err := e.session.SelectSlot(name); err != nil {
		e.status.SetText(err.Error())
	}
}

func (e *editor) onDrag(kind handleKind, x int) {
	var err error
	switch kind {
	case startHandle:
		_, err = e.session.DragStart(x)
	case endHandle:
		_, err = e.session.DragEnd(x)
	}

	switch {
	case errors.Is(err, clips.ErrLocked):
		e.status.SetText("Select a clip before moving the handles")
	case errors.Is(err, timeline.ErrRangeViolation):
		e.status.SetText("Handle position out of range")
	}
}

func (e *editor) onRelease(kind handleKind) {
	var err error
	switch kind {
	case startHandle:
		_, err = e.session.ReleaseStart()
	case endHandle:
		_, err = e.session.ReleaseEnd()
	}
	if err != nil && !errors.Is(err, clips.ErrLocked) {
		e.status.SetText(err.Error())
	}
}

func (e *editor) export() {
	e.exportBtn.Disable()
	e.progress.SetValue(0)
	e.progress.Show()
	e.status.SetText("Exporting...")

	e.session.Go("export", func() error {
		res, err := e.session.Export(context.Background(), "", "", func(s pipeline.Step) {
			fyne.Do(func() { e.progress.SetValue(float64(s.Done) / float64(s.Total)) })
		})

		fyne.Do(func() {
			e.exportBtn.Enable()
			e.progress.Hide()
			if err != nil {
				e.status.SetText("Export failed")
				dialog.ShowError(err, e.win)
				return
			}
			e.status.SetText(fmt.Sprintf("Exported %d clips in %s", len(res.Clips), res.Elapsed.Round(time.Millisecond)))
			dialog.ShowInformation("Export complete", "Wrote "+res.Final, e.win)
		})
		return err
	})
}

func (e *editor) setSpeedLabel(v float64) {
	e.speedLabel.SetText(fmt.Sprintf("Speed: %.1fx", v))
}

func (e *editor) ShowFrame(img image.Image) {
	fyne.Do(func() {
		e.preview.Image = img
		e.preview.Refresh()
	})
}

func (e *editor) ShowVideo(info playback.Info) {
	fyne.Do(func() {
		e.title.SetText(fmt.Sprintf("%s  (%s @ %.2f fps)",
			filepath.Base(info.Path), util.FormatClock(info.Duration), info.FPS))
		e.status.SetText("Select a clip to edit its range")
	})
}

func (e *editor) ShowSlots(slots []clips.Slot, selected string) {
	fyne.Do(func() {
		e.slots.update(slots, selected)
		e.timeline.SetLocked(selected == "")
	})
}

func (e *editor) ShowHandles(start, end timeline.Handle) {
	fyne.Do(func() { e.timeline.SetHandles(start, end) })
}

func (e *editor) ShowError(err error) {
	fyne.Do(func() {
		e.status.SetText(err.Error())
		dialog.ShowError(err, e.win)
	})
}
