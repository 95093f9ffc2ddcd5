package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/clipcutter/internal/timeline"
)

const timelineHeight = 40

type handleKind int

const (
	noHandle handleKind = iota
	startHandle
	endHandle
)

// pickHandle chooses the handle whose center is nearest to x. Ties go to
// the start handle.
func pickHandle(x int, start, end timeline.Handle) handleKind {
	ds := abs(x - (start.Left+start.Right)/2)
	de := abs(x - (end.Left+end.Right)/2)
	if ds <= de {
		return startHandle
	}
	return endHandle
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// timelineWidget draws the track with its two handles and turns drags into
// pixel positions. The nearest handle is picked when a drag begins.
type timelineWidget struct {
	widget.BaseWidget

	width       int
	handleWidth int
	start, end  timeline.Handle
	locked      bool
	active      handleKind

	onDrag    func(kind handleKind, x int)
	onRelease func(kind handleKind)
}

func newTimeline(width, handleWidth int, onDrag func(handleKind, int), onRelease func(handleKind)) *timelineWidget {
	t := &timelineWidget{
		width:       width,
		handleWidth: handleWidth,
		start:       timeline.Handle{Left: 0, Right: handleWidth},
		end:         timeline.Handle{Left: width - handleWidth, Right: width},
		locked:      true,
		onDrag:      onDrag,
		onRelease:   onRelease,
	}
	t.ExtendBaseWidget(t)
	return t
}

func (t *timelineWidget) SetHandles(start, end timeline.Handle) {
	t.start, t.end = start, end
	t.Refresh()
}

func (t *timelineWidget) SetLocked(locked bool) {
	if t.locked == locked {
		return
	}
	t.locked = locked
	t.Refresh()
}

func (t *timelineWidget) Dragged(ev *fyne.DragEvent) {
	x := int(ev.Position.X)
	if t.active == noHandle {
		t.active = pickHandle(x, t.start, t.end)
	}
	if t.onDrag != nil {
		t.onDrag(t.active, x)
	}
}

func (t *timelineWidget) DragEnd() {
	kind := t.active
	t.active = noHandle
	if kind != noHandle && t.onRelease != nil {
		t.onRelease(kind)
	}
}

func (t *timelineWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &timelineRenderer{
		t:         t,
		track:     canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground)),
		selection: canvas.NewRectangle(theme.Color(theme.ColorNameSelection)),
		start:     canvas.NewRectangle(color.Transparent),
		end:       canvas.NewRectangle(color.Transparent),
	}
	r.objects = []fyne.CanvasObject{r.track, r.selection, r.start, r.end}
	r.applyColors()
	return r
}

type timelineRenderer struct {
	t                            *timelineWidget
	track, selection, start, end *canvas.Rectangle
	objects                      []fyne.CanvasObject
}

func (r *timelineRenderer) Layout(size fyne.Size) {
	h := size.Height
	third := h / 3
	s, e := r.t.start, r.t.end

	r.track.Move(fyne.NewPos(0, third))
	r.track.Resize(fyne.NewSize(float32(r.t.width), third))

	r.selection.Move(fyne.NewPos(float32(s.Right), third))
	r.selection.Resize(fyne.NewSize(float32(max(0, e.Left-s.Right)), third))

	r.start.Move(fyne.NewPos(float32(s.Left), 0))
	r.start.Resize(fyne.NewSize(float32(s.Right-s.Left), h))

	r.end.Move(fyne.NewPos(float32(e.Left), 0))
	r.end.Resize(fyne.NewSize(float32(e.Right-e.Left), h))
}

func (r *timelineRenderer) MinSize() fyne.Size {
	return fyne.NewSize(float32(r.t.width), timelineHeight)
}

func (r *timelineRenderer) Refresh() {
	r.applyColors()
	r.Layout(r.t.Size())
	canvas.Refresh(r.t)
}

func (r *timelineRenderer) applyColors() {
	handle := theme.Color(theme.ColorNamePrimary)
	if r.t.locked {
		handle = theme.Color(theme.ColorNameDisabled)
	}
	r.start.FillColor = handle
	r.end.FillColor = handle
}

func (r *timelineRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *timelineRenderer) Destroy() {}
