package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/clipcutter/internal/clips"
)

type slotCard struct {
	name   string
	button *widget.Button
	start  *widget.Label
	end    *widget.Label
}

// slotList shows one tappable card per clip slot.
type slotList struct {
	cards   []*slotCard
	content *fyne.Container
}

func newSlotList(slots []clips.Slot, onSelect func(name string)) *slotList {
	l := &slotList{content: container.NewGridWithColumns(len(slots))}

	for _, s := range slots {
		name := s.Name
		c := &slotCard{
			name:   name,
			button: widget.NewButton(s.Label, func() { onSelect(name) }),
			start:  widget.NewLabel(s.StartLabel()),
			end:    widget.NewLabel(s.EndLabel()),
		}
		l.cards = append(l.cards, c)
		l.content.Add(container.NewVBox(c.button, c.start, c.end))
	}
	return l
}

// update refreshes the labels and highlights the selected slot.
func (l *slotList) update(slots []clips.Slot, selected string) {
	for _, s := range slots {
		c := l.card(s.Name)
		if c == nil {
			continue
		}
		c.start.SetText(s.StartLabel())
		c.end.SetText(s.EndLabel())

		importance := widget.MediumImportance
		if s.Name == selected {
			importance = widget.HighImportance
		}
		if c.button.Importance != importance {
			c.button.Importance = importance
			c.button.Refresh()
		}
	}
}

func (l *slotList) card(name string) *slotCard {
	for _, c := range l.cards {
		if c.name == name {
			return c
		}
	}
	return nil
}
