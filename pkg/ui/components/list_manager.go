package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ListAction is a button under the list. Needs selection disables it while
// nothing is selected.
type ListAction struct {
	Label     string
	Icon      fyne.Resource
	NeedsItem bool
	OnTap     func(selected int) // -1 without selection
}

// ListManagerConfig configures the list manager
type ListManagerConfig struct {
	Len        func() int
	RenderItem func(int) string
	Actions    []ListAction
	MinHeight  float32
}

// ListManager is a selectable list with a row of actions under it
type ListManager struct {
	list     *widget.List
	cfg      ListManagerConfig
	selected int
	buttons  []*widget.Button
}

// NewListManager creates a new list manager component
func NewListManager(cfg ListManagerConfig) (*ListManager, *fyne.Container) {
	lm := &ListManager{cfg: cfg, selected: -1}

	lm.list = widget.NewList(
		cfg.Len,
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < cfg.Len() {
				o.(*widget.Label).SetText(cfg.RenderItem(i))
			}
		})
	lm.list.OnSelected = func(id widget.ListItemID) {
		lm.selected = id
		lm.updateButtons()
	}
	lm.list.OnUnselected = func(widget.ListItemID) {
		lm.selected = -1
		lm.updateButtons()
	}

	controls := container.NewHBox()
	for _, a := range cfg.Actions {
		btn := widget.NewButtonWithIcon(a.Label, a.Icon, func() {
			if a.OnTap != nil {
				a.OnTap(lm.selected)
			}
		})
		if a.NeedsItem {
			btn.Disable()
		}
		lm.buttons = append(lm.buttons, btn)
		controls.Add(btn)
	}

	listScroll := container.NewScroll(lm.list)
	listScroll.SetMinSize(fyne.NewSize(0, max(cfg.MinHeight, 150)))

	listWithBorder := container.NewBorder(
		widget.NewSeparator(),
		widget.NewSeparator(),
		widget.NewSeparator(),
		widget.NewSeparator(),
		listScroll,
	)

	return lm, container.NewBorder(nil, controls, nil, nil, listWithBorder)
}

// Refresh redraws the rows and drops a selection that no longer exists
func (lm *ListManager) Refresh() {
	if lm.selected >= lm.cfg.Len() {
		lm.list.UnselectAll()
		lm.selected = -1
	}
	lm.list.Refresh()
	lm.updateButtons()
}

// Selected returns the selected row or -1
func (lm *ListManager) Selected() int {
	return lm.selected
}

func (lm *ListManager) updateButtons() {
	for i, a := range lm.cfg.Actions {
		if !a.NeedsItem {
			continue
		}
		if lm.selected >= 0 {
			lm.buttons[i].Enable()
		} else {
			lm.buttons[i].Disable()
		}
	}
}
