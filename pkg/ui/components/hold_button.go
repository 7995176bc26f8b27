package components

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const holdTick = 50 * time.Millisecond

// HoldButton fires OnHeld once it has been pressed for Hold without being
// released. Releasing early or leaving the button resets the progress.
type HoldButton struct {
	widget.BaseWidget
	Text   string
	Hold   time.Duration
	OnHeld func()

	mu       sync.Mutex
	hovered  bool
	disabled bool
	progress float64
	stop     chan struct{} // non-nil while held
}

// NewHoldButton creates a new HoldButton
func NewHoldButton(text string, hold time.Duration, onHeld func()) *HoldButton {
	b := &HoldButton{
		Text:   text,
		Hold:   hold,
		OnHeld: onHeld,
	}
	b.ExtendBaseWidget(b)
	return b
}

// CreateRenderer implements fyne.Widget
func (b *HoldButton) CreateRenderer() fyne.WidgetRenderer {
	text := canvas.NewText(b.Text, theme.Color(theme.ColorNameForeground))
	text.Alignment = fyne.TextAlignCenter

	bg := canvas.NewRectangle(theme.Color(theme.ColorNameButton))
	progressBar := canvas.NewRectangle(theme.Color(theme.ColorNamePrimary))

	return &holdButtonRenderer{
		button:      b,
		text:        text,
		bg:          bg,
		progressBar: progressBar,
	}
}

// Disable stops the button from reacting to presses
func (b *HoldButton) Disable() {
	b.mu.Lock()
	b.release()
	b.disabled = true
	b.mu.Unlock()
	b.Refresh()
}

// Enable undoes Disable
func (b *HoldButton) Enable() {
	b.mu.Lock()
	b.disabled = false
	b.mu.Unlock()
	b.Refresh()
}

// Tapped implements fyne.Tappable
func (b *HoldButton) Tapped(*fyne.PointEvent) {}

// MouseIn implements desktop.Hoverable
func (b *HoldButton) MouseIn(*desktop.MouseEvent) {
	b.mu.Lock()
	b.hovered = true
	b.mu.Unlock()
	b.Refresh()
}

// MouseMoved implements desktop.Hoverable
func (b *HoldButton) MouseMoved(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable
func (b *HoldButton) MouseOut() {
	b.mu.Lock()
	b.hovered = false
	b.release()
	b.mu.Unlock()
	b.Refresh()
}

// MouseDown implements desktop.Mouseable
func (b *HoldButton) MouseDown(*desktop.MouseEvent) {
	b.mu.Lock()
	if b.disabled || b.stop != nil {
		b.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	b.stop = stop
	b.progress = 0
	b.mu.Unlock()

	b.Refresh()
	go b.track(stop, time.Now())
}

// MouseUp implements desktop.Mouseable
func (b *HoldButton) MouseUp(*desktop.MouseEvent) {
	b.mu.Lock()
	b.release()
	b.mu.Unlock()
	b.Refresh()
}

// track advances the progress until the hold completes or stop is closed
func (b *HoldButton) track(stop chan struct{}, start time.Time) {
	hold := b.Hold
	if hold <= 0 {
		hold = time.Second
	}
	ticker := time.NewTicker(holdTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			p := float64(now.Sub(start)) / float64(hold)
			done := p >= 1
			fyne.Do(func() {
				b.mu.Lock()
				if b.stop != stop {
					b.mu.Unlock()
					return
				}
				b.progress = min(p, 1)
				if done {
					b.release()
				}
				b.mu.Unlock()

				b.Refresh()
				if done && b.OnHeld != nil {
					b.OnHeld()
				}
			})
			if done {
				return
			}
		}
	}
}

// release ends a hold. b.mu must be held.
func (b *HoldButton) release() {
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	b.progress = 0
}

type holdButtonRenderer struct {
	button      *HoldButton
	text        *canvas.Text
	bg          *canvas.Rectangle
	progressBar *canvas.Rectangle
}

func (r *holdButtonRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.text.Resize(size)
	r.layoutProgress(size)
}

func (r *holdButtonRenderer) layoutProgress(size fyne.Size) {
	r.button.mu.Lock()
	progress := r.button.progress
	r.button.mu.Unlock()
	r.progressBar.Resize(fyne.NewSize(size.Width*float32(progress), size.Height))
	r.progressBar.Move(fyne.NewPos(0, 0))
}

func (r *holdButtonRenderer) MinSize() fyne.Size {
	textSize := r.text.MinSize()
	return fyne.NewSize(
		max(textSize.Width+theme.Padding()*4, 240),
		max(textSize.Height+theme.Padding()*2, 64),
	)
}

func (r *holdButtonRenderer) Refresh() {
	r.button.mu.Lock()
	disabled, hovered := r.button.disabled, r.button.hovered
	r.button.mu.Unlock()

	r.text.Text = r.button.Text
	switch {
	case disabled:
		r.text.Color = theme.Color(theme.ColorNameDisabled)
		r.bg.FillColor = theme.Color(theme.ColorNameDisabledButton)
	case hovered:
		r.text.Color = theme.Color(theme.ColorNameForeground)
		r.bg.FillColor = theme.Color(theme.ColorNameHover)
	default:
		r.text.Color = theme.Color(theme.ColorNameForeground)
		r.bg.FillColor = theme.Color(theme.ColorNameButton)
	}
	r.layoutProgress(r.bg.Size())

	r.bg.Refresh()
	r.progressBar.Refresh()
	r.text.Refresh()
}

func (r *holdButtonRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.progressBar, r.text}
}

func (r *holdButtonRenderer) Destroy() {}

func (r *holdButtonRenderer) BackgroundColor() color.Color {
	return theme.Color(theme.ColorNameButton)
}
