package notify

import "fyne.io/fyne/v2"

// DesktopNotifier sends notifications through the fyne app
type DesktopNotifier struct {
	app fyne.App
}

// NewDesktopNotifier -.
func NewDesktopNotifier(app fyne.App) *DesktopNotifier {
	return &DesktopNotifier{app: app}
}

// Notify implements Notifier
func (n *DesktopNotifier) Notify(title, body string) {
	n.app.SendNotification(fyne.NewNotification(title, body))
}
