package main

import (
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/schedule"
	"github.com/borgmon/math-alarm/pkg/ui/components"
)

// AlarmsWindow lists the alarms with add, edit, toggle and delete actions
type AlarmsWindow struct {
	ma     *MathAlarm
	window fyne.Window
	list   *components.ListManager
	alarms []models.Alarm
}

func (ma *MathAlarm) showAlarmsWindow() {
	// If the window already exists, just bring it to front
	if ma.alarmsWindow != nil {
		ma.alarmsWindow.window.Show()
		ma.alarmsWindow.window.RequestFocus()
		return
	}

	aw := &AlarmsWindow{ma: ma, window: ma.app.NewWindow("Alarms")}
	aw.alarms = ma.engine.alarms.List()

	var list *fyne.Container
	aw.list, list = components.NewListManager(components.ListManagerConfig{
		Len:        func() int { return len(aw.alarms) },
		RenderItem: aw.renderRow,
		MinHeight:  240,
		Actions: []components.ListAction{
			{Label: "Add", Icon: theme.ContentAddIcon(), OnTap: func(int) {
				aw.showAlarmDialog(nil)
			}},
			{Label: "Edit", Icon: theme.DocumentCreateIcon(), NeedsItem: true, OnTap: func(i int) {
				a := aw.alarms[i]
				aw.showAlarmDialog(&a)
			}},
			{Label: "On/Off", Icon: theme.MediaPlayIcon(), NeedsItem: true, OnTap: func(i int) {
				aw.toggle(aw.alarms[i].ID)
			}},
			{Label: "Delete", Icon: theme.DeleteIcon(), NeedsItem: true, OnTap: func(i int) {
				aw.confirmDelete(aw.alarms[i])
			}},
		},
	})

	aw.window.SetContent(container.NewPadded(list))
	aw.window.Resize(fyne.NewSize(560, 360))
	aw.window.SetOnClosed(func() {
		ma.alarmsWindow = nil
	})
	ma.alarmsWindow = aw
	aw.window.Show()
}

func (aw *AlarmsWindow) renderRow(i int) string {
	a := aw.alarms[i]
	row := describeAlarm(a)
	if a.Active {
		row += "  next " + schedule.NextFire(a, time.Now()).Format("Mon 15:04")
	}
	return row
}

func (aw *AlarmsWindow) refresh() {
	aw.alarms = aw.ma.engine.alarms.List()
	aw.list.Refresh()
}

func (aw *AlarmsWindow) toggle(id string) {
	go func() {
		_, err := aw.ma.engine.alarms.Toggle(aw.ma.ctx, id)
		fyne.Do(func() { aw.ma.afterChange(err, aw.window) })
	}()
}

func (aw *AlarmsWindow) confirmDelete(a models.Alarm) {
	msg := fmt.Sprintf("Delete the %s alarm?", models.FormatTimeOfDay(a.TimeOfDay))
	dialog.ShowConfirm("Delete Alarm", msg, func(ok bool) {
		if !ok {
			return
		}
		go func() {
			err := aw.ma.engine.alarms.Delete(aw.ma.ctx, a.ID)
			fyne.Do(func() { aw.ma.afterChange(err, aw.window) })
		}()
	}, aw.window)
}

// afterChange refreshes the views and tells the user when a change left an
// alarm that may not ring. fyne goroutine only.
func (ma *MathAlarm) afterChange(err error, parent fyne.Window) {
	ma.refresh()
	switch {
	case err == nil:
	case models.NeedsWarning(err):
		ma.log.Warn("alarm may not ring", logger.Err(err))
		dialog.ShowInformation("Alarm may not ring", warningText(err), parent)
	default:
		dialog.ShowError(err, parent)
	}
}

func warningText(err error) string {
	if errors.Is(err, models.ErrPermissionDenied) {
		return "Notifications are not allowed, so the alarm was saved but will not ring."
	}
	var se *models.SchedulingError
	if errors.As(err, &se) && se.Partial() {
		return "Some days of the alarm could not be scheduled. They will be retried in the background.\n\n" + err.Error()
	}
	return "The alarm was saved but could not be scheduled. It will be retried in the background.\n\n" + err.Error()
}

func (ma *MathAlarm) showSettingsWindow() {
	if ma.settingsWindow != nil {
		ma.settingsWindow.Show()
		ma.settingsWindow.RequestFocus()
		return
	}
	w := ma.app.NewWindow("Settings")
	w.SetContent(container.NewPadded(ma.settingsForm(w)))
	w.Resize(fyne.NewSize(420, 0))
	w.SetOnClosed(func() {
		ma.settingsWindow = nil
	})
	ma.settingsWindow = w
	w.Show()
}
