package main

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/schedule"
)

type upcomingAlarm struct {
	alarm models.Alarm
	next  time.Time
}

func (ma *MathAlarm) setupSystemTray() {
	ma.updateSystemTrayMenu()
}

func (ma *MathAlarm) updateSystemTrayMenu() {
	desk, ok := ma.app.(desktop.App)
	if !ok {
		return
	}
	menuItems := []*fyne.MenuItem{}

	session, ringing := ma.engine.machine.Current()
	if ringing {
		header := fyne.NewMenuItem("Ringing since "+session.StartedAt.Format("15:04"), nil)
		header.Disabled = true
		menuItems = append(menuItems,
			header,
			fyne.NewMenuItem("Solve Challenge...", ma.solve),
			fyne.NewMenuItemSeparator(),
		)
	}

	if upcoming := ma.upcomingAlarms(5); len(upcoming) > 0 {
		header := fyne.NewMenuItem("Next Alarms:", nil)
		header.Disabled = true
		menuItems = append(menuItems, header)

		for _, u := range upcoming {
			item := fyne.NewMenuItem(fmt.Sprintf("  %s  %s (%s)",
				u.next.Format("Mon 15:04"),
				truncateString(u.alarm.DaysLabel(), 24),
				u.alarm.ChallengeKind), nil)
			item.Disabled = true
			menuItems = append(menuItems, item)
		}
		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	}

	if delivered := ma.deliveredMenu(); delivered != nil {
		menuItems = append(menuItems, delivered, fyne.NewMenuItemSeparator())
	}

	menuItems = append(menuItems,
		fyne.NewMenuItem("Alarms...", ma.showAlarmsWindow),
		fyne.NewMenuItem("Add Alarm...", func() {
			ma.showAlarmsWindow()
			ma.alarmsWindow.showAlarmDialog(nil)
		}),
		fyne.NewMenuItem("Settings...", ma.showSettingsWindow),
		fyne.NewMenuItemSeparator(),
	)
	menuItems = append(menuItems, quitItem(ringing, ma.quit))

	menu := fyne.NewMenu("Math Alarm", menuItems...)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(theme.HistoryIcon())
}

// quitItem is the last tray entry. fyne appends its own Quit unless the last
// item is marked as one. Quitting while ringing would silence the alarm
// without solving it, so the item is disabled then.
func quitItem(ringing bool, quit func()) *fyne.MenuItem {
	item := fyne.NewMenuItem("Quit", quit)
	item.IsQuit = true
	item.Disabled = ringing
	return item
}

// upcomingAlarms returns the next limit active alarms by fire time
func (ma *MathAlarm) upcomingAlarms(limit int) []upcomingAlarm {
	now := time.Now()
	var out []upcomingAlarm
	for _, a := range ma.engine.alarms.List() {
		if !a.Active {
			continue
		}
		out = append(out, upcomingAlarm{alarm: a, next: schedule.NextFire(a, now)})
	}
	slices.SortFunc(out, func(a, b upcomingAlarm) int { return cmp.Compare(a.next.Unix(), b.next.Unix()) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// deliveredMenu lists notifications that fired but were never answered.
// Choosing one delivers it again, like tapping it on a phone.
func (ma *MathAlarm) deliveredMenu() *fyne.MenuItem {
	presented, err := ma.engine.backend.ListPresented(ma.ctx)
	if err != nil {
		ma.log.Warn("list delivered notifications", logger.Err(err))
		return nil
	}
	if len(presented) == 0 {
		return nil
	}

	items := make([]*fyne.MenuItem, 0, len(presented))
	for _, p := range presented {
		label := p.At.Format("15:04") + " " + string(p.Payload.ChallengeKind)
		if p.Payload.Snooze {
			label += " (snoozed)"
		}
		items = append(items, fyne.NewMenuItem(label, func() {
			go func() {
				if err := ma.engine.backend.Tap(ma.ctx, p.Handle); err != nil {
					ma.log.Warn("redeliver notification", logger.Err(err))
				}
				fyne.Do(ma.updateSystemTrayMenu)
			}()
		}))
	}
	item := fyne.NewMenuItem("Delivered", nil)
	item.ChildMenu = fyne.NewMenu("", items...)
	return item
}
