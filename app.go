package main

import (
	"context"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"golang.org/x/sync/errgroup"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/platform"
)

// MathAlarm is the tray app around the engine
type MathAlarm struct {
	ctx    context.Context
	app    fyne.App
	engine *engine
	log    *slog.Logger

	challenge      *ChallengeWindow
	alarmsWindow   *AlarmsWindow
	settingsWindow fyne.Window
	trayTicker     *time.Ticker
	group          *errgroup.Group
}

func newMathAlarm(fa fyne.App, e *engine, log *slog.Logger) *MathAlarm {
	return &MathAlarm{
		app:    fa,
		engine: e,
		log:    log.With("component", "app"),
	}
}

func (ma *MathAlarm) initialize(ctx context.Context) {
	ma.ctx = ctx

	ma.challenge = NewChallengeWindow(ctx, ma.app, ma.engine.machine, ma.engine.settings, ma.log)
	ma.challenge.onChange = ma.updateSystemTrayMenu
	ma.engine.machine.SetPresenter(ma.challenge)

	// Sync autostart state with settings on startup
	settings := ma.engine.settings.Load(ctx)
	if err := setupAutostart(ma.engine.cfg.App.ID, ma.engine.cfg.App.Name, settings.AutoStart, ma.log); err != nil {
		ma.log.Warn("setup autostart", logger.Err(err))
	}

	ma.app.Lifecycle().SetOnStarted(func() {
		platform.HideDockIcon()
		ma.setupSystemTray()
		ma.challenge.MarkReady()
		ma.group = ma.engine.start(ctx)
		ma.startTrayRefresh()

		if len(ma.engine.alarms.List()) == 0 {
			ma.showAlarmsWindow()
		}
	})
}

// startTrayRefresh keeps the "next alarms" section current
func (ma *MathAlarm) startTrayRefresh() {
	ma.trayTicker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-ma.ctx.Done():
				return
			case <-ma.trayTicker.C:
				fyne.Do(ma.updateSystemTrayMenu)
			}
		}
	}()
}

// refresh redraws everything that shows alarms. fyne goroutine only.
func (ma *MathAlarm) refresh() {
	ma.updateSystemTrayMenu()
	if ma.alarmsWindow != nil {
		ma.alarmsWindow.refresh()
	}
}

// solve shows the challenge of the ringing alarm again
func (ma *MathAlarm) solve() {
	go func() {
		if err := ma.engine.machine.Present(ma.ctx); err != nil {
			ma.log.Warn("present challenge", logger.Err(err))
			fyne.Do(ma.updateSystemTrayMenu)
		}
	}()
}

func (ma *MathAlarm) wait() error {
	if ma.group == nil {
		return nil
	}
	return ma.group.Wait()
}

// quit exits the app unless an alarm is ringing, in which case the challenge
// is shown instead
func (ma *MathAlarm) quit() {
	if _, ok := ma.engine.machine.Current(); ok {
		ma.log.Info("quit refused while ringing")
		ma.solve()
		return
	}
	if ma.trayTicker != nil {
		ma.trayTicker.Stop()
	}
	ma.app.Quit()
}
