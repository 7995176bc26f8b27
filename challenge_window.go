package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/math-alarm/pkg/challenge"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/platform"
	"github.com/borgmon/math-alarm/pkg/ringing"
	"github.com/borgmon/math-alarm/pkg/store"
	"github.com/borgmon/math-alarm/pkg/ui/components"
)

const snoozeHold = 2 * time.Second

// ChallengeWindow is the full screen challenge shown while an alarm rings.
// Fields below ready are only touched on the fyne goroutine.
type ChallengeWindow struct {
	ctx      context.Context
	app      fyne.App
	machine  *ringing.Machine
	settings *store.SettingsStore
	log      *slog.Logger
	onChange func()

	ready atomic.Bool

	window         fyne.Window
	quitGuard      *platform.QuitGuard
	alarmID        string
	timeout        *time.Timer
	stopMonitoring chan struct{}
}

// NewChallengeWindow creates the presenter. Nothing is shown until MarkReady.
func NewChallengeWindow(ctx context.Context, app fyne.App, machine *ringing.Machine, settings *store.SettingsStore, log *slog.Logger) *ChallengeWindow {
	return &ChallengeWindow{
		ctx:      ctx,
		app:      app,
		machine:  machine,
		settings: settings,
		log:      log.With("component", "challenge_window"),
	}
}

// MarkReady is called once the fyne event loop runs
func (cw *ChallengeWindow) MarkReady() {
	cw.ready.Store(true)
}

// Foreground implements ringing.Presenter
func (cw *ChallengeWindow) Foreground() bool {
	return cw.ready.Load()
}

// Present implements ringing.Presenter
func (cw *ChallengeWindow) Present(session models.RingingSession, ch challenge.Descriptor) {
	timeout := time.Duration(cw.settings.Load(cw.ctx).ChallengeTimeout) * time.Second
	snooze := cw.settings.Load(cw.ctx).SnoozeMinutes
	fyne.Do(func() {
		cw.show(session, ch, timeout, snooze)
	})
}

func (cw *ChallengeWindow) show(session models.RingingSession, ch challenge.Descriptor, timeout time.Duration, snoozeMinutes int) {
	if cw.window == nil {
		w := cw.app.NewWindow("Alarm")
		w.SetFullScreen(true)
		w.SetCloseIntercept(func() {
			cw.giveUp("closed")
		})
		cw.window = w
		cw.quitGuard = platform.BlockQuit(cw.log)
		cw.stopMonitoring = make(chan struct{})
		go cw.monitor(cw.stopMonitoring)
	}

	cw.alarmID = session.AlarmID
	cw.window.SetContent(cw.buildUI(session, ch, snoozeMinutes))
	cw.resetTimeout(session.AlarmID, timeout)
	cw.window.Show()
	cw.window.RequestFocus()
	cw.log.Info("challenge presented",
		slog.String("alarm_id", session.AlarmID),
		slog.String("kind", string(ch.Kind)),
		slog.String("difficulty", string(ch.Difficulty)))
	cw.changed()
}

func (cw *ChallengeWindow) buildUI(session models.RingingSession, ch challenge.Descriptor, snoozeMinutes int) fyne.CanvasObject {
	clock := canvas.NewText(session.StartedAt.Format("15:04"), nil)
	clock.TextSize = 64
	clock.Alignment = fyne.TextAlignCenter

	question := widget.NewLabel(ch.Question)
	question.Wrapping = fyne.TextWrapWord
	question.Alignment = fyne.TextAlignCenter
	question.TextStyle = fyne.TextStyle{Bold: true}

	status := widget.NewLabel("")
	status.Alignment = fyne.TextAlignCenter

	answer := widget.NewEntry()
	answer.SetPlaceHolder(answerHint(ch.Kind))

	var stopButton *widget.Button
	submit := func() {
		text := answer.Text
		stopButton.Disable()
		go func() {
			ok, err := cw.machine.Answer(cw.ctx, text)
			fyne.Do(func() {
				stopButton.Enable()
				switch {
				case errors.Is(err, models.ErrNoSession):
					cw.closeWindow()
				case err != nil:
					cw.log.Error("answer", slog.String("alarm_id", session.AlarmID), logger.Err(err))
					status.SetText("Could not stop the alarm, try again")
				case ok:
					cw.closeWindow()
				default:
					status.SetText("Wrong answer, try again")
					answer.SetText("")
				}
			})
		}()
	}
	answer.OnSubmitted = func(string) { submit() }
	stopButton = widget.NewButton("Stop Alarm", submit)
	stopButton.Importance = widget.HighImportance

	content := container.NewVBox(
		container.NewPadded(clock),
		widget.NewSeparator(),
		container.NewPadded(question),
	)

	if ch.Kind == models.ChallengeAlphabet && len(ch.Options) > 0 {
		letters := container.NewHBox()
		for _, opt := range ch.Options {
			letters.Add(widget.NewButton(opt, func() {
				answer.SetText(answer.Text + opt)
			}))
		}
		letters.Add(widget.NewButton("Clear", func() { answer.SetText("") }))
		content.Add(container.NewCenter(letters))
	}

	content.Add(answer)
	content.Add(container.NewCenter(stopButton))
	content.Add(status)

	if session.Payload.SnoozeEnabled {
		var snooze *components.HoldButton
		snooze = components.NewHoldButton(fmt.Sprintf("Snooze %dm (Hold)", snoozeMinutes), snoozeHold, func() {
			snooze.Disable()
			go cw.snooze(snooze, status)
		})
		content.Add(widget.NewSeparator())
		content.Add(container.NewCenter(snooze))
	}

	return container.NewPadded(container.NewCenter(content))
}

func (cw *ChallengeWindow) snooze(button *components.HoldButton, status *widget.Label) {
	at, err := cw.machine.Snooze(cw.ctx, 0)
	fyne.Do(func() {
		if err != nil {
			cw.log.Error("snooze", logger.Err(err))
			status.SetText("Could not snooze: " + err.Error())
			button.Enable()
			return
		}
		cw.closeWindow()
		cw.app.SendNotification(fyne.NewNotification("Alarm snoozed", "Ringing again at "+at.Format("15:04")))
	})
}

func answerHint(kind models.ChallengeKind) string {
	switch kind {
	case models.ChallengeAlphabet:
		return "Type or tap the letters in order"
	case models.ChallengeQRCode:
		return "Scan the code and paste its text"
	default:
		return "Your answer"
	}
}

func (cw *ChallengeWindow) resetTimeout(alarmID string, timeout time.Duration) {
	if cw.timeout != nil {
		cw.timeout.Stop()
	}
	cw.timeout = time.AfterFunc(timeout, func() {
		fyne.Do(func() {
			if cw.alarmID == alarmID {
				cw.giveUp("timeout")
			}
		})
	})
}

// giveUp hides the challenge while the alarm keeps ringing
func (cw *ChallengeWindow) giveUp(reason string) {
	id := cw.alarmID
	cw.closeWindow()
	cw.log.Info("challenge abandoned", slog.String("alarm_id", id), slog.String("reason", reason))
	go func() {
		cw.machine.ChallengeTimedOut(id)
		cw.app.SendNotification(fyne.NewNotification("Alarm still ringing", "Choose Solve Challenge in the tray menu to stop it"))
	}()
}

func (cw *ChallengeWindow) closeWindow() {
	if cw.window == nil {
		return
	}
	if cw.timeout != nil {
		cw.timeout.Stop()
		cw.timeout = nil
	}
	close(cw.stopMonitoring)
	cw.stopMonitoring = nil
	cw.quitGuard.Release()
	cw.quitGuard = nil
	cw.window.Close()
	cw.window = nil
	cw.alarmID = ""
	cw.changed()
}

func (cw *ChallengeWindow) changed() {
	if cw.onChange != nil {
		cw.onChange()
	}
}

// monitor keeps the window in front and closes it once the session is gone,
// e.g. after the alarm was deleted while ringing
func (cw *ChallengeWindow) monitor(stop chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			session, ok := cw.machine.Current()
			active := platform.IsAppActive()
			fyne.Do(func() {
				if cw.stopMonitoring != stop {
					return
				}
				if !ok || session.AlarmID != cw.alarmID {
					cw.closeWindow()
					return
				}
				if !active {
					platform.ActivateApp()
					cw.window.Show()
				}
			})
		}
	}
}
