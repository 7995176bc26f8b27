package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/math-alarm/pkg/audio"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
)

// showAlarmDialog edits existing, or creates a new alarm when existing is nil
func (aw *AlarmsWindow) showAlarmDialog(existing *models.Alarm) {
	fields := models.AlarmFields{
		TimeOfDay:     7 * 60,
		ChallengeKind: models.ChallengeMath,
		Difficulty:    models.DifficultyMedium,
		SnoozeEnabled: true,
	}
	title, confirm := "Add Alarm", "Create"
	if existing != nil {
		fields = existing.Fields()
		title, confirm = "Edit Alarm", "Save"
	}

	hourSelect := widget.NewSelect(numberOptions(0, 23, 2), nil)
	hourSelect.SetSelected(fmt.Sprintf("%02d", fields.TimeOfDay/60))
	minSelect := widget.NewSelect(numberOptions(0, 59, 2), nil)
	minSelect.SetSelected(fmt.Sprintf("%02d", fields.TimeOfDay%60))

	days := widget.NewCheckGroup(dayOptions(), nil)
	days.Horizontal = true
	days.SetSelected(selectedDays(fields.Days))

	kind := widget.NewSelect(kindOptions(), nil)
	kind.SetSelected(string(fields.ChallengeKind))
	difficulty := widget.NewSelect(difficultyOptions(), nil)
	difficulty.SetSelected(string(fields.Difficulty))

	vibrate := widget.NewCheck("", nil)
	vibrate.SetChecked(fields.Vibrate)
	snooze := widget.NewCheck("", nil)
	snooze.SetChecked(fields.SnoozeEnabled)

	items := []*widget.FormItem{
		widget.NewFormItem("Time", container.NewHBox(hourSelect, widget.NewLabel(":"), minSelect)),
		widget.NewFormItem("Repeat", days),
		widget.NewFormItem("Challenge", kind),
		widget.NewFormItem("Difficulty", difficulty),
		widget.NewFormItem("Vibrate", vibrate),
		widget.NewFormItem("Allow snooze", snooze),
	}
	items[1].HintText = "Leave empty to ring once"

	dialog.ShowForm(title, confirm, "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		timeOfDay, err := parseTimeOfDay(hourSelect.Selected, minSelect.Selected)
		if err != nil {
			dialog.ShowError(err, aw.window)
			return
		}
		weekdays, err := models.ParseDays(days.Selected)
		if err != nil {
			dialog.ShowError(err, aw.window)
			return
		}
		submitted := models.AlarmFields{
			TimeOfDay:     timeOfDay,
			Days:          weekdays,
			ChallengeKind: models.ChallengeKind(kind.Selected),
			Difficulty:    models.Difficulty(difficulty.Selected),
			Vibrate:       vibrate.Checked,
			SnoozeEnabled: snooze.Checked,
		}

		go func() {
			var err error
			if existing == nil {
				_, err = aw.ma.engine.alarms.Create(aw.ma.ctx, submitted)
			} else {
				_, err = aw.ma.engine.alarms.Update(aw.ma.ctx, existing.ID, submitted)
			}
			fyne.Do(func() { aw.ma.afterChange(err, aw.window) })
		}()
	}, aw.window)
}

// settingsForm edits the user settings and applies them to the ringing
// machine and the login item on save
func (ma *MathAlarm) settingsForm(w fyne.Window) fyne.CanvasObject {
	current := ma.engine.settings.Load(ma.ctx)

	volume := widget.NewSlider(models.MinVolume, models.MaxVolume)
	volume.Step = 5
	volume.SetValue(float64(current.AlarmVolume))
	volumeLabel := widget.NewLabel(strconv.Itoa(current.AlarmVolume) + "%")
	volume.OnChanged = func(v float64) {
		volumeLabel.SetText(strconv.Itoa(int(v)) + "%")
	}

	snooze := widget.NewSelect(numberOptions(models.MinSnoozeMinutes, models.MaxSnoozeMinutes, 1), nil)
	snooze.SetSelected(strconv.Itoa(current.SnoozeMinutes))

	timeout := widget.NewSlider(models.MinChallengeTimeoutSeconds, models.MaxChallengeTimeoutSeconds)
	timeout.Step = 15
	timeout.SetValue(float64(current.ChallengeTimeout))
	timeoutLabel := widget.NewLabel(strconv.Itoa(current.ChallengeTimeout) + "s")
	timeout.OnChanged = func(v float64) {
		timeoutLabel.SetText(strconv.Itoa(int(v)) + "s")
	}

	sound := widget.NewSelect(audio.SoundNames(), nil)
	sound.SetSelected(audio.ResolveSound(current.SoundID).Name)

	autoStart := widget.NewCheck("Start at login", nil)
	autoStart.SetChecked(current.AutoStart)

	form := widget.NewForm(
		widget.NewFormItem("Volume", container.NewBorder(nil, nil, nil, volumeLabel, volume)),
		widget.NewFormItem("Snooze (minutes)", snooze),
		widget.NewFormItem("Challenge timeout", container.NewBorder(nil, nil, nil, timeoutLabel, timeout)),
		widget.NewFormItem("Ringtone", sound),
		widget.NewFormItem("", autoStart),
	)
	form.SubmitText = "Save"
	form.OnCancel = w.Close
	form.OnSubmit = func() {
		snoozeMinutes, _ := strconv.Atoi(snooze.Selected)
		s := models.Settings{
			AlarmVolume:      int(volume.Value),
			SnoozeMinutes:    snoozeMinutes,
			ChallengeTimeout: int(timeout.Value),
			SoundID:          current.SoundID,
			AutoStart:        autoStart.Checked,
		}
		if picked, ok := audio.SoundByName(sound.Selected); ok {
			s.SoundID = picked.ID
		}
		go ma.saveSettings(s, w)
	}
	return form
}

func (ma *MathAlarm) saveSettings(s models.Settings, w fyne.Window) {
	if err := ma.engine.settings.Save(ma.ctx, s); err != nil {
		fyne.Do(func() { dialog.ShowError(err, w) })
		return
	}
	if err := ma.engine.machine.ApplySettings(s); err != nil {
		ma.log.Warn("apply volume", logger.Err(err))
	}

	cfg := ma.engine.cfg.App
	if err := setupAutostart(cfg.ID, cfg.Name, s.AutoStart, ma.log); err != nil {
		fyne.Do(func() { dialog.ShowError(fmt.Errorf("autostart: %w", err), w) })
		return
	}
	fyne.Do(w.Close)
}
