package ringing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/borgmon/math-alarm/pkg/challenge"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
)

// State of the machine
type State int

const (
	Idle State = iota
	Ringing
	Snoozed // idle with a snooze continuation registered
)

func (s State) String() string {
	switch s {
	case Ringing:
		return "ringing"
	case Snoozed:
		return "snoozed"
	default:
		return "idle"
	}
}

// Ringer plays the alarm sound
type Ringer interface {
	Start(volumePercent int) error
	Stop() error
	IsPlaying() bool
	UseSound(id string)
	SetVolume(percent int) error
}

// Gate tells whether a fired trigger still belongs to a live alarm
type Gate interface {
	Deliverable(p models.Payload) bool
}

// Presenter shows a challenge to the user
type Presenter interface {
	// Foreground reports whether the UI can show something right now
	Foreground() bool
	Present(session models.RingingSession, ch challenge.Descriptor)
}

// SessionStore persists the ringing session
type SessionStore interface {
	Load(ctx context.Context) (*models.RingingSession, error)
	Save(ctx context.Context, s models.RingingSession) error
	Clear(ctx context.Context) error
}

// Snoozer registers snooze continuations
type Snoozer interface {
	ScheduleSnooze(ctx context.Context, payload models.Payload, at time.Time) error
}

// Notifications is the part of the backend the machine reads and tidies
type Notifications interface {
	ListScheduled(ctx context.Context) ([]notify.Scheduled, error)
	ListPresented(ctx context.Context) ([]notify.Presented, error)
	DismissPresented(ctx context.Context, handle string) error
}

// SettingsSource supplies the user settings
type SettingsSource interface {
	Load(ctx context.Context) models.Settings
}

// Deps are the collaborators of a Machine
type Deps struct {
	Ringer        Ringer
	Sessions      SessionStore
	Challenges    challenge.Provider
	Snoozer       Snoozer
	Notifications Notifications
	Settings      SettingsSource
	Alarms        Gate             // nil delivers everything
	Now           func() time.Time // defaults to time.Now
}

// Machine runs the ringing alarm. Trigger deliveries and user actions all go
// through its mutex, and the persisted session is the source of truth.
type Machine struct {
	deps Deps
	log  *slog.Logger

	mu        sync.Mutex
	session   *models.RingingSession
	challenge *challenge.Descriptor
	presenter Presenter
	onFired   func(ctx context.Context, alarmID string) error
}

// NewMachine creates a new Machine instance
func NewMachine(deps Deps, log *slog.Logger) *Machine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Machine{
		deps: deps,
		log:  log.With("component", "ringing"),
	}
}

// SetPresenter wires the UI
func (m *Machine) SetPresenter(p Presenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presenter = p
}

// OnFired sets the hook called once a one-shot alarm's only trigger was delivered
func (m *Machine) OnFired(hook func(ctx context.Context, alarmID string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFired = hook
}

// Deliver handles a fired trigger. If another alarm is already ringing the
// new one is pushed back by the snooze duration instead of being dropped.
// A trigger of an alarm turned off or deleted since it fired is ignored.
func (m *Machine) Deliver(ctx context.Context, payload models.Payload) error {
	m.mu.Lock()

	if err := m.syncLocked(ctx); err != nil {
		m.log.Warn("read session", logger.Err(err))
	}
	log := m.log.With(slog.String("alarm_id", payload.AlarmID))

	ringingThis := m.session != nil && m.session.AlarmID == payload.AlarmID
	if !ringingThis && m.deps.Alarms != nil && !m.deps.Alarms.Deliverable(payload) {
		m.mu.Unlock()
		log.Info("alarm no longer active, trigger dropped", slog.Bool("snooze", payload.Snooze))
		return nil
	}

	var err error
	deferred := false
	switch {
	case ringingThis:
		log.Debug("already ringing")
		err = m.ringLocked(ctx)
	case m.session != nil:
		deferred = true
		settings := m.deps.Settings.Load(ctx)
		at := m.deps.Now().Add(time.Duration(settings.SnoozeMinutes) * time.Minute)
		log.Info("another alarm is ringing, deferring", slog.String("ringing", m.session.AlarmID), slog.Time("until", at))
		err = m.deps.Snoozer.ScheduleSnooze(ctx, payload, at)
	default:
		err = m.startLocked(ctx, payload)
	}

	var presenter Presenter
	var present *presentation
	if !deferred {
		presenter, present = m.presentation()
	}
	onFired := m.onFired
	m.mu.Unlock()

	if present != nil {
		presenter.Present(present.session, present.challenge)
	}
	if onFired != nil && !payload.Repeats && !payload.Snooze {
		if ferr := onFired(ctx, payload.AlarmID); ferr != nil {
			log.Warn("mark fired", logger.Err(ferr))
			err = errors.Join(err, ferr)
		}
	}
	return err
}

// Resume re-reads the persisted session, as after a restart or when the app
// comes to the foreground. A found session rings again without a new trigger.
func (m *Machine) Resume(ctx context.Context) error {
	m.mu.Lock()

	m.session, m.challenge = nil, nil
	if err := m.syncLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}

	m.log.Info("resuming ringing session", slog.String("alarm_id", m.session.AlarmID), slog.Time("started_at", m.session.StartedAt))
	err := m.ringLocked(ctx)
	presenter, present := m.presentation()
	m.mu.Unlock()

	if present != nil {
		presenter.Present(present.session, present.challenge)
	}
	return err
}

// Present shows the challenge of the current session, even in the
// background. A ringtone that went quiet is started again.
func (m *Machine) Present(ctx context.Context) error {
	m.mu.Lock()
	if err := m.syncLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.session == nil {
		m.mu.Unlock()
		return models.ErrNoSession
	}
	if !m.deps.Ringer.IsPlaying() {
		m.log.Info("ringtone was silent, restarting", slog.String("alarm_id", m.session.AlarmID))
	}
	err := m.ringLocked(ctx)
	if m.challenge == nil {
		m.mu.Unlock()
		return err
	}
	presenter := m.presenter
	session, ch := *m.session, *m.challenge
	m.mu.Unlock()

	if presenter != nil {
		presenter.Present(session, ch)
	}
	return err
}

// ApplySettings hands the sound settings to the ringer. A ringing alarm
// changes volume at once; a new ringtone is heard from the next start.
func (m *Machine) ApplySettings(s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deps.Ringer.UseSound(s.SoundID)
	return m.deps.Ringer.SetVolume(s.AlarmVolume)
}

// Close silences the ringtone on shutdown. The session is kept so the
// alarm rings again on the next start.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deps.Ringer.Stop()
}

// State reports the machine state
func (m *Machine) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncLocked(ctx); err != nil {
		return Idle, err
	}
	if m.session != nil {
		return Ringing, nil
	}

	regs, err := m.deps.Notifications.ListScheduled(ctx)
	if err != nil {
		return Idle, err
	}
	for _, r := range regs {
		if r.Payload.Snooze {
			return Snoozed, nil
		}
	}
	return Idle, nil
}

// Current returns the ringing session
func (m *Machine) Current() (models.RingingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return models.RingingSession{}, false
	}
	return *m.session, true
}

// Answer checks a candidate answer. A correct one dismisses the alarm.
func (m *Machine) Answer(ctx context.Context, answer string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncLocked(ctx); err != nil {
		return false, err
	}
	if m.session == nil {
		return false, models.ErrNoSession
	}
	if err := m.challengeLocked(); err != nil {
		return false, err
	}
	if !m.deps.Challenges.Verify(*m.challenge, answer) {
		m.log.Debug("wrong answer", slog.String("alarm_id", m.session.AlarmID))
		return false, nil
	}
	return true, m.dismissLocked(ctx, "solved")
}

// Dismiss stops the ringing alarm. Weekly triggers of the alarm stay registered.
func (m *Machine) Dismiss(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncLocked(ctx); err != nil {
		return err
	}
	if m.session == nil {
		return models.ErrNoSession
	}
	return m.dismissLocked(ctx, "dismissed")
}

// Snooze silences the alarm and registers it again d from now. d of zero
// uses the configured snooze; any d is clamped to 1..30 minutes. It returns
// when the alarm will ring again.
func (m *Machine) Snooze(ctx context.Context, d time.Duration) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncLocked(ctx); err != nil {
		return time.Time{}, err
	}
	if m.session == nil {
		return time.Time{}, models.ErrNoSession
	}
	if !m.session.Payload.SnoozeEnabled {
		return time.Time{}, models.ErrSnoozeDisabled
	}

	minutes := int(d / time.Minute)
	if d <= 0 {
		minutes = m.deps.Settings.Load(ctx).SnoozeMinutes
	}
	minutes = models.ClampSnoozeMinutes(minutes)
	at := m.deps.Now().Add(time.Duration(minutes) * time.Minute)

	// registered first so a failure leaves the alarm ringing
	if err := m.deps.Snoozer.ScheduleSnooze(ctx, m.session.Payload, at); err != nil {
		return time.Time{}, err
	}
	if err := m.dismissLocked(ctx, "snoozed"); err != nil {
		return at, err
	}
	return at, nil
}

// Abort silences alarmID if it is the one ringing. The caller cancels its triggers.
func (m *Machine) Abort(ctx context.Context, alarmID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.syncLocked(ctx); err != nil {
		return err
	}
	if m.session == nil || m.session.AlarmID != alarmID {
		return nil
	}
	return m.dismissLocked(ctx, "cancelled")
}

// ChallengeTimedOut records that the challenge screen gave up. The alarm keeps
// ringing; the next presentation gets a fresh challenge.
func (m *Machine) ChallengeTimedOut(alarmID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.AlarmID != alarmID {
		return
	}
	m.challenge = nil
	m.log.Info("challenge timed out, still ringing", slog.String("alarm_id", alarmID))
}

// syncLocked loads the persisted session when none is held in memory
func (m *Machine) syncLocked(ctx context.Context) error {
	if m.session != nil {
		return nil
	}
	s, err := m.deps.Sessions.Load(ctx)
	if err != nil {
		return err
	}
	m.session = s
	return nil
}

func (m *Machine) startLocked(ctx context.Context, payload models.Payload) error {
	session := models.RingingSession{
		AlarmID:   payload.AlarmID,
		StartedAt: m.deps.Now(),
		Payload:   payload,
	}
	m.session = &session
	m.challenge = nil

	var errs []error
	if err := m.deps.Sessions.Save(ctx, session); err != nil {
		// still ring; losing the session only matters across a restart
		m.log.Error("persist session", slog.String("alarm_id", payload.AlarmID), logger.Err(err))
		errs = append(errs, err)
	}
	m.log.Info("alarm ringing",
		slog.String("alarm_id", payload.AlarmID),
		slog.String("game", string(payload.ChallengeKind)),
		slog.String("difficulty", string(payload.Difficulty)),
		slog.Bool("snooze", payload.Snooze))

	if err := m.ringLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ringLocked makes sure the ringer sounds and a challenge exists
func (m *Machine) ringLocked(ctx context.Context) error {
	var errs []error
	if err := m.deps.Ringer.Start(m.deps.Settings.Load(ctx).AlarmVolume); err != nil {
		m.log.Error("start ringer", logger.Err(err))
		errs = append(errs, err)
	}
	if err := m.challengeLocked(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Machine) challengeLocked() error {
	if m.challenge != nil {
		return nil
	}
	p := m.session.Payload
	ch, err := m.deps.Challenges.Generate(p.ChallengeKind, p.Difficulty)
	if err != nil {
		return fmt.Errorf("challenge for %s: %w", m.session.AlarmID, err)
	}
	m.challenge = &ch
	return nil
}

// dismissLocked clears the persisted session before stopping the ringer, so a
// storage failure leaves the alarm ringing instead of half dismissed.
func (m *Machine) dismissLocked(ctx context.Context, reason string) error {
	alarmID := m.session.AlarmID
	if err := m.deps.Sessions.Clear(ctx); err != nil {
		m.log.Error("clear session", slog.String("alarm_id", alarmID), logger.Err(err))
		return err
	}
	m.session, m.challenge = nil, nil

	err := m.deps.Ringer.Stop()
	if err != nil {
		m.log.Error("stop ringer", logger.Err(err))
	}
	m.dismissPresented(ctx, alarmID)

	m.log.Info("alarm "+reason, slog.String("alarm_id", alarmID))
	return err
}

func (m *Machine) dismissPresented(ctx context.Context, alarmID string) {
	presented, err := m.deps.Notifications.ListPresented(ctx)
	if err != nil {
		m.log.Warn("list presented notifications", logger.Err(err))
		return
	}
	for _, p := range presented {
		if p.Payload.AlarmID != alarmID {
			continue
		}
		if err := m.deps.Notifications.DismissPresented(ctx, p.Handle); err != nil {
			m.log.Warn("dismiss notification", slog.String("handle", p.Handle), logger.Err(err))
		}
	}
}

type presentation struct {
	session   models.RingingSession
	challenge challenge.Descriptor
}

// presentation returns what to show once the lock is released, or nil when
// the UI is in the background. It is shown lazily on the next Resume then.
func (m *Machine) presentation() (Presenter, *presentation) {
	if m.presenter == nil || m.session == nil || m.challenge == nil || !m.presenter.Foreground() {
		return nil, nil
	}
	return m.presenter, &presentation{session: *m.session, challenge: *m.challenge}
}
