package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"golang.org/x/sync/errgroup"

	"github.com/borgmon/math-alarm/pkg/audio"
	"github.com/borgmon/math-alarm/pkg/challenge"
	"github.com/borgmon/math-alarm/pkg/config"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
	"github.com/borgmon/math-alarm/pkg/reconcile"
	"github.com/borgmon/math-alarm/pkg/ringing"
	"github.com/borgmon/math-alarm/pkg/schedule"
	"github.com/borgmon/math-alarm/pkg/store"
)

// engine holds the alarm core, independent of any window
type engine struct {
	cfg *config.Config
	log *slog.Logger

	kv         store.KV
	closeKV    func() error
	settings   *store.SettingsStore
	sessions   *store.SessionStore
	alarms     *store.AlarmStore
	backend    *notify.LocalBackend
	scheduler  *schedule.Scheduler
	machine    *ringing.Machine
	reconciler *reconcile.Reconciler
}

func openKV(fa fyne.App, cfg *config.Config, log *slog.Logger) (store.KV, func() error, error) {
	switch cfg.Store.Driver {
	case "badger":
		db, err := store.OpenBadger(store.BadgerConfig{
			Path:       cfg.Store.Path,
			SyncWrites: cfg.Store.SyncWrites,
			Logger:     log.With("component", "badger"),
		})
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return store.NewPrefsKV(fa), func() error { return nil }, nil
	}
}

func newEngine(ctx context.Context, fa fyne.App, cfg *config.Config, log *slog.Logger) (*engine, error) {
	kv, closeKV, err := openKV(fa, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	e := &engine{cfg: cfg, log: log, kv: kv, closeKV: closeKV}
	e.settings = store.NewSettingsStore(kv, log)
	e.sessions = store.NewSessionStore(kv)
	e.backend = notify.NewLocalBackend(kv, log, notify.Options{
		Tick:             cfg.Backend.Tick,
		PermissionDenied: !cfg.Backend.NotificationsAllowed,
		Notifier:         notify.NewDesktopNotifier(fa),
	})
	e.scheduler = schedule.NewScheduler(e.backend, log, nil)
	e.alarms = store.NewAlarmStore(kv, e.scheduler, log)

	e.machine = ringing.NewMachine(ringing.Deps{
		Ringer:        audio.NewRinger(cfg.Audio.SoundsDir, log),
		Sessions:      e.sessions,
		Challenges:    challenge.NewDefault(nil),
		Snoozer:       e.scheduler,
		Notifications: e.backend,
		Settings:      e.settings,
		Alarms:        e.alarms,
	}, log)
	if err := e.machine.ApplySettings(e.settings.Load(ctx)); err != nil {
		log.Warn("apply sound settings", logger.Err(err))
	}
	e.machine.OnFired(e.alarms.MarkFired)
	e.alarms.SetRinging(e.machine)

	e.backend.OnDelivery(func(ctx context.Context, p models.Payload) {
		if err := e.machine.Deliver(ctx, p); err != nil {
			log.Warn("delivery", slog.String("alarm_id", p.AlarmID), logger.Err(err))
		}
	})

	e.reconciler = reconcile.New(e.alarms, e.scheduler, e.backend, e.machine, log, reconcile.Options{
		Interval:     cfg.Reconcile.Interval,
		InitialDelay: cfg.Reconcile.InitialDelay,
	})

	if err := e.alarms.Load(ctx); err != nil {
		return nil, errors.Join(err, closeKV())
	}
	if err := e.backend.Load(ctx); err != nil {
		return nil, errors.Join(err, closeKV())
	}
	return e, nil
}

// start resumes an interrupted ringing session and runs the trigger loop and
// the reconciler until ctx is done
func (e *engine) start(ctx context.Context) *errgroup.Group {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.machine.Resume(ctx); err != nil {
			e.log.Error("resume ringing session", logger.Err(err))
		}
		return e.backend.Run(ctx)
	})
	g.Go(func() error { return e.reconciler.Start(ctx) })
	return g
}

func (e *engine) close() error {
	if err := e.machine.Close(); err != nil {
		e.log.Warn("stop ringer", logger.Err(err))
	}
	return e.closeKV()
}
