package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/emersion/go-autostart"
)

// setupAutostart makes the login item match enable
func setupAutostart(appID, name string, enable bool, log *slog.Logger) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return err
	}

	item := &autostart.App{
		Name:        appID,
		DisplayName: name,
		Exec:        []string{execPath, "run"},
	}

	switch {
	case enable && !item.IsEnabled():
		if err := item.Enable(); err != nil {
			log.Warn("enable autostart", logger.Err(err))
			return err
		}
		log.Info("autostart enabled")
	case !enable && item.IsEnabled():
		if err := item.Disable(); err != nil {
			log.Warn("disable autostart", logger.Err(err))
			return err
		}
		log.Info("autostart disabled")
	}
	return nil
}
