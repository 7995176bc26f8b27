package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/borgmon/math-alarm/pkg/config"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/schedule"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "math-alarm",
		Short:        "Alarm clock that makes you solve a challenge to stop it",
		Long:         config.Description(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (or $"+config.EnvConfigPathName+")")

	root.AddCommand(
		runCmd(&configPath),
		listCmd(&configPath),
		exportCmd(&configPath),
	)
	return root
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the tray app (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), *configPath)
		},
	}
}

func listCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alarms and when they ring next",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			out := cmd.OutOrStdout()
			alarms := e.alarms.List()
			if len(alarms) == 0 {
				fmt.Fprintln(out, "no alarms")
				return nil
			}
			now := time.Now()
			for _, a := range alarms {
				next := "-"
				if a.Active {
					next = schedule.NextFire(a, now).Format("Mon Jan 2 15:04")
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", a.ID, describeAlarm(a), next)
			}
			return nil
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the registered triggers as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.close()

			if output == "" {
				return e.backend.Export(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := e.backend.Export(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.App.Env), nil
}

// openEngine builds the engine for a one-off command, without the tray
func openEngine(ctx context.Context, configPath string) (*engine, error) {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newEngine(ctx, app.NewWithID(cfg.App.ID), cfg, log)
}

func runTray(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	fa := app.NewWithID(cfg.App.ID)
	e, err := newEngine(ctx, fa, cfg, log)
	if err != nil {
		log.Error("start engine", logger.Err(err))
		return err
	}
	defer e.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ma := newMathAlarm(fa, e, log)
	ma.initialize(ctx)
	fa.Run()

	cancel()
	return ma.wait()
}
