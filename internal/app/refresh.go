package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julik/signed-params/internal/common/logging"
	"github.com/julik/signed-params/internal/common/validation"
)

const reloadTimeout = 10 * time.Second

// reloadSalt re-reads the salt source. On failure the current salt stays.
func (app *App) reloadSalt(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	if err := app.Keeper.Reload(ctx); err != nil {
		app.Logger.Error("Salt reload failed, keeping current salt", err, logging.Field{Key: "trigger", Value: trigger})
		return
	}
	app.Logger.Debug("Salt reloaded", logging.Field{Key: "trigger", Value: trigger})
}

// StartSaltRefresh schedules reloads according to SALT_REFRESH_SCHEDULE.
// It does nothing when no schedule is configured.
func (app *App) StartSaltRefresh() error {
	spec := app.Config.SaltRefreshSchedule
	if spec == "" {
		return nil
	}

	scheduler := cron.New(cron.WithParser(validation.CronParser))
	if _, err := scheduler.AddFunc(spec, func() { app.reloadSalt("schedule") }); err != nil {
		return err
	}
	scheduler.Start()
	app.scheduler = scheduler

	app.Logger.Info("Salt refresh scheduled", logging.Field{Key: "schedule", Value: spec})
	return nil
}

// WatchReloadSignal reloads the salt on SIGHUP until the app shuts down.
func (app *App) WatchReloadSignal() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				app.reloadSalt("sighup")
			case <-app.shutdownCh:
				return
			}
		}
	}()
}
