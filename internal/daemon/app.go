// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/nimbus/internal/audit"
	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/metrics"
)

// App owns the long-lived runtime (config watcher, reload signal) and
// delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	audit        *audit.Logger
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, auditLog *audit.Logger) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		audit:        auditLog,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Best-effort: a missing watcher only disables hot reload.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.Subscribe(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case next := <-applyCh:
					a.apply(next)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				a.watchReloadSignal(ctx)
				return nil
			})
		}
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply pushes the hot-reloadable parts of a new config into the process.
// Listener addresses and backends need a restart.
func (a *App) apply(next config.AppConfig) {
	if lvl, err := zerolog.ParseLevel(next.LogLevel); err == nil && next.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	metrics.RecordConfigReload("success")
	a.audit.ConfigReload("system", "success", map[string]string{"log_level": next.LogLevel})
}

func (a *App) watchReloadSignal(ctx context.Context) {
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, a.reloadSignal)
	defer signal.Stop(hupChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hupChan:
			a.logger.Info().
				Str("event", "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("received reload signal, reloading config")

			if err := a.cfgHolder.Reload(ctx); err != nil {
				metrics.RecordConfigReload("error")
				a.audit.ConfigReload("signal", "error", map[string]string{"error": err.Error()})
				a.logger.Warn().
					Err(err).
					Str("event", "config.reload_failed").
					Msg("config reload failed")
			}
		}
	}
}
