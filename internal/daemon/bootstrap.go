// SPDX-License-Identifier: MIT

// Package daemon wires the nimbus components together and manages the
// process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/nimbus/internal/api"
	"github.com/ManuGH/nimbus/internal/audit"
	"github.com/ManuGH/nimbus/internal/auth"
	"github.com/ManuGH/nimbus/internal/cache"
	"github.com/ManuGH/nimbus/internal/checkout"
	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/generate"
	"github.com/ManuGH/nimbus/internal/health"
	"github.com/ManuGH/nimbus/internal/knowledge"
	"github.com/ManuGH/nimbus/internal/ratelimit"
	"github.com/ManuGH/nimbus/internal/store"
	"github.com/ManuGH/nimbus/internal/telemetry"
	"github.com/ManuGH/nimbus/internal/upstream"
)

// Runtime is the assembled service: handlers plus the resources that must be
// released on shutdown.
type Runtime struct {
	APIHandler     http.Handler
	MetricsHandler http.Handler
	MetricsAddr    string
	Health         *health.Manager
	Audit          *audit.Logger
	Upstream       *upstream.Client

	hooks []hookEntry
}

// Bootstrap opens every backend named by cfg and builds the API handler.
// On error, resources opened so far are released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Audit: audit.NewLogger()}
	defer func() {
		if err != nil {
			_ = rt.close(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.addHook("telemetry", tp.Shutdown)

	st, err := store.Open(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.addHook("store", func(context.Context) error { return st.Close() })

	respCache := cache.New(cfg.Cache, logger)
	rt.addHook("cache", func(context.Context) error { return respCache.Close() })

	kb, err := knowledge.Load()
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	rt.Upstream = upstream.New(upstream.ConfigFromApp(cfg), respCache)
	quota := ratelimit.New(ratelimit.Config{
		Scope: "generate",
		Rate:  rate.Limit(cfg.API.GenerateQuota.RPS),
		Burst: cfg.API.GenerateQuota.Burst,
	})

	var tokens *auth.Issuer
	if cfg.Auth.Enabled {
		tokens = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	}

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewPingChecker("store", st.Ping))
	rt.Health.RegisterChecker(health.NewPingChecker("cache", respCache.Ping))
	rt.Health.RegisterChecker(health.NewBreakerChecker("upstream", func() string {
		return string(rt.Upstream.Breaker().State())
	}))
	rt.Health.RegisterChecker(health.NewDirChecker("data_dir", cfg.DataDir))

	rt.APIHandler = api.New(api.Deps{
		Config:    cfg,
		Store:     st,
		Generate:  generate.NewService(rt.Upstream, quota, st),
		Tokens:    tokens,
		Knowledge: kb,
		Checkout:  checkout.New(cfg.Checkout),
		Health:    rt.Health,
		Audit:     rt.Audit,
	}).Handler()

	if cfg.Metrics.Enabled {
		rt.MetricsHandler = promhttp.Handler()
		rt.MetricsAddr = cfg.Metrics.Addr
	}

	logger.Info().
		Str("event", "bootstrap.done").
		Str("store", cfg.Store.Backend).
		Str("cache", respCache.Name()).
		Bool("auth", cfg.Auth.Enabled).
		Bool("tracing", tp.Enabled()).
		Msg("runtime assembled")
	return rt, nil
}

func (rt *Runtime) addHook(name string, h ShutdownHook) {
	rt.hooks = append(rt.hooks, hookEntry{name: name, fn: h})
}

// Deps returns the manager dependencies for this runtime.
func (rt *Runtime) Deps(logger zerolog.Logger) Deps {
	return Deps{
		Logger:         logger,
		APIHandler:     rt.APIHandler,
		MetricsHandler: rt.MetricsHandler,
		MetricsAddr:    rt.MetricsAddr,
	}
}

// RegisterHooks hands the runtime's cleanup to m in opening order, so m
// releases them in reverse.
func (rt *Runtime) RegisterHooks(m Manager) {
	for _, h := range rt.hooks {
		m.RegisterShutdownHook(h.name, h.fn)
	}
	rt.hooks = nil
}

// close runs the hooks in reverse when no manager took them over.
func (rt *Runtime) close(ctx context.Context) error {
	var first error
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		if err := rt.hooks[i].fn(ctx); err != nil && first == nil {
			first = fmt.Errorf("%s: %w", rt.hooks[i].name, err)
		}
	}
	rt.hooks = nil
	return first
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
