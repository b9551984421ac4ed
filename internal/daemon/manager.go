// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nimbus/internal/config"
)

// drainBudget bounds the shutdown that follows a listener failure or signal.
const drainBudget = 30 * time.Second

// ShutdownHook releases a resource. Hooks run newest first.
type ShutdownHook func(ctx context.Context) error

// Manager owns the HTTP listeners and the shutdown sequence.
type Manager interface {
	// Start binds every listener and blocks until ctx ends or a listener fails.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type listener struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

type hookEntry struct {
	name string
	fn   ShutdownHook
}

type manager struct {
	cfg    config.ServerConfig
	deps   Deps
	logger zerolog.Logger

	mu        sync.Mutex
	started   bool
	stopping  bool
	listeners []listener
	hooks     []hookEntry
}

// NewManager checks deps and returns a Manager that has not bound anything yet.
func NewManager(cfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

func (m *manager) servers() []*http.Server {
	api := &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
	}
	out := []*http.Server{api}
	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		out = append(out, &http.Server{
			Addr:              m.deps.MetricsAddr,
			Handler:           m.deps.MetricsHandler,
			ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		})
	}
	return out
}

func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil start context")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: manager already started")
	}
	m.started = true
	m.mu.Unlock()

	names := []string{"api", "metrics"}
	var bound []listener
	for i, srv := range m.servers() {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, b := range bound {
				_ = b.ln.Close()
			}
			m.runHooks(context.WithoutCancel(ctx))
			return fmt.Errorf("%s listener: %w", names[i], err)
		}
		bound = append(bound, listener{name: names[i], srv: srv, ln: ln})
	}

	m.mu.Lock()
	m.listeners = bound
	m.mu.Unlock()

	failed := make(chan error, len(bound))
	for _, l := range bound {
		m.logger.Info().Str("server", l.name).Str("addr", l.ln.Addr().String()).Msg("listening")
		go func() {
			if err := l.srv.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				failed <- fmt.Errorf("%s server: %w", l.name, err)
			}
		}()
	}

	var cause error
	select {
	case cause = <-failed:
		m.logger.Error().Err(cause).Str("event", "daemon.server_failed").Msg("listener failed, shutting down")
	case <-ctx.Done():
		m.logger.Info().Str("event", "daemon.shutdown_signal").Msg("shutdown requested")
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainBudget)
	defer cancel()
	return errors.Join(cause, m.Shutdown(drainCtx))
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil shutdown context")
	}

	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	listeners := m.listeners
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, l := range listeners {
		if err := l.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", l.name, err))
		}
	}
	errs = append(errs, m.runHooks(ctx)...)

	if len(errs) > 0 {
		m.logger.Error().Int("errors", len(errs)).Msg("stopped with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("stopped")
	return nil
}

// runHooks drains the hook list so a second call runs nothing.
func (m *manager) runHooks(ctx context.Context) []error {
	m.mu.Lock()
	hooks := m.hooks
	m.hooks = nil
	m.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.fn(ctx)
		evt := m.logger.Debug()
		if err != nil {
			evt = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		evt.Str("hook", h.name).Dur("took", time.Since(start)).Msg("shutdown hook")
	}
	return errs
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hookEntry{name: name, fn: hook})
	m.mu.Unlock()
}
