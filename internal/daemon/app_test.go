// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/log"
)

type stubManager struct {
	started chan struct{}
}

func (s *stubManager) Start(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	return nil
}

func (s *stubManager) Shutdown(context.Context) error            { return nil }
func (s *stubManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_RunWithoutManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)
	assert.ErrorIs(t, app.Run(t.Context()), ErrMissingManager)
}

func TestApp_SignalReloadAppliesLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\nauth:\n  enabled: false\n"), 0o600))

	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(initial, loader)

	mgr := &stubManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, holder, nil)
	app.reloadSignal = syscall.SIGUSR1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\nauth:\n  enabled: false\n"), 0o600))
	require.Eventually(t, func() bool {
		_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)
		return zerolog.GlobalLevel() == zerolog.WarnLevel
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, "warn", holder.Get().LogLevel)

	cancel()
	require.NoError(t, <-done)
}
