// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/ManuGH/nimbus/internal/log"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func testServerConfig(addr string) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     10 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 2 * time.Second,
	}
}

// startAsync runs Start in the background and returns its result channel.
func startAsync(ctx context.Context, m Manager) <-chan error {
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	return done
}

func awaitStop(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
		return nil
	}
}

func dialable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func TestNewManager_Deps(t *testing.T) {
	tests := []struct {
		name    string
		deps    Deps
		wantErr error
	}{
		{"valid", Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()}, nil},
		{"disabled logger", Deps{Logger: zerolog.Nop(), APIHandler: http.NotFoundHandler()}, ErrMissingLogger},
		{"no handler", Deps{Logger: log.WithComponent("test")}, ErrMissingAPIHandler},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(testServerConfig("127.0.0.1:0"), tt.deps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	m, err := NewManager(testServerConfig(addr), Deps{
		Logger: log.WithComponent("test"),
		APIHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := startAsync(ctx, m)
	require.Eventually(t, func() bool { return dialable(addr) }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, awaitStop(t, done))
	assert.False(t, dialable(addr))
}

func TestManager_MetricsListener(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	metricsAddr := reserveListenAddr(t)
	m, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:         log.WithComponent("test"),
		APIHandler:     http.NotFoundHandler(),
		MetricsHandler: http.NotFoundHandler(),
		MetricsAddr:    metricsAddr,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := startAsync(ctx, m)
	require.Eventually(t, func() bool { return dialable(metricsAddr) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, awaitStop(t, done))
}

func TestManager_ShutdownTimeoutWithInflightRequest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entered := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(entered)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	addr := reserveListenAddr(t)
	cfg := testServerConfig(addr)
	cfg.ShutdownTimeout = 100 * time.Millisecond
	m, err := NewManager(cfg, Deps{Logger: log.WithComponent("test"), APIHandler: handler})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := startAsync(ctx, m)
	require.Eventually(t, func() bool { return dialable(addr) }, 2*time.Second, 10*time.Millisecond)

	reqDone := make(chan struct{})
	go func() {
		defer close(reqDone)
		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		if resp, err := client.Get("http://" + addr); err == nil {
			_ = resp.Body.Close()
		}
	}()
	<-entered

	cancel()
	err = awaitStop(t, done)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case <-reqDone:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request never finished")
	}
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Shutdown(t.Context()), ErrManagerNotStarted)
}

func TestManager_BindFailureRunsHooks(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	m, err := NewManager(testServerConfig(busy.Addr().String()), Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)

	closed := false
	m.RegisterShutdownHook("store", func(context.Context) error {
		closed = true
		return nil
	})

	err = m.Start(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api listener")
	assert.True(t, closed)
}

func TestManager_ShutdownHooksRunLIFO(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: log.WithComponent("test"), APIHandler: http.NotFoundHandler()})
	require.NoError(t, err)

	var order []string
	for _, name := range []string{"telemetry", "store", "cache"} {
		m.RegisterShutdownHook(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	m.RegisterShutdownHook("failing", func(context.Context) error { return errors.New("boom") })

	ctx, cancel := context.WithCancel(t.Context())
	done := startAsync(ctx, m)
	cancel()

	err = awaitStop(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook failing: boom")
	assert.Equal(t, []string{"cache", "store", "telemetry"}, order)

	assert.NoError(t, m.Shutdown(t.Context()))
}
