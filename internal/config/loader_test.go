// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nimbus/internal/validate"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("NIMBUS_JWT_SECRET", testSecret)
	t.Setenv("NIMBUS_DATA", t.TempDir())

	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, DefaultListenAddr, cfg.API.ListenAddr)
	assert.Equal(t, DefaultAllowedOrigins, cfg.API.AllowedOrigins)
	assert.Equal(t, 100, cfg.API.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.API.RateLimit.Window)
	assert.Equal(t, "aviyon1.2", cfg.Upstream.DefaultModel)
	assert.Equal(t, filepath.Join(cfg.DataDir, "nimbus.db"), cfg.Store.Path)
}

func TestLoad_MissingSecretFailsWhenAuthEnabled(t *testing.T) {
	_, err := NewLoader("", "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Auth.JWTSecret")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
dataDir: /var/lib/nimbus
auth:
  jwtSecret: "`+testSecret+`"
api:
  listenAddr: ":9000"
  rateLimit:
    requests: 10
    window: 1m
upstream:
  defaultModel: from-file
store:
  backend: badger
`)
	t.Setenv("NIMBUS_UPSTREAM_MODEL", "from-env")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.API.ListenAddr, "file overrides default")
	assert.Equal(t, 10, cfg.API.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.API.RateLimit.Window)
	assert.Equal(t, "from-env", cfg.Upstream.DefaultModel, "env overrides file")
	assert.Equal(t, "/var/lib/nimbus/badger", cfg.Store.Path)
	assert.Equal(t, DefaultUpstreamURL, cfg.Upstream.URL, "untouched keys keep defaults")
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwtSecret: x\nbogus: true\n")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("NIMBUS_JWT_SECRET", testSecret)

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.API.ListenAddr)
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("NIMBUS_JWT_SECRET", testSecret)
	t.Setenv("NIMBUS_RATELIMIT_REQUESTS", "lots")

	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultRateLimitCount, cfg.API.RateLimit.Requests)
}

func TestLoader_TracksConsumedKeys(t *testing.T) {
	t.Setenv("NIMBUS_JWT_SECRET", testSecret)
	l := NewLoader("", "dev")
	_, err := l.Load()
	require.NoError(t, err)

	for _, key := range []string{"NIMBUS_LISTEN", "NIMBUS_ALLOWED_ORIGINS", "NIMBUS_REDIS_ADDR", "NIMBUS_OTEL_SAMPLING"} {
		_, ok := l.ConsumedEnvKeys[key]
		assert.True(t, ok, key)
	}
}

func TestParseBytes(t *testing.T) {
	cfg, err := ParseBytes([]byte("auth:\n  enabled: false\ncache:\n  backend: none\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)

	_, err = ParseBytes([]byte("store:\n  backend: postgres\nauth:\n  enabled: false\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Store.Backend")
}

func TestManager_SaveRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.JWTSecret = testSecret
	cfg.Store.Path = "/data/nimbus.db"
	cfg.API.AllowedOrigins = []string{"https://example.com"}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, NewManager(path).Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := ParseBytes(data)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = "short"

	err := NewManager(filepath.Join(t.TempDir(), "c.yaml")).Save(cfg)
	require.Error(t, err)

	assert.ErrorIs(t, NewManager("").Save(cfg), ErrNoConfigPath)
}

func TestDefaults_OnlyMissingSecret(t *testing.T) {
	err := Validate(Defaults())
	require.Error(t, err)
	var errs validate.Errors
	require.True(t, errors.As(err, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "Auth.JWTSecret", errs[0].Field)

	cfg := Defaults()
	cfg.Auth.JWTSecret = testSecret
	require.NoError(t, Validate(cfg))
	assert.Equal(t, filepath.Join(cfg.DataDir, "nimbus.db"), cfg.StorePath())

	cfg.Auth.Enabled = false
	cfg.Auth.JWTSecret = ""
	assert.NoError(t, Validate(cfg))
}

func TestStorePath(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/srv/nimbus"
	cfg.Store.Backend = StoreBadger
	assert.Equal(t, "/srv/nimbus/badger", cfg.StorePath())

	cfg.Store.Path = "/elsewhere/kv"
	assert.Equal(t, "/elsewhere/kv", cfg.StorePath())

	cfg.Store.Backend = StoreMemory
	cfg.Store.Path = ""
	assert.Empty(t, cfg.StorePath())
}
