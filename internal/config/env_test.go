// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/nimbus/internal/log"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("NIMBUS_T_STR", "hello")
	t.Setenv("NIMBUS_T_INT", "42")
	t.Setenv("NIMBUS_T_FLOAT", "0.25")
	t.Setenv("NIMBUS_T_DUR", "90s")
	t.Setenv("NIMBUS_T_BOOL", "YES")
	t.Setenv("NIMBUS_T_CSV", " a, ,b ,c")

	assert.Equal(t, "hello", ParseString("NIMBUS_T_STR", "x"))
	assert.Equal(t, 42, ParseInt("NIMBUS_T_INT", 1))
	assert.InDelta(t, 0.25, ParseFloat("NIMBUS_T_FLOAT", 1), 1e-9)
	assert.Equal(t, 90*time.Second, ParseDuration("NIMBUS_T_DUR", time.Second))
	assert.True(t, ParseBool("NIMBUS_T_BOOL", false))
	assert.Equal(t, []string{"a", "b", "c"}, ParseCSV("NIMBUS_T_CSV", nil))

	assert.Equal(t, "fallback", ParseString("NIMBUS_T_UNSET", "fallback"))
	t.Setenv("NIMBUS_T_BAD_BOOL", "maybe")
	assert.True(t, ParseBool("NIMBUS_T_BAD_BOOL", true))
}

func TestParseServerConfigForApp(t *testing.T) {
	cfg := Defaults()
	cfg.API.ListenAddr = ":7000"
	cfg.Server.ShutdownTimeout = time.Second

	sc := ParseServerConfigForApp(cfg)
	assert.Equal(t, ":7000", sc.ListenAddr)
	assert.Equal(t, minShutdownTimeout, sc.ShutdownTimeout, "clamped to minimum")

	t.Setenv("NIMBUS_LISTEN", ":7100")
	t.Setenv("NIMBUS_SERVER_READ_TIMEOUT", "5s")
	sc = ParseServerConfigForApp(cfg)
	assert.Equal(t, ":7100", sc.ListenAddr)
	assert.Equal(t, 5*time.Second, sc.ReadTimeout)
}

func TestMaskSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.JWTSecret = "topsecret"
	cfg.Checkout.SecretKey = "sk_test"

	masked, ok := MaskSecrets(cfg).(map[string]any)
	if !assert.True(t, ok) {
		return
	}
	auth := masked["Auth"].(map[string]any)
	assert.Equal(t, "***", auth["JWTSecret"])
	checkout := masked["Checkout"].(map[string]any)
	assert.Equal(t, "***", checkout["SecretKey"])
	assert.Equal(t, DefaultCurrency, checkout["Currency"])

	assert.Equal(t, map[string]any{"password": "***", "user": "bob"},
		MaskSecrets(map[string]string{"password": "pw", "user": "bob"}))
	assert.Equal(t, "", MaskSecret(""))
}

func TestParseString_SensitiveValueNotLogged(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	t.Setenv("NIMBUS_AUTH_JWT_SECRET", "super-secret-signing-key")
	assert.Equal(t, "super-secret-signing-key", ParseString("NIMBUS_AUTH_JWT_SECRET", ""))

	out := buf.String()
	assert.Contains(t, out, `"sensitive":true`)
	assert.Contains(t, out, "NIMBUS_AUTH_JWT_SECRET")
	assert.NotContains(t, out, "super-secret-signing-key")

	assert.True(t, isSensitiveKey("Checkout.SecretKey"))
	assert.True(t, isSensitiveKey("REDIS_PASSWORD"))
	assert.False(t, isSensitiveKey("NIMBUS_LISTEN"))
}
