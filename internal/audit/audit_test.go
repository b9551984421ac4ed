// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/nimbus/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLoggerWith(zerolog.New(&buf)), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLogger_Log(t *testing.T) {
	l, buf := newTestLogger()
	l.Log(Event{
		Type:     EventConfigReload,
		Actor:    "system",
		Action:   "reload configuration",
		Resource: "config",
		Result:   "success",
		Details:  map[string]string{"changes": "3"},
	})

	m := decode(t, buf)
	assert.Equal(t, "audit", m["log_type"])
	assert.Equal(t, "config.reload", m["event_type"])
	assert.Equal(t, "3", m["changes"])
	assert.NotEmpty(t, m["timestamp"])
}

func TestLogger_LogRequestFillsMetadata(t *testing.T) {
	l, buf := newTestLogger()
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("User-Agent", "curl/8")
	r = r.WithContext(log.ContextWithRequestID(r.Context(), "req-9"))

	l.Login(r, "", "a@b.co", false)

	m := decode(t, buf)
	assert.Equal(t, "auth.login.failure", m["event_type"])
	assert.Equal(t, "10.0.0.1", m["remote_addr"])
	assert.Equal(t, "10.0.0.1", m["actor"])
	assert.Equal(t, "curl/8", m["user_agent"])
	assert.Equal(t, "req-9", m["request_id"])
	assert.Equal(t, "/auth/login", m["resource"])
	assert.Equal(t, "a@b.co", m["email"])
}

func TestLogger_ActorFromContextUser(t *testing.T) {
	l, buf := newTestLogger()
	r := httptest.NewRequest(http.MethodPost, "/generate", nil)
	r = r.WithContext(log.ContextWithUserID(r.Context(), "user-1"))

	l.RateLimitExceeded(r, "generate")

	m := decode(t, buf)
	assert.Equal(t, "user-1", m["actor"])
	assert.Equal(t, "generate", m["scope"])
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.AuthFailure(httptest.NewRequest(http.MethodGet, "/", nil), "missing token")
		l.ConfigReload("system", "failure", nil)
	})
}
