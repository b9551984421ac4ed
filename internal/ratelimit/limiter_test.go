// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newTestLimiter(burst int, ttl time.Duration) (*Limiter, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	l := New(Config{Scope: "test", Rate: rate.Every(time.Minute), Burst: burst, IdleTTL: ttl})
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterBurstPerKey(t *testing.T) {
	l, _ := newTestLimiter(3, time.Hour)

	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow("alice") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
	assert.True(t, l.Allow("bob"), "keys are independent")
}

func TestLimiterRefills(t *testing.T) {
	l, now := newTestLimiter(1, time.Hour)

	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))

	*now = now.Add(time.Minute)
	assert.True(t, l.Allow("alice"))
}

func TestLimiterEvictsIdleKeys(t *testing.T) {
	l, now := newTestLimiter(1, time.Minute)
	l.lastSweep = *now

	l.Allow("alice")
	l.Allow("bob")
	assert.Equal(t, 2, l.Len())

	*now = now.Add(2 * time.Minute)
	l.Allow("carol")
	assert.Equal(t, 1, l.Len())
}

func TestNewRaisesBurst(t *testing.T) {
	l := New(Config{Rate: 1})
	assert.Equal(t, 1, l.config.Burst)
	assert.Equal(t, 10*time.Minute, l.config.IdleTTL)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded first hop", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.9:5555", "192.0.2.9"},
		{"remote without port", "", "", "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
