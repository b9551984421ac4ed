// SPDX-License-Identifier: MIT

// Package ratelimit implements per-key token buckets for expensive operations.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/nimbus/internal/metrics"
)

// Config holds quota settings for one Limiter.
type Config struct {
	// Scope labels rejections in metrics, e.g. "generate".
	Scope string

	Rate  rate.Limit // tokens per second per key
	Burst int

	// Keys idle for longer than IdleTTL are evicted on the next sweep.
	IdleTTL time.Duration
}

// DefaultConfig returns one request per second with a burst of five.
func DefaultConfig(scope string) Config {
	return Config{
		Scope:   scope,
		Rate:    1,
		Burst:   5,
		IdleTTL: 10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out an independent token bucket per key (user id, IP).
type Limiter struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	keys      map[string]*entry
	lastSweep time.Time
}

// New creates a limiter. A non-positive burst is raised to one.
func New(config Config) *Limiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		config:    config,
		now:       time.Now,
		keys:      make(map[string]*entry),
		lastSweep: time.Now(),
	}
}

// Allow consumes one token for key and reports whether the call may proceed.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.config.Rate, l.config.Burst)}
		l.keys[key] = e
	}
	e.lastSeen = now
	l.sweepLocked(now)
	l.mu.Unlock()

	if e.limiter.AllowN(now, 1) {
		return true
	}
	metrics.RecordRateLimitRejection(l.config.Scope)
	return false
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// sweepLocked drops idle keys at most once per IdleTTL.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.config.IdleTTL {
		return
	}
	for k, e := range l.keys {
		if now.Sub(e.lastSeen) >= l.config.IdleTTL {
			delete(l.keys, k)
		}
	}
	l.lastSweep = now
}

// ClientIP extracts the originating client address, honouring the first
// X-Forwarded-For hop and X-Real-IP before RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
