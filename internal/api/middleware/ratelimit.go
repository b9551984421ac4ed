// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/nimbus/internal/api/problem"
	"github.com/ManuGH/nimbus/internal/audit"
	"github.com/ManuGH/nimbus/internal/metrics"
	"github.com/ManuGH/nimbus/internal/ratelimit"
)

// RateLimitConfig holds configuration for the per-client sliding window.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window.
	RequestLimit int
	// WindowSize is the time window for rate limiting.
	WindowSize time.Duration
	// KeyFunc extracts the limit key. Defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
	// Audit receives rejections; may be nil.
	Audit *audit.Logger
}

func keyByClientIP(r *http.Request) (string, error) {
	return ratelimit.ClientIP(r), nil
}

// RateLimit limits each client to RequestLimit requests per WindowSize
// using httprate's sliding window counter. Rejections get a 429 problem
// response with Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = keyByClientIP
	}
	retryAfter := strconv.Itoa(int(cfg.WindowSize.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitRejection("http")
			cfg.Audit.RateLimitExceeded(r, "http")

			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w, r, http.StatusTooManyRequests, "rate_limit", "Too Many Requests", "RATE_LIMIT_EXCEEDED",
				"Too many requests. Please try again later.", nil)
		}),
	)
}
