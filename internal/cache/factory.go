// SPDX-License-Identifier: MIT

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ManuGH/nimbus/internal/config"
	"github.com/rs/zerolog"
)

const janitorInterval = time.Minute

// New builds the configured cache. An unreachable Redis degrades to the
// memory cache with a warning rather than failing startup.
func New(cfg config.CacheConfig, logger zerolog.Logger) Cache {
	switch cfg.Backend {
	case config.CacheNone:
		return NewNoOpCache()
	case config.CacheRedis:
		rc, err := NewRedisCache(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err == nil {
			return rc
		}
		logger.Warn().
			Err(err).
			Str("event", "cache.redis_fallback").
			Str("addr", cfg.RedisAddr).
			Msg("redis unavailable, falling back to in-memory cache")
		return NewMemoryCache(janitorInterval)
	default:
		return NewMemoryCache(janitorInterval)
	}
}

// Key derives a stable cache key for a generate request. Fields are
// separated by NUL so ("ab","c") and ("a","bc") never collide.
func Key(model, context, message string, fileNames []string) string {
	h := sha256.New()
	for _, part := range []string{model, context, message, strings.Join(fileNames, "\x1f")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
