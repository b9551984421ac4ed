// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/nimbus/internal/validate"
)

const minJWTSecretLen = 32

// Validate checks cross-field constraints of a resolved configuration.
// It never touches the filesystem; the daemon creates DataDir at startup.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("DataDir", cfg.DataDir)
	if cfg.LogLevel != "" {
		v.OneOf("LogLevel", cfg.LogLevel, validate.LogLevels)
	}

	v.ListenAddr("API.ListenAddr", cfg.API.ListenAddr)
	for _, o := range cfg.API.AllowedOrigins {
		v.Origin("API.AllowedOrigins", o)
	}
	v.Positive("API.RateLimit.Requests", cfg.API.RateLimit.Requests)
	v.MinDuration("API.RateLimit.Window", cfg.API.RateLimit.Window, time.Second)
	if cfg.API.GenerateQuota.RPS <= 0 {
		v.AddError("API.GenerateQuota.RPS", "value must be positive", cfg.API.GenerateQuota.RPS)
	}
	v.Positive("API.GenerateQuota.Burst", cfg.API.GenerateQuota.Burst)

	if cfg.Auth.Enabled {
		v.MinLength("Auth.JWTSecret", cfg.Auth.JWTSecret, minJWTSecretLen)
		v.NotEmpty("Auth.Issuer", cfg.Auth.Issuer)
		v.MinDuration("Auth.TokenTTL", cfg.Auth.TokenTTL, time.Minute)
	}

	v.OneOf("Store.Backend", cfg.Store.Backend, []string{StoreSQLite, StoreBadger, StoreMemory})
	if cfg.Store.Backend != StoreMemory {
		v.NotEmpty("Store.Path", cfg.StorePath())
	}

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{CacheMemory, CacheRedis, CacheNone})
	if cfg.Cache.Backend == CacheRedis {
		v.NotEmpty("Cache.RedisAddr", cfg.Cache.RedisAddr)
		v.Range("Cache.RedisDB", cfg.Cache.RedisDB, 0, 15)
	}
	if cfg.Cache.Backend != CacheNone {
		v.MinDuration("Cache.TTL", cfg.Cache.TTL, time.Second)
	}

	v.URL("Upstream.URL", cfg.Upstream.URL, []string{"http", "https"})
	v.NotEmpty("Upstream.DefaultModel", cfg.Upstream.DefaultModel)
	v.MinDuration("Upstream.Timeout", cfg.Upstream.Timeout, time.Second)
	v.Positive("Upstream.BreakerThreshold", cfg.Upstream.BreakerThreshold)
	v.MinDuration("Upstream.BreakerReset", cfg.Upstream.BreakerReset, time.Second)

	v.URL("Checkout.APIBase", cfg.Checkout.APIBase, []string{"http", "https"})
	v.NotEmpty("Checkout.Currency", cfg.Checkout.Currency)
	v.URL("Checkout.SuccessURL", cfg.Checkout.SuccessURL, []string{"http", "https"})
	v.URL("Checkout.CancelURL", cfg.Checkout.CancelURL, []string{"http", "https"})

	if cfg.Metrics.Enabled {
		v.ListenAddr("Metrics.Addr", cfg.Metrics.Addr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
	}
	v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)

	return v.Err()
}
