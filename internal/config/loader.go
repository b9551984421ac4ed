// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path the loader reads, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The result is validated before it is returned.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.mergeFile(&cfg, l.configPath); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Store.Path = cfg.StorePath()

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeFile decodes the YAML file on top of cfg. Unknown keys are rejected.
func (l *Loader) mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		return err
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file keeps defaults
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ParseBytes applies a YAML document on top of the defaults without touching ENV.
// It is used by `nimbusd config validate` and tests.
func ParseBytes(data []byte) (AppConfig, error) {
	cfg := Defaults()
	if err := decodeStrict(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Store.Path = cfg.StorePath()
	return cfg, Validate(cfg)
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString("NIMBUS_DATA", cfg.DataDir)
	cfg.LogLevel = l.envString("NIMBUS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("NIMBUS_LOG_SERVICE", cfg.LogService)

	cfg.API.ListenAddr = l.envString("NIMBUS_LISTEN", cfg.API.ListenAddr)
	cfg.API.AllowedOrigins = l.envCSV("NIMBUS_ALLOWED_ORIGINS", cfg.API.AllowedOrigins)
	cfg.API.RateLimit.Requests = l.envInt("NIMBUS_RATELIMIT_REQUESTS", cfg.API.RateLimit.Requests)
	cfg.API.RateLimit.Window = l.envDuration("NIMBUS_RATELIMIT_WINDOW", cfg.API.RateLimit.Window)
	cfg.API.GenerateQuota.RPS = l.envFloat("NIMBUS_GENERATE_RPS", cfg.API.GenerateQuota.RPS)
	cfg.API.GenerateQuota.Burst = l.envInt("NIMBUS_GENERATE_BURST", cfg.API.GenerateQuota.Burst)

	cfg.Auth.Enabled = l.envBool("NIMBUS_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.JWTSecret = l.envString("NIMBUS_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = l.envString("NIMBUS_TOKEN_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.TokenTTL = l.envDuration("NIMBUS_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Store.Backend = l.envString("NIMBUS_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("NIMBUS_STORE_PATH", cfg.Store.Path)

	cfg.Cache.Backend = l.envString("NIMBUS_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = l.envString("NIMBUS_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = l.envString("NIMBUS_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = l.envInt("NIMBUS_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.TTL = l.envDuration("NIMBUS_CACHE_TTL", cfg.Cache.TTL)

	cfg.Upstream.URL = l.envString("NIMBUS_UPSTREAM_URL", cfg.Upstream.URL)
	cfg.Upstream.DefaultModel = l.envString("NIMBUS_UPSTREAM_MODEL", cfg.Upstream.DefaultModel)
	cfg.Upstream.Timeout = l.envDuration("NIMBUS_UPSTREAM_TIMEOUT", cfg.Upstream.Timeout)
	cfg.Upstream.BreakerThreshold = l.envInt("NIMBUS_UPSTREAM_BREAKER_THRESHOLD", cfg.Upstream.BreakerThreshold)
	cfg.Upstream.BreakerReset = l.envDuration("NIMBUS_UPSTREAM_BREAKER_RESET", cfg.Upstream.BreakerReset)

	cfg.Checkout.APIBase = l.envString("NIMBUS_CHECKOUT_API_BASE", cfg.Checkout.APIBase)
	cfg.Checkout.SecretKey = l.envString("NIMBUS_CHECKOUT_SECRET_KEY", cfg.Checkout.SecretKey)
	cfg.Checkout.Currency = l.envString("NIMBUS_CHECKOUT_CURRENCY", cfg.Checkout.Currency)
	cfg.Checkout.SuccessURL = l.envString("NIMBUS_CHECKOUT_SUCCESS_URL", cfg.Checkout.SuccessURL)
	cfg.Checkout.CancelURL = l.envString("NIMBUS_CHECKOUT_CANCEL_URL", cfg.Checkout.CancelURL)

	cfg.Metrics.Enabled = l.envBool("NIMBUS_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = l.envString("NIMBUS_METRICS_LISTEN", cfg.Metrics.Addr)

	cfg.Telemetry.Enabled = l.envBool("NIMBUS_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("NIMBUS_OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("NIMBUS_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("NIMBUS_OTEL_SAMPLING", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("NIMBUS_ENVIRONMENT", cfg.Telemetry.Environment)
}

// Wrapper methods for mechanical consumption tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envCSV(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseCSV(key, defaultVal)
}

// StorePath is Store.Path, or the backend's default file under DataDir when unset.
func (c AppConfig) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return defaultStorePath(c.DataDir, c.Store.Backend)
}

func defaultStorePath(dataDir, backend string) string {
	switch backend {
	case StoreBadger:
		return filepath.Join(dataDir, "badger")
	case StoreMemory:
		return ""
	default:
		return filepath.Join(dataDir, "nimbus.db")
	}
}
