// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

const (
	DefaultListenAddr     = ":8088"
	DefaultUpstreamURL    = "https://nimbusagi.netlify.app/api/nimbus"
	DefaultModel          = "aviyon1.2"
	DefaultCheckoutAPI    = "https://api.stripe.com"
	DefaultCurrency       = "usd"
	DefaultSuccessURL     = "http://localhost:3000/marketplace?success=true"
	DefaultCancelURL      = "http://localhost:3000/marketplace?success=false"
	DefaultMetricsAddr    = ":9090"
	DefaultTokenIssuer    = "nimbus"
	DefaultRateLimitCount = 100
	DefaultRateLimitSpan  = 15 * time.Minute
)

// DefaultAllowedOrigins are the browser origins the web client is served from.
var DefaultAllowedOrigins = []string{
	"http://localhost:8000",
	"http://localhost:3000",
	"https://kodoninja.com",
}

// Defaults returns the built-in configuration before file and ENV are applied.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "/tmp/nimbus",
		LogLevel:   "info",
		LogService: "nimbus",
		API: APIConfig{
			ListenAddr:     DefaultListenAddr,
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			RateLimit: RateLimitConfig{
				Requests: DefaultRateLimitCount,
				Window:   DefaultRateLimitSpan,
			},
			GenerateQuota: QuotaConfig{RPS: 1, Burst: 5},
		},
		Auth: AuthConfig{
			Enabled:  true,
			Issuer:   DefaultTokenIssuer,
			TokenTTL: time.Hour,
		},
		Store: StoreConfig{Backend: StoreSQLite},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     10 * time.Minute,
		},
		Upstream: UpstreamConfig{
			URL:              DefaultUpstreamURL,
			DefaultModel:     DefaultModel,
			Timeout:          30 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Checkout: CheckoutConfig{
			APIBase:    DefaultCheckoutAPI,
			Currency:   DefaultCurrency,
			SuccessURL: DefaultSuccessURL,
			CancelURL:  DefaultCancelURL,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: DefaultMetricsAddr},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
		Server: ServerRuntime{
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			MaxHeaderBytes:  defaultMaxHeaderBytes,
			ShutdownTimeout: defaultShutdownTimeout,
		},
	}
}
