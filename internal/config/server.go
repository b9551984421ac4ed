// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"cmp"
	"time"
)

// ServerConfig is the resolved http.Server tuning for the API listener.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // must exceed the upstream timeout
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ParseServerConfigForApp layers NIMBUS_SERVER_* and NIMBUS_LISTEN over the
// file values, which in turn override the built-in defaults. Zero file values
// count as unset. The shutdown timeout never drops below minShutdownTimeout.
func ParseServerConfigForApp(cfg AppConfig) ServerConfig {
	s := cfg.Server
	out := ServerConfig{
		ListenAddr:      ParseString("NIMBUS_LISTEN", cmp.Or(cfg.API.ListenAddr, DefaultListenAddr)),
		ReadTimeout:     ParseDuration("NIMBUS_SERVER_READ_TIMEOUT", positiveOr(s.ReadTimeout, defaultReadTimeout)),
		WriteTimeout:    ParseDuration("NIMBUS_SERVER_WRITE_TIMEOUT", positiveOr(s.WriteTimeout, defaultWriteTimeout)),
		IdleTimeout:     ParseDuration("NIMBUS_SERVER_IDLE_TIMEOUT", positiveOr(s.IdleTimeout, defaultIdleTimeout)),
		MaxHeaderBytes:  ParseInt("NIMBUS_SERVER_MAX_HEADER_BYTES", positiveOr(s.MaxHeaderBytes, defaultMaxHeaderBytes)),
		ShutdownTimeout: ParseDuration("NIMBUS_SERVER_SHUTDOWN_TIMEOUT", positiveOr(s.ShutdownTimeout, defaultShutdownTimeout)),
	}
	out.ShutdownTimeout = max(out.ShutdownTimeout, minShutdownTimeout)
	return out
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}
