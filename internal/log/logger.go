// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"cmp"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, sink and the identity fields stamped on every entry.
// Empty fields fall back to LOG_LEVEL, LOG_SERVICE and VERSION.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

func init() { Configure(Config{}) }

// Configure replaces the process logger. Loggers derived earlier keep their old sink.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(cmp.Or(cfg.Level, os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str(FieldService, cmp.Or(cfg.Service, os.Getenv("LOG_SERVICE"), "nimbus")).
		Str(FieldVersion, cmp.Or(cfg.Version, os.Getenv("VERSION"))).
		Logger()

	mu.Lock()
	root = l
	mu.Unlock()
}

func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// L is Base for call sites that want a pointer.
func L() *zerolog.Logger {
	l := Base()
	return &l
}

func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}
