// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for nimbus.
//
// Configuration is resolved with precedence ENV > YAML file > defaults.
// types.go holds the schema, loader.go the precedence logic, env.go the
// environment parsing helpers, reload.go hot reload and manager.go persistence.
package config
