// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/nimbus/internal/persistence/sqlite"
)

// ErrCorrupt is returned by Open when an existing sqlite file fails its
// integrity check.
var ErrCorrupt = errors.New("store database is corrupt")

// Open creates a Store for the configured backend. An existing sqlite file is
// quick-checked before it is migrated.
func Open(backend, path string) (Store, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		return OpenBadgerStore(path)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		if err := verifyExisting(path); err != nil {
			return nil, err
		}
		return NewSqliteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

func verifyExisting(path string) error {
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		return nil
	}
	problems, err := sqlite.VerifyIntegrity(path, "quick")
	if err != nil {
		return fmt.Errorf("verify sqlite: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(problems, "; "))
	}
	return nil
}
