package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "p.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrate_Incremental(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	v1 := []string{"CREATE TABLE a (id TEXT PRIMARY KEY)"}
	require.NoError(t, Migrate(ctx, db, v1))
	require.NoError(t, Migrate(ctx, db, v1), "re-running is a no-op")

	v2 := append(v1, "ALTER TABLE a ADD COLUMN name TEXT")
	require.NoError(t, Migrate(ctx, db, v2))

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 2, version)

	_, err = db.Exec("INSERT INTO a (id, name) VALUES ('1', 'x')")
	require.NoError(t, err)

	assert.Error(t, Migrate(ctx, db, v1), "older binary refuses newer schema")
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "r.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(ctx, db, []string{"CREATE TABLE ok (id INTEGER)", "NOT SQL"})
	require.Error(t, err)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 0, version)
}

func TestVerifyIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(path, "quick")
	require.NoError(t, err)
	assert.Nil(t, issues)

	_, err = VerifyIntegrity(filepath.Join(t.TempDir(), "missing", "x.db"), "full")
	assert.Error(t, err)
}
