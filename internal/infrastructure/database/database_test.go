package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
)

func TestOpen(t *testing.T) {
	t.Run("creates file and nested directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "bosshub.db")

		db, err := Open(config.DatabaseConfig{
			Enabled:     true,
			Path:        dbPath,
			WALMode:     true,
			BusyTimeout: 5,
		})
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck // Test cleanup

		_, err = os.Stat(filepath.Dir(dbPath))
		assert.NoError(t, err, "database directory was not created")
		assert.Equal(t, dbPath, db.Path())
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := Open(config.DatabaseConfig{Enabled: false, Path: "unused.db"})
		assert.ErrorIs(t, err, ErrDisabled)
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.HealthCheck(ctx))
}

func TestClose(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Error(t, db.HealthCheck(context.Background()), "HealthCheck() after Close() should fail")

	var nilDB *DB
	assert.NoError(t, nilDB.Close())
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, testMigrations))

	_, err := db.GetMeta(ctx, "device_id")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetMeta(ctx, "device_id", "first"))
	require.NoError(t, db.SetMeta(ctx, "device_id", "second"))

	got, err := db.GetMeta(ctx, "device_id")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestMeta_PersistsAcrossOpen(t *testing.T) {
	cfg := config.DatabaseConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "bosshub.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}
	ctx := context.Background()

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, testMigrations))
	require.NoError(t, db.SetMeta(ctx, "device_id", "persisted"))
	db.Close() //nolint:errcheck // Reopened below

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck // Test cleanup

	got, err := db.GetMeta(ctx, "device_id")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

// openTestDB opens an in-memory store closed at test cleanup.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}
