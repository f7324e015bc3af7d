package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := New(Config{Path: path, Profile: ProfileCache})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"price_data", "trading_signals", "technical_indicators", "configurations", "system_logs"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate())
}

func TestHealthCheck_OK(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestBackup_ProducesVerifiedCopy(t *testing.T) {
	db := newTestDB(t)
	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, db.Backup(dest))

	backup, err := New(Config{Path: dest, Profile: ProfileCache})
	require.NoError(t, err)
	defer backup.Close()
	assert.NoError(t, backup.HealthCheck(context.Background()))
}

func TestGetStats_ReportsSizeAndPages(t *testing.T) {
	db := newTestDB(t)
	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestCleanupOlderThan_DeletesOldRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO price_data (timestamp, symbol, price) VALUES (?, ?, ?)", "2000-01-01T00:00:00Z", "BTCUSDT", 100.0)
	require.NoError(t, err)

	deleted, err := db.CleanupOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
