package reliability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackupTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBackupService_HourlyBackup_ProducesVerifiedFile(t *testing.T) {
	db := newBackupTestDB(t)
	backupDir := t.TempDir()
	svc := NewBackupService(db, backupDir, zerolog.Nop())

	require.NoError(t, svc.HourlyBackup())

	entries, err := os.ReadDir(filepath.Join(backupDir, "hourly"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestBackupService_DailyAndWeeklyBackup_ProduceFiles(t *testing.T) {
	db := newBackupTestDB(t)
	backupDir := t.TempDir()
	svc := NewBackupService(db, backupDir, zerolog.Nop())

	require.NoError(t, svc.DailyBackup())
	require.NoError(t, svc.WeeklyBackup())

	dailyEntries, err := os.ReadDir(filepath.Join(backupDir, "daily"))
	require.NoError(t, err)
	assert.Len(t, dailyEntries, 1)

	weeklyEntries, err := os.ReadDir(filepath.Join(backupDir, "weekly"))
	require.NoError(t, err)
	assert.Len(t, weeklyEntries, 1)
}

func TestBackupService_RotateByAge_DeletesOldEntriesOnly(t *testing.T) {
	db := newBackupTestDB(t)
	backupDir := t.TempDir()
	svc := NewBackupService(db, backupDir, zerolog.Nop())

	dir := filepath.Join(backupDir, "hourly")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	oldPath := filepath.Join(dir, "old.db")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, old, old))

	freshPath := filepath.Join(dir, "fresh.db")
	require.NoError(t, os.WriteFile(freshPath, []byte("x"), 0o644))

	require.NoError(t, svc.rotateByAge(dir, 24*time.Hour))

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
}

func TestBackupService_MostRecentBackup_SearchesTiersInOrder(t *testing.T) {
	db := newBackupTestDB(t)
	backupDir := t.TempDir()
	svc := NewBackupService(db, backupDir, zerolog.Nop())

	require.NoError(t, svc.DailyBackup())
	found, err := svc.MostRecentBackup()
	require.NoError(t, err)
	assert.Contains(t, found, "daily")
}

func TestBackupService_MostRecentBackup_ErrorsWhenNoneExist(t *testing.T) {
	db := newBackupTestDB(t)
	backupDir := t.TempDir()
	svc := NewBackupService(db, backupDir, zerolog.Nop())

	_, err := svc.MostRecentBackup()
	assert.Error(t, err)
}
