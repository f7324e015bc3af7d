package reliability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthTestDB(t *testing.T) (*database.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db, path
}

func TestDatabaseHealthService_CheckAndRecover_HealthyDatabasePassesCleanly(t *testing.T) {
	db, _ := newHealthTestDB(t)
	svc := NewDatabaseHealthService(db, nil, zerolog.Nop())

	assert.NoError(t, svc.CheckAndRecover(context.Background()))
}

func TestDatabaseHealthService_CheckAndRecover_NoBackupServiceSurfacesErrorOnCorruption(t *testing.T) {
	// A fresh, healthy database never reaches the restore path; this only
	// exercises that restoreFromBackup requires a configured BackupService.
	db, _ := newHealthTestDB(t)
	svc := NewDatabaseHealthService(db, nil, zerolog.Nop())
	err := svc.restoreFromBackup()
	assert.Error(t, err)
}

func TestCopyFile_CopiesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.txt")
	dst := filepath.Join(dir, "dest.txt")

	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))
	require.NoError(t, copyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestCopyFile_ErrorsOnMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := copyFile(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "dest.txt"))
	assert.Error(t, err)
}
