package reliability

import (
	"path/filepath"
	"testing"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitoringTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_system.db")
	db, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMonitoringService_CheckAlerts_HealthyStoreRaisesNoConnectionPoolAlerts(t *testing.T) {
	db := newMonitoringTestDB(t)
	dataDir := t.TempDir()
	backupDir := t.TempDir()
	svc := NewMonitoringService(db, dataDir, backupDir, zerolog.Nop())

	require.NoError(t, svc.CheckAlerts())
	assert.False(t, svc.HasCriticalAlerts())
	for _, a := range svc.GetAlerts() {
		assert.NotEqual(t, "connection pool exhausted", a.Message)
	}
}

func TestMonitoringService_CheckAlerts_MissingBackupsRaiseWarning(t *testing.T) {
	db := newMonitoringTestDB(t)
	dataDir := t.TempDir()
	backupDir := t.TempDir() // empty: no hourly/daily backups present

	svc := NewMonitoringService(db, dataDir, backupDir, zerolog.Nop())
	require.NoError(t, svc.CheckAlerts())

	found := false
	for _, a := range svc.GetAlerts() {
		if a.Component == "backup" {
			found = true
		}
	}
	assert.True(t, found)
}

type fakeChecker struct {
	name string
	ok   bool
}

func (f fakeChecker) Name() string                  { return f.name }
func (f fakeChecker) Healthy() (bool, string) {
	if f.ok {
		return true, ""
	}
	return false, "unhealthy"
}

func TestHealthAggregator_Aggregate_CombinesEveryChecker(t *testing.T) {
	agg := NewHealthAggregator(
		fakeChecker{name: "instrument_registry", ok: true},
		fakeChecker{name: "ingestion_scheduler", ok: false},
	)

	statuses := agg.Aggregate()
	assert.True(t, statuses["instrument_registry"].OK)
	assert.False(t, statuses["ingestion_scheduler"].OK)
	assert.Equal(t, "unhealthy", statuses["ingestion_scheduler"].Detail)
}
