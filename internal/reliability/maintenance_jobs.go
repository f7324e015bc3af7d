package reliability

import (
	"context"
	"fmt"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
)

// DailyMaintenanceJob runs the store's integrity/recovery ladder, a WAL
// checkpoint, and an alert sweep, on a daily cadence (§"Reliability
// services" supplement). A CRITICAL alert propagates as an error so the
// cron scheduler logs it loudly; everything else is best-effort.
type DailyMaintenanceJob struct {
	health     *DatabaseHealthService
	monitoring *MonitoringService
	db         *database.DB
	log        zerolog.Logger
}

// NewDailyMaintenanceJob constructs a DailyMaintenanceJob.
func NewDailyMaintenanceJob(health *DatabaseHealthService, monitoring *MonitoringService, db *database.DB, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		health:     health,
		monitoring: monitoring,
		db:         db,
		log:        log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance sequence.
func (j *DailyMaintenanceJob) Run() error {
	if err := j.health.CheckAndRecover(context.Background()); err != nil {
		return fmt.Errorf("database recovery failed: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.monitoring.CheckAlerts(); err != nil {
		j.log.Error().Err(err).Msg("alert sweep failed")
	} else if j.monitoring.HasCriticalAlerts() {
		return fmt.Errorf("critical alert raised during daily maintenance")
	}

	j.log.Info().Msg("daily maintenance completed")
	return nil
}

// Name implements scheduler.Job.
func (j *DailyMaintenanceJob) Name() string { return "daily_maintenance" }

// WeeklyMaintenanceJob reclaims space with a full VACUUM (§"Reliability
// services" supplement).
type WeeklyMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWeeklyMaintenanceJob constructs a WeeklyMaintenanceJob.
func NewWeeklyMaintenanceJob(db *database.DB, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{db: db, log: log.With().Str("job", "weekly_maintenance").Logger()}
}

// Run executes a full VACUUM, logging the space reclaimed.
func (j *WeeklyMaintenanceJob) Run() error {
	before, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("stat before vacuum: %w", err)
	}

	if _, err := j.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}

	after, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("stat after vacuum: %w", err)
	}

	j.log.Info().
		Int64("size_before_bytes", before.SizeBytes).
		Int64("size_after_bytes", after.SizeBytes).
		Msg("weekly vacuum completed")
	return nil
}

// Name implements scheduler.Job.
func (j *WeeklyMaintenanceJob) Name() string { return "weekly_maintenance" }
