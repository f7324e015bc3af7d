package reliability

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DatabaseHealthService runs the store's auto-recovery ladder: integrity
// check, WAL-checkpoint recovery, and finally restore-from-backup
// (§"Reliability services" supplement).
type DatabaseHealthService struct {
	db      *database.DB
	backups *BackupService
	log     zerolog.Logger
}

// NewDatabaseHealthService constructs a DatabaseHealthService. backups may
// be nil, in which case restore-from-backup is unavailable and a failed
// WAL recovery surfaces as an error instead.
func NewDatabaseHealthService(db *database.DB, backups *BackupService, log zerolog.Logger) *DatabaseHealthService {
	return &DatabaseHealthService{
		db:      db,
		backups: backups,
		log:     log.With().Str("component", "health_service").Logger(),
	}
}

// CheckAndRecover runs the integrity check and, on failure, attempts
// WAL-checkpoint recovery followed by restore-from-backup.
func (s *DatabaseHealthService) CheckAndRecover(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx); err == nil {
		return nil
	} else {
		s.log.Error().Err(err).Msg("integrity check failed")
	}

	if err := s.db.WALCheckpoint("RESTART"); err != nil {
		s.log.Error().Err(err).Msg("WAL checkpoint failed")
		return s.restoreFromBackup()
	}

	if err := s.db.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("integrity check still failing after WAL checkpoint")
		return s.restoreFromBackup()
	}

	s.log.Info().Msg("database recovered via WAL checkpoint")
	return nil
}

func (s *DatabaseHealthService) restoreFromBackup() error {
	if s.backups == nil {
		return fmt.Errorf("database corrupt and no backup service configured")
	}

	backup, err := s.backups.MostRecentBackup()
	if err != nil {
		return fmt.Errorf("find backup to restore: %w", err)
	}

	if err := verifyBackup(backup); err != nil {
		return fmt.Errorf("candidate backup is also corrupt: %w", err)
	}

	path := s.db.Path()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close corrupt database: %w", err)
	}

	corruptPath := path + ".corrupted." + time.Now().Format("20060102_150405")
	if err := os.Rename(path, corruptPath); err != nil {
		s.log.Error().Err(err).Msg("failed to preserve corrupted file for investigation")
	} else {
		s.log.Info().Str("path", corruptPath).Msg("corrupted file preserved")
	}

	if err := copyFile(backup, path); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	restored, err := database.New(database.Config{Path: path, Profile: database.ProfileStandard})
	if err != nil {
		return fmt.Errorf("reopen restored database: %w", err)
	}
	*s.db = *restored

	if err := s.db.HealthCheck(context.Background()); err != nil {
		return fmt.Errorf("restored backup is also corrupt: %w", err)
	}

	s.log.Info().Str("backup", backup).Msg("restored from backup")
	return nil
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0o644)
}

// VolumeMetrics reports process-level resource counters for the data
// volume, per §4's "healthCheck() additionally reports ... disk free
// space" supplement.
type VolumeMetrics struct {
	TotalBytes uint64
	FreeBytes  uint64
	UsedPct    float64
}

// VolumeUsage reports disk usage for the filesystem backing dataDir.
func VolumeUsage(dataDir string) (VolumeMetrics, error) {
	usage, err := disk.Usage(dataDir)
	if err != nil {
		return VolumeMetrics{}, fmt.Errorf("read disk usage: %w", err)
	}
	return VolumeMetrics{
		TotalBytes: usage.Total,
		FreeBytes:  usage.Free,
		UsedPct:    usage.UsedPercent,
	}, nil
}
