package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
)

// BackupService runs the tiered hourly/daily/weekly VACUUM INTO backup
// schedule over the single trading_system.db store, with per-tier
// retention (§"Reliability services" supplement).
type BackupService struct {
	db        *database.DB
	backupDir string
	log       zerolog.Logger
}

// NewBackupService constructs a BackupService writing tiered backups under
// backupDir.
func NewBackupService(db *database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:        db,
		backupDir: backupDir,
		log:       log.With().Str("component", "backup_service").Logger(),
	}
}

// HourlyBackup backs up the store, retaining the last 24 hours.
func (s *BackupService) HourlyBackup() error {
	dir := filepath.Join(s.backupDir, "hourly")
	name := fmt.Sprintf("trading_system_%s.db", time.Now().Format("2006-01-02_15"))
	if err := s.runBackup(dir, name); err != nil {
		return err
	}
	return s.rotateByAge(dir, 24*time.Hour)
}

// DailyBackup backs up the store, retaining the last 30 days.
func (s *BackupService) DailyBackup() error {
	dir := filepath.Join(s.backupDir, "daily")
	name := fmt.Sprintf("trading_system_%s.db", time.Now().Format("2006-01-02"))
	if err := s.runBackup(dir, name); err != nil {
		return err
	}
	return s.rotateByAge(dir, 30*24*time.Hour)
}

// WeeklyBackup backs up the store, retaining the last 12 weeks.
func (s *BackupService) WeeklyBackup() error {
	year, week := time.Now().ISOWeek()
	dir := filepath.Join(s.backupDir, "weekly")
	name := fmt.Sprintf("trading_system_%04d-W%02d.db", year, week)
	if err := s.runBackup(dir, name); err != nil {
		return err
	}
	return s.rotateByAge(dir, 12*7*24*time.Hour)
}

func (s *BackupService) runBackup(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(dir, name)
	start := time.Now()
	if err := s.db.Backup(path); err != nil {
		return fmt.Errorf("backup trading_system.db: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	s.log.Info().
		Str("path", path).
		Dur("duration_ms", time.Since(start)).
		Int64("size_bytes", info.Size()).
		Msg("backup completed")
	return nil
}

// rotateByAge deletes entries in dir older than maxAge.
func (s *BackupService) rotateByAge(dir string, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.log.Warn().Str("path", path).Err(err).Msg("failed to delete old backup")
			} else {
				s.log.Debug().Str("path", path).Msg("deleted old backup")
			}
		}
	}
	return nil
}

// MostRecentBackup searches the hourly, daily and weekly tiers in that
// order and returns the newest match found (used by
// DatabaseHealthService's restore-on-corruption path).
func (s *BackupService) MostRecentBackup() (string, error) {
	for _, tier := range []string{"hourly", "daily", "weekly"} {
		path, found := findNewest(filepath.Join(s.backupDir, tier))
		if found {
			return path, nil
		}
	}
	return "", fmt.Errorf("no backup found in %s", s.backupDir)
}

func findNewest(dir string) (string, bool) {
	var mostRecent string
	var mostRecentTime time.Time

	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if info.ModTime().After(mostRecentTime) {
			mostRecent = path
			mostRecentTime = info.ModTime()
		}
		return nil
	})
	return mostRecent, mostRecent != ""
}

// verifyBackup opens path directly (bypassing *database.DB) and runs an
// integrity check, used for ad-hoc verification of a file this service did
// not just produce via runBackup.
func verifyBackup(path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
