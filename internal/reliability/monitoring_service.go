package reliability

import (
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/cryptosignal/internal/database"
	"github.com/rs/zerolog"
)

// AlertLevel is the severity of a monitoring alert.
type AlertLevel string

const (
	AlertCritical AlertLevel = "CRITICAL"
	AlertError    AlertLevel = "ERROR"
	AlertWarning  AlertLevel = "WARNING"
	AlertInfo     AlertLevel = "INFO"
)

// Alert is a single monitoring finding.
type Alert struct {
	Level     AlertLevel
	Component string
	Message   string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// MonitoringService watches the store's disk usage, WAL size, backup
// freshness and connection pool health, producing Alerts (§"Reliability
// services" supplement).
type MonitoringService struct {
	db        *database.DB
	dataDir   string
	backupDir string
	alerts    []Alert
	log       zerolog.Logger
}

// NewMonitoringService constructs a MonitoringService.
func NewMonitoringService(db *database.DB, dataDir, backupDir string, log zerolog.Logger) *MonitoringService {
	return &MonitoringService{
		db:        db,
		dataDir:   dataDir,
		backupDir: backupDir,
		log:       log.With().Str("component", "monitoring_service").Logger(),
	}
}

// CheckAlerts re-evaluates every alert condition and logs the findings.
func (s *MonitoringService) CheckAlerts() error {
	s.alerts = s.alerts[:0]

	s.checkDiskSpace()
	s.checkStats()
	s.checkBackupFreshness()
	s.checkConnectionPool()
	s.processAlerts()

	return nil
}

func (s *MonitoringService) checkDiskSpace() {
	usage, err := VolumeUsage(s.dataDir)
	if err != nil {
		s.addAlert(AlertError, "disk", "failed to check disk space", map[string]interface{}{"error": err.Error()})
		return
	}

	freeGB := float64(usage.FreeBytes) / 1e9
	switch {
	case freeGB < 0.5:
		s.addAlert(AlertCritical, "disk", "insufficient disk space", map[string]interface{}{"available_gb": freeGB})
	case freeGB < 5.0:
		s.addAlert(AlertError, "disk", "low disk space, consider cleanup", map[string]interface{}{"available_gb": freeGB})
	case freeGB < 10.0:
		s.addAlert(AlertWarning, "disk", "disk space running low", map[string]interface{}{"available_gb": freeGB})
	}
}

func (s *MonitoringService) checkStats() {
	stats, err := s.db.GetStats()
	if err != nil {
		s.addAlert(AlertError, "database", "failed to collect store stats", map[string]interface{}{"error": err.Error()})
		return
	}

	walMB := float64(stats.WALSizeBytes) / 1024 / 1024
	if walMB > 100.0 {
		s.addAlert(AlertError, "database", "WAL file exceeds 100MB, checkpoint may be stuck", map[string]interface{}{"wal_size_mb": walMB})
	}

	sizeMB := float64(stats.SizeBytes) / 1024 / 1024
	if sizeMB > 1000.0 {
		s.addAlert(AlertInfo, "database", "store exceeds 1GB, consider archival strategy", map[string]interface{}{"size_mb": sizeMB})
	}
}

func (s *MonitoringService) checkBackupFreshness() {
	today := time.Now().Format("2006-01-02")
	dailyBackup := filepath.Join(s.backupDir, "daily", "trading_system_"+today+".db")
	if _, err := os.Stat(dailyBackup); os.IsNotExist(err) {
		s.addAlert(AlertWarning, "backup", "today's daily backup not found", map[string]interface{}{"expected": dailyBackup})
	}

	hourlyDir := filepath.Join(s.backupDir, "hourly")
	entries, err := os.ReadDir(hourlyDir)
	if err != nil || len(entries) == 0 {
		return
	}

	var mostRecent time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil && info.ModTime().After(mostRecent) {
			mostRecent = info.ModTime()
		}
	}

	if time.Since(mostRecent) > 2*time.Hour {
		s.addAlert(AlertWarning, "backup", "hourly backup is stale", map[string]interface{}{
			"last_backup": mostRecent,
			"age_hours":   time.Since(mostRecent).Hours(),
		})
	}
}

func (s *MonitoringService) checkConnectionPool() {
	stats := s.db.Conn().Stats()

	if stats.InUse >= stats.MaxOpenConnections {
		s.addAlert(AlertWarning, "database", "connection pool exhausted", map[string]interface{}{
			"in_use": stats.InUse, "max_open": stats.MaxOpenConnections, "idle": stats.Idle,
		})
	}
	if stats.WaitCount > 100 {
		s.addAlert(AlertWarning, "database", "high connection wait count", map[string]interface{}{"wait_count": stats.WaitCount})
	}
}

func (s *MonitoringService) addAlert(level AlertLevel, component, message string, metadata map[string]interface{}) {
	s.alerts = append(s.alerts, Alert{
		Level: level, Component: component, Message: message,
		Timestamp: time.Now(), Metadata: metadata,
	})
}

func (s *MonitoringService) processAlerts() {
	if len(s.alerts) == 0 {
		s.log.Debug().Msg("no alerts")
		return
	}

	counts := make(map[AlertLevel]int)
	for _, alert := range s.alerts {
		counts[alert.Level]++
		event := s.log.WithLevel(zerologLevel(alert.Level)).Str("alert_component", alert.Component)
		for key, value := range alert.Metadata {
			event = event.Interface(key, value)
		}
		event.Msg(alert.Message)
	}

	s.log.Info().
		Int("critical", counts[AlertCritical]).
		Int("error", counts[AlertError]).
		Int("warning", counts[AlertWarning]).
		Int("info", counts[AlertInfo]).
		Msg("alert summary")
}

func zerologLevel(level AlertLevel) zerolog.Level {
	switch level {
	case AlertCritical:
		return zerolog.FatalLevel
	case AlertError:
		return zerolog.ErrorLevel
	case AlertWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetAlerts returns the findings from the most recent CheckAlerts call.
func (s *MonitoringService) GetAlerts() []Alert {
	return s.alerts
}

// HasCriticalAlerts reports whether any alert at CRITICAL severity exists.
func (s *MonitoringService) HasCriticalAlerts() bool {
	for _, alert := range s.alerts {
		if alert.Level == AlertCritical {
			return true
		}
	}
	return false
}

// ComponentHealth is the narrow contract a long-lived component exposes
// for §6's `system.health` aggregation.
type ComponentHealth interface {
	Name() string
	Healthy() (ok bool, detail string)
}

// FuncHealth adapts a plain closure into ComponentHealth, mirroring
// internal/scheduler's FuncJob for components too small to warrant their
// own named type.
type FuncHealth struct {
	CheckName string
	Fn        func() (bool, string)
}

// Name implements ComponentHealth.
func (f FuncHealth) Name() string { return f.CheckName }

// Healthy implements ComponentHealth.
func (f FuncHealth) Healthy() (bool, string) { return f.Fn() }

// HealthAggregator polls a fixed set of ComponentHealth checkers and
// reports their combined status, the same aggregation shape the
// monitoring service uses for its own per-concern checks.
type HealthAggregator struct {
	checkers []ComponentHealth
}

// NewHealthAggregator constructs a HealthAggregator over checkers.
func NewHealthAggregator(checkers ...ComponentHealth) *HealthAggregator {
	return &HealthAggregator{checkers: checkers}
}

// ComponentStatus is one component's health snapshot.
type ComponentStatus struct {
	OK     bool
	Detail string
}

// Aggregate polls every registered component and returns a name→status map.
func (h *HealthAggregator) Aggregate() map[string]ComponentStatus {
	out := make(map[string]ComponentStatus, len(h.checkers))
	for _, c := range h.checkers {
		ok, detail := c.Healthy()
		out[c.Name()] = ComponentStatus{OK: ok, Detail: detail}
	}
	return out
}
