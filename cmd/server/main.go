package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/cryptosignal/internal/analysis"
	"github.com/aristath/cryptosignal/internal/config"
	"github.com/aristath/cryptosignal/internal/database"
	"github.com/aristath/cryptosignal/internal/ingestion"
	"github.com/aristath/cryptosignal/internal/instrument"
	"github.com/aristath/cryptosignal/internal/quotesource"
	"github.com/aristath/cryptosignal/internal/reliability"
	"github.com/aristath/cryptosignal/internal/scheduler"
	"github.com/aristath/cryptosignal/internal/signals"
	"github.com/aristath/cryptosignal/internal/systemfacade"
	"github.com/aristath/cryptosignal/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultInstruments mirrors the reference stack's get_enabled_pairs():
// Bitcoin and Ethereum stream by default.
var defaultInstruments = []struct {
	symbol      string
	displayName string
}{
	{"BTCUSDT", "Bitcoin"},
	{"ETHUSDT", "Ethereum"},
}

func main() {
	log := logger.New(logger.Config{Level: getEnv("LOG_LEVEL", "info"), Pretty: getEnv("DEV_MODE", "") != ""})
	logger.SetGlobalLogger(log)

	runID := uuid.New().String()
	log = log.With().Str("run_id", runID).Logger()
	log.Info().Msg("starting cryptosignal")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	db, err := database.New(database.Config{Path: cfg.DatabasePath, Profile: database.ProfileStandard})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	tickRepo := database.NewPriceDataRepository(db, log)
	indicatorRepo := database.NewIndicatorRepository(db, log)
	signalRepo := database.NewSignalRepository(db, log)
	configRepo := database.NewConfigurationRepository(db, log)

	registry := instrument.NewRegistry()
	for _, def := range defaultInstruments {
		inst := instrument.New(def.symbol, def.displayName, cfg.UpdateIntervalSec, 5, cfg.UpdateIntervalSec)
		inst.Enable()
		registry.Add(inst)
	}

	sources := buildSources(cfg, log)
	ingestionScheduler := ingestion.New(ingestion.Config{
		UpdateIntervalSec: cfg.UpdateIntervalSec,
		MaxWorkers:        cfg.MaxWorkers,
	}, registry, sources, log)

	sigMgr := signals.NewManager(signalRepo, log)
	pipeline := analysis.New(registry, tickRepo, indicatorRepo, sigMgr, log)
	ingestionScheduler.RegisterSink(pipeline)

	cron := scheduler.New(log)

	backupDir := cfg.DataDir + "/backups"
	backups := reliability.NewBackupService(db, backupDir, log)
	health := reliability.NewDatabaseHealthService(db, backups, log)
	monitoring := reliability.NewMonitoringService(db, cfg.DataDir, backupDir, log)

	registerHousekeeping(cron, backups, health, monitoring, sigMgr, db, cfg, log)

	sys := systemfacade.New(cfg, db, registry, ingestionScheduler, cron, sigMgr, tickRepo, indicatorRepo, signalRepo, configRepo, log)

	ctx := context.Background()
	if err := sys.ApplyPersistedOverrides(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to apply persisted configuration overrides")
	}

	if _, err := sys.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start system")
	}

	log.Info().Msg("cryptosignal started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if _, err := sys.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("error stopping system")
	}
	log.Info().Msg("stopped")
}

// buildSources constructs the source chain in priority order: exchange
// ticker, aggregator, and, if configured, a simulated fallback.
func buildSources(cfg *config.Config, log zerolog.Logger) []quotesource.Source {
	sources := []quotesource.Source{
		quotesource.NewExchangeTickerSource("https://api.binance.com", cfg.RateLimitExchangeSec, log),
		quotesource.NewAggregatorSource("https://api.coingecko.com", cfg.RateLimitAggregatorSec, map[string]string{
			"BTCUSDT": "bitcoin",
			"ETHUSDT": "ethereum",
		}, log),
	}
	if cfg.FallbackToSimulated {
		sources = append(sources, quotesource.NewSimulatedSource(map[string]float64{
			"BTCUSDT": 45000,
			"ETHUSDT": 2500,
		}, time.Now().UnixNano(), log))
	}
	return sources
}

func registerHousekeeping(
	cron *scheduler.CronScheduler,
	backups *reliability.BackupService,
	health *reliability.DatabaseHealthService,
	monitoring *reliability.MonitoringService,
	sigMgr *signals.Manager,
	db *database.DB,
	cfg *config.Config,
	log zerolog.Logger,
) {
	mustAddJob(cron, "@every 1h", scheduler.FuncJob{JobName: "hourly_backup", Fn: backups.HourlyBackup}, log)
	mustAddJob(cron, "0 0 1 * * *", scheduler.FuncJob{JobName: "daily_backup", Fn: backups.DailyBackup}, log)
	mustAddJob(cron, "0 0 1 * * 0", scheduler.FuncJob{JobName: "weekly_backup", Fn: backups.WeeklyBackup}, log)

	mustAddJob(cron, "0 0 2 * * *", reliability.NewDailyMaintenanceJob(health, monitoring, db, log), log)
	mustAddJob(cron, "0 30 3 * * 0", reliability.NewWeeklyMaintenanceJob(db, log), log)

	mustAddJob(cron, "0 0 4 * * *", scheduler.FuncJob{
		JobName: "signal_cleanup",
		Fn: func() error {
			_, err := sigMgr.Cleanup(context.Background(), cfg.CleanupRetentionDays)
			return err
		},
	}, log)
}

func mustAddJob(cron *scheduler.CronScheduler, schedule string, job scheduler.Job, log zerolog.Logger) {
	if err := cron.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("failed to register housekeeping job")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
