// Package scheduler wraps robfig/cron for the low-frequency housekeeping
// jobs (signal cleanup, backup tiers, daily/weekly maintenance) that sit
// alongside the hand-rolled ingestion cadence loop in internal/ingestion.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named, schedulable unit of housekeeping work.
type Job interface {
	Run() error
	Name() string
}

// CronScheduler manages background housekeeping jobs on a cron cadence.
type CronScheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a CronScheduler with second-resolution schedules.
func New(log zerolog.Logger) *CronScheduler {
	return &CronScheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "cron_scheduler").Logger(),
	}
}

// Start starts the cron scheduler.
func (s *CronScheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cron scheduler started")
}

// Stop stops the cron scheduler, waiting for in-flight jobs to finish.
func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("cron scheduler stopped")
}

// AddJob registers job on the given cron schedule, e.g. "@every 1h" or
// "0 0 3 * * *".
func (s *CronScheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("running housekeeping job")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("housekeeping job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("housekeeping job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("housekeeping job registered")
	return nil
}

// RunNow executes job immediately, outside its schedule.
func (s *CronScheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running housekeeping job immediately")
	return job.Run()
}
