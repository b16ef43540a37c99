// Package scheduler runs the nightly cache reconciliation jobs on a cron
// cadence.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Config holds the job schedules, in standard five-field cron format
// evaluated in the configured timezone. The defaults line up with the
// exchange's end-of-day file publication.
type Config struct {
	Timezone  string `yaml:"timezone" default:"Asia/Kolkata"`
	Technical string `yaml:"technical" default:"30 19 * * 1-5"`
	Expiry    string `yaml:"expiry" default:"45 19 * * 1-5"`
	Signal    string `yaml:"signal" default:"0 20 * * 1-5"`
}

// Job is one schedulable unit of work.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler owns the cron runner. Jobs run sequentially per entry; a
// failing run is logged and waits for its next slot.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New builds a scheduler in the configured timezone.
func New(cfg Config, log zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		log:  log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Add registers a job. The context passed to the job is the one given to
// Start, so stopping the scheduler cancels in-flight runs cooperatively.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	log := s.log.With().Str("job", job.Name).Logger()
	_, err := s.cron.AddFunc(job.Spec, func() {
		started := time.Now()
		log.Info().Msg("job started")
		if err := job.Run(ctx); err != nil {
			log.Error().Err(err).Dur("took", time.Since(started)).Msg("job failed")
			return
		}
		log.Info().Dur("took", time.Since(started)).Msg("job finished")
	})
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", job.Name, job.Spec, err)
	}
	log.Info().Str("spec", job.Spec).Msg("job scheduled")
	return nil
}

// Start launches the cron loop and blocks until the context is cancelled,
// then waits for running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("scheduler stopped")
}
