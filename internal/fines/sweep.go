// internal/fines/sweep.go
package fines

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs the overdue-fine sweep on a cron schedule. The sweep only
// creates fines and reminders, never mutates issue status, so it is safe
// alongside user-triggered operations.
type Sweeper struct {
	service  Service
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewSweeper creates a sweeper on the given cron schedule
// (e.g. "0 0 * * *" for daily at midnight).
func NewSweeper(service Service, schedule string, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		schedule: schedule,
		log:      log.With().Str("component", "fine_sweeper").Logger(),
	}
}

// Start registers the job and begins the schedule.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.service.SweepOverdue(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("fine sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.log.Info().Msg("fine sweeper stopped")
	}
}
