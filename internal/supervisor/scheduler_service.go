// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/schedule"
)

// defaultCheckInterval bounds scheduling latency when the config leaves
// the interval unset.
const defaultCheckInterval = 10 * time.Minute

// PassRunner runs one scheduling pass. Satisfied by *schedule.Scheduler.
type PassRunner interface {
	RunPass(ctx context.Context, now time.Time) (*schedule.PassReport, error)
}

// SchedulerService drives the scheduler from a ticker: one pass
// immediately on start, then one per interval. Pass outcomes are logged
// and journaled by the scheduler and its observers; the service only
// decides when passes happen.
type SchedulerService struct {
	runner   PassRunner
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewSchedulerService creates the ticker service around a pass runner.
func NewSchedulerService(runner PassRunner, interval time.Duration, logger zerolog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &SchedulerService{
		runner:   runner,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler-service").Logger(),
		name:     "scheduler",
	}
}

// Serve implements suture.Service. It returns only when the context
// ends; pass failures are contained and logged, never escalated to the
// supervisor, so a broken remote store does not put the whole core
// layer into restart backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Scheduler service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler service stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *SchedulerService) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	_, err := s.runner.RunPass(ctx, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, schedule.ErrPassInProgress):
		// A manual trigger holds the pass lock; this tick's work will
		// happen on the next one.
		s.logger.Debug().Msg("Tick skipped, a pass is already running")
	default:
		s.logger.Error().Err(err).Msg("Scheduling pass failed")
	}
}

// String identifies the service in suture's event log.
func (s *SchedulerService) String() string {
	return s.name
}
