// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/schedule"
)

// Recorder bridges scheduler observations into a journal.
//
// Only tasks that actually started running are journaled; skip outcomes
// recur on every pass and are visible through metrics instead. Journal
// failures are logged and never propagate into the pass.
type Recorder struct {
	journal Journal
	logger  zerolog.Logger
}

// NewRecorder creates a journal-backed scheduler observer.
func NewRecorder(journal Journal, logger zerolog.Logger) *Recorder {
	return &Recorder{
		journal: journal,
		logger:  logger.With().Str("component", "journal").Logger(),
	}
}

// TaskStarted is a no-op; only finished runs are journaled.
func (r *Recorder) TaskStarted(context.Context, string, string) {}

// TaskFinished journals the result of a run.
func (r *Recorder) TaskFinished(ctx context.Context, passID string, result schedule.TaskResult) {
	if result.Started.IsZero() {
		return
	}

	record := RunRecord{
		ID:       uuid.NewString(),
		PassID:   passID,
		Recorded: time.Now().UTC(),
		Result:   result,
	}
	if err := r.journal.Append(ctx, record); err != nil {
		r.logger.Warn().Err(err).Str("task", result.Task).Msg("Failed to journal task result")
	}
}

// PassCompleted journals the pass report.
func (r *Recorder) PassCompleted(ctx context.Context, report schedule.PassReport) {
	if err := r.journal.RecordPass(ctx, report); err != nil {
		r.logger.Warn().Err(err).Str("pass_id", report.ID).Msg("Failed to journal pass report")
	}
}
