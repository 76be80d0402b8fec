// Tabularium - Monitoring Stack Backup and Archival Agent
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tabularium

package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tabularium/internal/remote"
)

// DocumentName is the schedule document's name in the remote store.
const DocumentName = "schedule.json"

// Store persists the schedule document in the remote store.
//
// Load is deliberately infallible: the scheduler must be able to run from a
// fresh install, a missing document, or a corrupted one. All read problems
// degrade to an empty schedule and a log line; the scheduler then
// bootstraps default entries. Save replaces the whole document in one
// upload, so concurrent readers never see a partial schedule.
type Store struct {
	remote remote.Store
	logger zerolog.Logger
}

// NewStore returns a Store reading and writing through r.
func NewStore(r remote.Store, logger zerolog.Logger) *Store {
	return &Store{remote: r, logger: logger}
}

// Load reads the schedule document. It never returns an error: a missing
// document, a read failure, or undecodable JSON all yield an empty
// schedule, distinguished only in logs.
func (s *Store) Load(ctx context.Context) Schedule {
	text, err := s.remote.ReadText(ctx, DocumentName)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			s.logger.Debug().Str("document", DocumentName).Msg("No schedule document, starting empty")
		} else {
			s.logger.Warn().Err(err).Str("document", DocumentName).Msg("Failed to read schedule document, starting empty")
		}
		return Schedule{}
	}

	var sched Schedule
	if err := json.Unmarshal([]byte(text), &sched); err != nil {
		s.logger.Warn().Err(err).Str("document", DocumentName).Msg("Undecodable schedule document, starting empty")
		return Schedule{}
	}
	if sched == nil {
		return Schedule{}
	}
	return sched
}

// Save replaces the schedule document with the given schedule.
func (s *Store) Save(ctx context.Context, sched Schedule) error {
	data, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return fmt.Errorf("schedule: failed to encode document: %w", err)
	}
	if err := s.remote.Upload(ctx, DocumentName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("schedule: failed to upload document: %w", err)
	}
	return nil
}
